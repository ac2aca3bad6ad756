package ccv3

import (
	"maps"
	"slices"

	"github.com/fivetwenty-io/cfops/internal/derive"
	"github.com/fivetwenty-io/cfops/pkg/capi"
)

func (o *organizationResource) Derive() *capi.Organization {
	if o == nil {
		return nil
	}

	return &capi.Organization{
		Metadata:  o.metadata(),
		Name:      o.Name,
		Suspended: o.Suspended,
	}
}

func (s *stackResource) Derive() *capi.Stack {
	if s == nil {
		return nil
	}

	return &capi.Stack{
		Metadata:    s.metadata(),
		Name:        s.Name,
		Description: s.Description,
	}
}

// Derive reports a domain without an owning organization as shared.
func (d *domainResource) Derive() *capi.Domain {
	if d == nil {
		return nil
	}

	return &capi.Domain{
		Metadata: d.metadata(),
		Name:     d.Name,
		Internal: d.Internal,
		Shared:   d.Relationships.Organization.guid() == "",
	}
}

type space struct {
	raw          *spaceResource
	organization derive.Derivable[*capi.Organization]
}

func (s *space) Derive() *capi.Space {
	if s == nil {
		return nil
	}

	return &capi.Space{
		Metadata:     s.raw.metadata(),
		Name:         s.raw.Name,
		Organization: derive.Nullable(s.organization),
	}
}

type application struct {
	raw     *appResource
	state   capi.ApplicationState
	process *processResource
	running *int
	env     map[string]string
	urls    []string
	stack   derive.Derivable[*capi.Stack]
	space   derive.Derivable[*capi.Space]
}

func (a *application) Derive() *capi.Application {
	if a == nil {
		return nil
	}

	app := &capi.Application{
		Metadata:    a.raw.metadata(),
		Name:        a.raw.Name,
		State:       a.state,
		Buildpacks:  slices.Clone(a.raw.Lifecycle.Data.Buildpacks),
		Environment: maps.Clone(a.env),
		URLs:        slices.Clone(a.urls),
		Stack:       derive.Nullable(a.stack),
		Space:       derive.Nullable(a.space),
	}

	if a.process != nil {
		app.Instances = a.process.Instances
		app.MemoryMB = a.process.MemoryInMB
		app.DiskMB = a.process.DiskInMB
	}

	if a.running != nil {
		running := *a.running
		app.RunningInstances = &running
	}

	return app
}

type route struct {
	raw    *routeResource
	domain derive.Derivable[*capi.Domain]
	space  derive.Derivable[*capi.Space]
}

func (r *route) Derive() *capi.Route {
	if r == nil {
		return nil
	}

	out := &capi.Route{
		Metadata: r.raw.metadata(),
		Host:     r.raw.Host,
		Path:     r.raw.Path,
		URL:      r.raw.URL,
		Domain:   derive.Nullable(r.domain),
		Space:    derive.Nullable(r.space),
	}

	if r.raw.Port != nil {
		port := *r.raw.Port
		out.Port = &port
	}

	return out
}

type servicePlan struct {
	raw      *servicePlanResource
	offering string
}

func (p *servicePlan) Derive() *capi.ServicePlan {
	if p == nil {
		return nil
	}

	return &capi.ServicePlan{
		Metadata:    p.raw.metadata(),
		Name:        p.raw.Name,
		Description: p.raw.Description,
		Free:        p.raw.Free,
		Offering:    p.offering,
	}
}

type serviceInstance struct {
	raw           *serviceInstanceResource
	kind          capi.ServiceInstanceType
	lastOperation *capi.LastOperation
	plan          derive.Derivable[*capi.ServicePlan]
	space         derive.Derivable[*capi.Space]
}

func (s *serviceInstance) Derive() *capi.ServiceInstance {
	if s == nil {
		return nil
	}

	out := &capi.ServiceInstance{
		Metadata: s.raw.metadata(),
		Name:     s.raw.Name,
		Type:     s.kind,
		Tags:     slices.Clone(s.raw.Tags),
		Plan:     derive.Nullable(s.plan),
		Space:    derive.Nullable(s.space),
	}

	if s.lastOperation != nil {
		op := *s.lastOperation
		out.LastOperation = &op
	}

	return out
}

type pkg struct {
	raw   *packageResource
	kind  capi.PackageType
	state capi.PackageState
}

func (p *pkg) Derive() *capi.Package {
	if p == nil {
		return nil
	}

	return &capi.Package{
		Metadata: p.raw.metadata(),
		Type:     p.kind,
		State:    p.state,
		Image:    p.raw.Data.Image,
	}
}

type build struct {
	raw   *buildResource
	state capi.BuildState
	pkg   derive.Derivable[*capi.Package]
}

func (b *build) Derive() *capi.Build {
	if b == nil {
		return nil
	}

	out := &capi.Build{
		Metadata:        b.raw.metadata(),
		State:           b.state,
		StagingMemoryMB: b.raw.StagingMemoryInMB,
		StagingDiskMB:   b.raw.StagingDiskInMB,
		Package:         derive.Nullable(b.pkg),
	}

	if b.raw.Error != nil {
		out.Error = *b.raw.Error
	}

	return out
}
