package ccv2

import (
	"maps"
	"slices"
	"strconv"

	"github.com/fivetwenty-io/cfops/internal/derive"
	"github.com/fivetwenty-io/cfops/pkg/capi"
)

func (o *organizationResource) Derive() *capi.Organization {
	if o == nil {
		return nil
	}

	return &capi.Organization{
		Metadata:  o.metadata(),
		Name:      o.Entity.Name,
		Suspended: o.Entity.Status == orgSuspended,
	}
}

func (s *stackResource) Derive() *capi.Stack {
	if s == nil {
		return nil
	}

	return &capi.Stack{
		Metadata:    s.metadata(),
		Name:        s.Entity.Name,
		Description: s.Entity.Description,
	}
}

// Derive reports a domain without an owning organization as shared.
func (d *domainResource) Derive() *capi.Domain {
	if d == nil {
		return nil
	}

	return &capi.Domain{
		Metadata: d.metadata(),
		Name:     d.Entity.Name,
		Internal: d.Entity.Internal,
		Shared:   d.Entity.OwningOrganizationGUID == "",
	}
}

// routeURL renders host.domain[:port]/path the way the platform prints routes.
func routeURL(host, domain, path string, port *int) string {
	out := domain
	if host != "" {
		out = host + "." + domain
	}

	if port != nil {
		out += ":" + strconv.Itoa(*port)
	}

	return out + path
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
		Name:         s.raw.Entity.Name,
		Organization: derive.Nullable(s.organization),
	}
}

type application struct {
	raw     *appResource
	state   capi.ApplicationState
	env     map[string]string
	summary *appSummary
	stack   derive.Derivable[*capi.Stack]
	space   derive.Derivable[*capi.Space]
}

func (a *application) Derive() *capi.Application {
	if a == nil {
		return nil
	}

	app := &capi.Application{
		Metadata:    a.raw.metadata(),
		Name:        a.raw.Entity.Name,
		State:       a.state,
		Instances:   a.raw.Entity.Instances,
		MemoryMB:    a.raw.Entity.Memory,
		DiskMB:      a.raw.Entity.DiskQuota,
		Environment: maps.Clone(a.env),
		Stack:       derive.Nullable(a.stack),
		Space:       derive.Nullable(a.space),
	}

	if bp := a.raw.buildpack(); bp != "" {
		app.Buildpacks = []string{bp}
	}

	if a.summary != nil {
		if a.summary.RunningInstances != nil {
			running := *a.summary.RunningInstances
			app.RunningInstances = &running
		}

		app.URLs = derive.All[string](a.summary.Routes)
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
		Host:     r.raw.Entity.Host,
		Path:     r.raw.Entity.Path,
		Domain:   derive.Nullable(r.domain),
		Space:    derive.Nullable(r.space),
	}

	if r.raw.Entity.Port != nil {
		port := *r.raw.Entity.Port
		out.Port = &port
	}

	if out.Domain != nil {
		out.URL = routeURL(out.Host, out.Domain.Name, out.Path, out.Port)
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
		Name:        p.raw.Entity.Name,
		Description: p.raw.Entity.Description,
		Free:        p.raw.Entity.Free,
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
		Name:     s.raw.Entity.Name,
		Type:     s.kind,
		Tags:     slices.Clone(s.raw.Entity.Tags),
		Plan:     derive.Nullable(s.plan),
		Space:    derive.Nullable(s.space),
	}

	if s.lastOperation != nil {
		op := *s.lastOperation
		out.LastOperation = &op
	}

	return out
}
