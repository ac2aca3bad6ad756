package ccv3

import (
	"context"
	"fmt"
	"net/url"

	"github.com/fivetwenty-io/cfops/internal/ccbase"
	"github.com/fivetwenty-io/cfops/internal/derive"
	"github.com/fivetwenty-io/cfops/internal/fetch"
	"github.com/fivetwenty-io/cfops/internal/parse"
	"github.com/fivetwenty-io/cfops/pkg/capi"
)

const processRunning = "RUNNING"

func (b *Backend) organizations() fetch.Resource[organizationResource, *capi.Organization] {
	return endpoint[organizationResource](b, "organization", pathOrganizations, "names",
		fetch.Direct[*capi.Organization, *organizationResource]())
}

func (b *Backend) stacks() fetch.Resource[stackResource, *capi.Stack] {
	return endpoint[stackResource](b, "stack", pathStacks, "names",
		fetch.Direct[*capi.Stack, *stackResource]())
}

func (b *Backend) domains() fetch.Resource[domainResource, *capi.Domain] {
	return endpoint[domainResource](b, "domain", pathDomains, "names",
		fetch.Direct[*capi.Domain, *domainResource]())
}

func (b *Backend) spaces() fetch.Resource[spaceResource, *capi.Space] {
	return endpoint[spaceResource](b, "space", pathSpaces, "names", b.joinSpace)
}

func (b *Backend) applications() fetch.Resource[appResource, *capi.Application] {
	return endpoint[appResource](b, "application", pathApps, "names", b.joinApplication)
}

// Routes have no name, so lookups filter by host.
func (b *Backend) routes() fetch.Resource[routeResource, *capi.Route] {
	return endpoint[routeResource](b, "route", pathRoutes, "hosts", b.joinRoute)
}

func (b *Backend) servicePlans() fetch.Resource[servicePlanResource, *capi.ServicePlan] {
	return endpoint[servicePlanResource](b, "service plan", pathServicePlans, "names", b.joinServicePlan)
}

func (b *Backend) serviceInstances() fetch.Resource[serviceInstanceResource, *capi.ServiceInstance] {
	return endpoint[serviceInstanceResource](b, "service instance", pathServiceInstances, "names", b.joinServiceInstance)
}

// Builds and packages have no name; lookups by name filter on their state.
func (b *Backend) builds() fetch.Resource[buildResource, *capi.Build] {
	return endpoint[buildResource](b, "build", pathBuilds, "states", b.joinBuild)
}

func (b *Backend) packages() fetch.Resource[packageResource, *capi.Package] {
	return endpoint[packageResource](b, "package", pathPackages, "states", b.joinPackage)
}

// spaceByGUID fetches a space together with its organization.
func (b *Backend) spaceByGUID(ctx context.Context, guid string) (derive.Derivable[*capi.Space], error) {
	raw, err := ccbase.AuxByGUID[spaceResource](ctx, &b.Conn, pathSpaces, guid)
	if err != nil || raw == nil {
		return nil, err
	}

	return b.joinSpace(ctx, raw)
}

func (b *Backend) joinSpace(ctx context.Context, raw *spaceResource) (derive.Derivable[*capi.Space], error) {
	org, err := ccbase.AuxByGUID[organizationResource](ctx, &b.Conn, pathOrganizations, raw.Relationships.Organization.guid())
	if err != nil {
		return nil, err
	}

	return &space{raw: raw, organization: org}, nil
}

func (b *Backend) joinApplication(ctx context.Context, raw *appResource) (derive.Derivable[*capi.Application], error) {
	state, err := parse.Convert(raw.State, capi.ApplicationStates...)
	if err != nil {
		return nil, fmt.Errorf("application %s: %w", raw.GUID, err)
	}

	app := &application{raw: raw, state: state}
	appPath := ccbase.ResourcePath(pathApps, raw.GUID)

	err = fetch.Parallel(ctx,
		func(ctx context.Context) error {
			proc, err := ccbase.AuxByGUID[processResource](ctx, &b.Conn, appPath+"/processes", "web")
			app.process = proc

			return err
		},
		func(ctx context.Context) error {
			var stats processStats

			found, err := b.AuxJSON(ctx, appPath+"/processes/web/stats", &stats)
			if err != nil || !found {
				return err
			}

			running := 0

			for _, instance := range stats.Resources {
				if instance.State == processRunning {
					running++
				}
			}

			app.running = &running

			return nil
		},
		func(ctx context.Context) error {
			var env environmentVariables

			_, err := b.AuxJSON(ctx, appPath+"/environment_variables", &env)
			app.env = parse.Environment(env.Var)

			return err
		},
		func(ctx context.Context) error {
			routes, err := auxAll[routeResource](ctx, b, appPath+"/routes", nil)
			for _, r := range routes {
				app.urls = append(app.urls, r.URL)
			}

			return err
		},
		func(ctx context.Context) error {
			name := raw.Lifecycle.Data.Stack
			if name == "" {
				return nil
			}

			stack, err := auxFirst[stackResource](ctx, b, pathStacks, url.Values{"names": {name}})
			if stack != nil {
				app.stack = stack
			}

			return err
		},
		func(ctx context.Context) error {
			s, err := b.spaceByGUID(ctx, raw.Relationships.Space.guid())
			app.space = s

			return err
		},
	)
	if err != nil {
		return nil, err
	}

	return app, nil
}

func (b *Backend) joinRoute(ctx context.Context, raw *routeResource) (derive.Derivable[*capi.Route], error) {
	r := &route{raw: raw}

	err := fetch.Parallel(ctx,
		func(ctx context.Context) error {
			domain, err := ccbase.AuxByGUID[domainResource](ctx, &b.Conn, pathDomains, raw.Relationships.Domain.guid())
			if domain != nil {
				r.domain = domain
			}

			return err
		},
		func(ctx context.Context) error {
			s, err := b.spaceByGUID(ctx, raw.Relationships.Space.guid())
			r.space = s

			return err
		},
	)
	if err != nil {
		return nil, err
	}

	return r, nil
}

func (b *Backend) planByGUID(ctx context.Context, guid string) (derive.Derivable[*capi.ServicePlan], error) {
	raw, err := ccbase.AuxByGUID[servicePlanResource](ctx, &b.Conn, pathServicePlans, guid)
	if err != nil || raw == nil {
		return nil, err
	}

	return b.joinServicePlan(ctx, raw)
}

func (b *Backend) joinServicePlan(ctx context.Context, raw *servicePlanResource) (derive.Derivable[*capi.ServicePlan], error) {
	offering, err := ccbase.AuxByGUID[serviceOfferingResource](ctx, &b.Conn, pathServiceOfferings, raw.Relationships.ServiceOffering.guid())
	if err != nil {
		return nil, err
	}

	plan := &servicePlan{raw: raw}
	if offering != nil {
		plan.offering = offering.Name
	}

	return plan, nil
}

func (b *Backend) joinServiceInstance(ctx context.Context, raw *serviceInstanceResource) (derive.Derivable[*capi.ServiceInstance], error) {
	kind, err := parse.Convert(raw.Type, capi.ServiceInstanceTypes...)
	if err != nil {
		return nil, fmt.Errorf("service instance %s: %w", raw.GUID, err)
	}

	si := &serviceInstance{raw: raw, kind: kind}

	if op := raw.LastOperation; op != nil {
		si.lastOperation, err = b.lastOperation(op)
		if err != nil {
			return nil, fmt.Errorf("service instance %s: %w", raw.GUID, err)
		}
	}

	err = fetch.Parallel(ctx,
		func(ctx context.Context) error {
			if kind == capi.ServiceInstanceUserProvided {
				return nil
			}

			plan, err := b.planByGUID(ctx, raw.Relationships.ServicePlan.guid())
			si.plan = plan

			return err
		},
		func(ctx context.Context) error {
			s, err := b.spaceByGUID(ctx, raw.Relationships.Space.guid())
			si.space = s

			return err
		},
	)
	if err != nil {
		return nil, err
	}

	return si, nil
}

func (b *Backend) lastOperation(op *lastOperation) (*capi.LastOperation, error) {
	typ, err := parse.Convert(op.Type, capi.OperationTypes...)
	if err != nil {
		return nil, err
	}

	state, err := parse.Convert(op.State, capi.OperationStates...)
	if err != nil {
		return nil, err
	}

	return &capi.LastOperation{
		Type:        typ,
		State:       state,
		Description: op.Description,
		UpdatedAt:   parse.Timestamp(op.UpdatedAt, b.Log),
	}, nil
}

func (b *Backend) joinPackage(_ context.Context, raw *packageResource) (derive.Derivable[*capi.Package], error) {
	kind, err := parse.Convert(raw.Type, capi.PackageTypes...)
	if err != nil {
		return nil, fmt.Errorf("package %s: %w", raw.GUID, err)
	}

	state, err := parse.Convert(raw.State, capi.PackageStates...)
	if err != nil {
		return nil, fmt.Errorf("package %s: %w", raw.GUID, err)
	}

	return &pkg{raw: raw, kind: kind, state: state}, nil
}

func (b *Backend) joinBuild(ctx context.Context, raw *buildResource) (derive.Derivable[*capi.Build], error) {
	state, err := parse.Convert(raw.State, capi.BuildStates...)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", raw.GUID, err)
	}

	out := &build{raw: raw, state: state}

	if raw.Package != nil {
		p, err := ccbase.AuxByGUID[packageResource](ctx, &b.Conn, pathPackages, raw.Package.GUID)
		if err != nil {
			return nil, err
		}

		if p != nil {
			out.pkg, err = b.joinPackage(ctx, p)
			if err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}
