package ccv2

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/cfops/internal/ccbase"
	"github.com/fivetwenty-io/cfops/internal/derive"
	"github.com/fivetwenty-io/cfops/internal/fetch"
	"github.com/fivetwenty-io/cfops/internal/parse"
	"github.com/fivetwenty-io/cfops/pkg/capi"
)

func (b *Backend) organizations() fetch.Resource[organizationResource, *capi.Organization] {
	return endpoint[organizationResource](b, "organization", pathOrganizations, "name",
		fetch.Direct[*capi.Organization, *organizationResource]())
}

func (b *Backend) stacks() fetch.Resource[stackResource, *capi.Stack] {
	return endpoint[stackResource](b, "stack", pathStacks, "name",
		fetch.Direct[*capi.Stack, *stackResource]())
}

func (b *Backend) domains() fetch.Resource[domainResource, *capi.Domain] {
	return endpoint[domainResource](b, "domain", pathDomains, "name",
		fetch.Direct[*capi.Domain, *domainResource]())
}

func (b *Backend) spaces() fetch.Resource[spaceResource, *capi.Space] {
	return endpoint[spaceResource](b, "space", pathSpaces, "name", b.joinSpace)
}

func (b *Backend) applications() fetch.Resource[appResource, *capi.Application] {
	return endpoint[appResource](b, "application", pathApps, "name", b.joinApplication)
}

// Routes have no name, so lookups filter by host.
func (b *Backend) routes() fetch.Resource[routeResource, *capi.Route] {
	return endpoint[routeResource](b, "route", pathRoutes, "host", b.joinRoute)
}

func (b *Backend) servicePlans() fetch.Resource[servicePlanResource, *capi.ServicePlan] {
	return endpoint[servicePlanResource](b, "service plan", pathServicePlans, "name", b.joinServicePlan)
}

func (b *Backend) serviceInstances() fetch.Resource[serviceInstanceResource, *capi.ServiceInstance] {
	return endpoint[serviceInstanceResource](b, "service instance", pathServiceInstances, "name", b.joinServiceInstance)
}

func (b *Backend) spaceByGUID(ctx context.Context, guid string) (derive.Derivable[*capi.Space], error) {
	raw, err := ccbase.AuxByGUID[spaceResource](ctx, &b.Conn, pathSpaces, guid)
	if err != nil || raw == nil {
		return nil, err
	}

	return b.joinSpace(ctx, raw)
}

func (b *Backend) joinSpace(ctx context.Context, raw *spaceResource) (derive.Derivable[*capi.Space], error) {
	org, err := ccbase.AuxByGUID[organizationResource](ctx, &b.Conn, pathOrganizations, raw.Entity.OrganizationGUID)
	if err != nil {
		return nil, err
	}

	return &space{raw: raw, organization: org}, nil
}

// joinApplication reads the environment from the entity itself; running
// instances and routes come from the app summary.
func (b *Backend) joinApplication(ctx context.Context, raw *appResource) (derive.Derivable[*capi.Application], error) {
	state, err := parse.Convert(raw.Entity.State, capi.ApplicationStates...)
	if err != nil {
		return nil, fmt.Errorf("application %s: %w", raw.guid(), err)
	}

	app := &application{raw: raw, state: state, env: parse.Environment(raw.Entity.Environment)}

	err = fetch.Parallel(ctx,
		func(ctx context.Context) error {
			var summary appSummary

			found, err := b.AuxJSON(ctx, ccbase.ResourcePath(pathApps, raw.guid())+"/summary", &summary)
			if found {
				app.summary = &summary
			}

			return err
		},
		func(ctx context.Context) error {
			stack, err := ccbase.AuxByGUID[stackResource](ctx, &b.Conn, pathStacks, raw.Entity.StackGUID)
			if stack != nil {
				app.stack = stack
			}

			return err
		},
		func(ctx context.Context) error {
			s, err := b.spaceByGUID(ctx, raw.Entity.SpaceGUID)
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
			domain, err := ccbase.AuxByGUID[domainResource](ctx, &b.Conn, pathDomains, raw.Entity.DomainGUID)
			if domain != nil {
				r.domain = domain
			}

			return err
		},
		func(ctx context.Context) error {
			s, err := b.spaceByGUID(ctx, raw.Entity.SpaceGUID)
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

// joinServicePlan names the offering after the service label.
func (b *Backend) joinServicePlan(ctx context.Context, raw *servicePlanResource) (derive.Derivable[*capi.ServicePlan], error) {
	service, err := ccbase.AuxByGUID[serviceResource](ctx, &b.Conn, pathServices, raw.Entity.ServiceGUID)
	if err != nil {
		return nil, err
	}

	plan := &servicePlan{raw: raw}
	if service != nil {
		plan.offering = service.Entity.Label
	}

	return plan, nil
}

func (b *Backend) joinServiceInstance(ctx context.Context, raw *serviceInstanceResource) (derive.Derivable[*capi.ServiceInstance], error) {
	kind, err := parse.Convert(raw.Entity.Type.symbol(), capi.ServiceInstanceTypes...)
	if err != nil {
		return nil, fmt.Errorf("service instance %s: %w", raw.guid(), err)
	}

	si := &serviceInstance{raw: raw, kind: kind}

	if op := raw.Entity.LastOperation; op != nil {
		si.lastOperation, err = b.lastOperation(op)
		if err != nil {
			return nil, fmt.Errorf("service instance %s: %w", raw.guid(), err)
		}
	}

	err = fetch.Parallel(ctx,
		func(ctx context.Context) error {
			if kind == capi.ServiceInstanceUserProvided {
				return nil
			}

			plan, err := b.planByGUID(ctx, raw.Entity.ServicePlanGUID)
			si.plan = plan

			return err
		},
		func(ctx context.Context) error {
			s, err := b.spaceByGUID(ctx, raw.Entity.SpaceGUID)
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
