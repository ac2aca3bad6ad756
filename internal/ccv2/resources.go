package ccv2

import (
	"github.com/fivetwenty-io/cfops/internal/parse"
	"github.com/fivetwenty-io/cfops/pkg/capi"
)

const (
	pathOrganizations    = "/v2/organizations"
	pathSpaces           = "/v2/spaces"
	pathStacks           = "/v2/stacks"
	pathDomains          = "/v2/domains"
	pathRoutes           = "/v2/routes"
	pathServicePlans     = "/v2/service_plans"
	pathServices         = "/v2/services"
	pathServiceInstances = "/v2/service_instances"
	pathApps             = "/v2/apps"
)

type listResponse[R any] struct {
	TotalResults int     `json:"total_results"`
	TotalPages   int     `json:"total_pages"`
	PrevURL      *string `json:"prev_url"`
	NextURL      *string `json:"next_url"`
	Resources    []R     `json:"resources"`
}

type meta struct {
	GUID      string `json:"guid"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// envelope holds the metadata block every v2 resource carries next to its entity.
type envelope struct {
	Metadata meta `json:"metadata"`

	log capi.Logger
}

func (e *envelope) Bind(log capi.Logger) {
	e.log = log
}

func (e *envelope) guid() string {
	return e.Metadata.GUID
}

func (e *envelope) metadata() capi.Metadata {
	return capi.Metadata{
		ID:        parse.ID(e.Metadata.GUID, e.log),
		CreatedAt: parse.Timestamp(e.Metadata.CreatedAt, e.log),
		UpdatedAt: parse.Timestamp(e.Metadata.UpdatedAt, e.log),
		URL:       e.Metadata.URL,
	}
}

// Wire enums. Their names are coerced onto the domain enums at join time.
type (
	appState            string
	serviceInstanceType string
	operationState      string
	operationType       string
)

const (
	managedServiceInstance      serviceInstanceType = "managed_service_instance"
	userProvidedServiceInstance serviceInstanceType = "user_provided_service_instance"
)

// symbol maps the v2 instance type onto the name the domain enum uses.
func (t serviceInstanceType) symbol() serviceInstanceType {
	switch t {
	case managedServiceInstance:
		return serviceInstanceType(capi.ServiceInstanceManaged)
	case userProvidedServiceInstance:
		return serviceInstanceType(capi.ServiceInstanceUserProvided)
	default:
		return t
	}
}

const orgSuspended = "suspended"

type organizationResource struct {
	envelope

	Entity struct {
		Name   string `json:"name"`
		Status string `json:"status"`
	} `json:"entity"`
}

type spaceResource struct {
	envelope

	Entity struct {
		Name             string `json:"name"`
		OrganizationGUID string `json:"organization_guid"`
	} `json:"entity"`
}

type stackResource struct {
	envelope

	Entity struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"entity"`
}

type domainResource struct {
	envelope

	Entity struct {
		Name                   string `json:"name"`
		Internal               bool   `json:"internal"`
		OwningOrganizationGUID string `json:"owning_organization_guid"`
	} `json:"entity"`
}

type appResource struct {
	envelope

	Entity struct {
		Name              string                 `json:"name"`
		State             appState               `json:"state"`
		Instances         int                    `json:"instances"`
		Memory            int                    `json:"memory"`
		DiskQuota         int                    `json:"disk_quota"`
		Buildpack         *string                `json:"buildpack"`
		DetectedBuildpack *string                `json:"detected_buildpack"`
		Environment       map[string]interface{} `json:"environment_json"`
		StackGUID         string                 `json:"stack_guid"`
		SpaceGUID         string                 `json:"space_guid"`
	} `json:"entity"`
}

// buildpack prefers the configured buildpack over the detected one.
func (a *appResource) buildpack() string {
	switch {
	case a.Entity.Buildpack != nil && *a.Entity.Buildpack != "":
		return *a.Entity.Buildpack
	case a.Entity.DetectedBuildpack != nil:
		return *a.Entity.DetectedBuildpack
	default:
		return ""
	}
}

// appSummary is the /v2/apps/:guid/summary document.
type appSummary struct {
	RunningInstances *int            `json:"running_instances"`
	Routes           []*summaryRoute `json:"routes"`
}

// summaryRoute is a route embedded in an app summary. It derives to its URL.
type summaryRoute struct {
	Host   string `json:"host"`
	Path   string `json:"path"`
	Port   *int   `json:"port"`
	Domain struct {
		Name string `json:"name"`
	} `json:"domain"`
}

func (r *summaryRoute) Derive() string {
	if r == nil {
		return ""
	}

	return routeURL(r.Host, r.Domain.Name, r.Path, r.Port)
}

type routeResource struct {
	envelope

	Entity struct {
		Host       string `json:"host"`
		Path       string `json:"path"`
		Port       *int   `json:"port"`
		DomainGUID string `json:"domain_guid"`
		SpaceGUID  string `json:"space_guid"`
	} `json:"entity"`
}

type servicePlanResource struct {
	envelope

	Entity struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Free        bool   `json:"free"`
		ServiceGUID string `json:"service_guid"`
	} `json:"entity"`
}

type serviceResource struct {
	envelope

	Entity struct {
		Label string `json:"label"`
	} `json:"entity"`
}

type lastOperation struct {
	Type        operationType  `json:"type"`
	State       operationState `json:"state"`
	Description string         `json:"description"`
	UpdatedAt   string         `json:"updated_at"`
}

type serviceInstanceResource struct {
	envelope

	Entity struct {
		Name            string              `json:"name"`
		Type            serviceInstanceType `json:"type"`
		Tags            []string            `json:"tags"`
		LastOperation   *lastOperation      `json:"last_operation"`
		ServicePlanGUID string              `json:"service_plan_guid"`
		SpaceGUID       string              `json:"space_guid"`
	} `json:"entity"`
}
