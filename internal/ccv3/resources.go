package ccv3

import (
	"github.com/fivetwenty-io/cfops/internal/parse"
	"github.com/fivetwenty-io/cfops/pkg/capi"
)

const (
	pathOrganizations    = "/v3/organizations"
	pathSpaces           = "/v3/spaces"
	pathStacks           = "/v3/stacks"
	pathDomains          = "/v3/domains"
	pathRoutes           = "/v3/routes"
	pathServicePlans     = "/v3/service_plans"
	pathServiceOfferings = "/v3/service_offerings"
	pathServiceInstances = "/v3/service_instances"
	pathApps             = "/v3/apps"
	pathBuilds           = "/v3/builds"
	pathPackages         = "/v3/packages"
)

type link struct {
	Href string `json:"href"`
}

type pagination struct {
	TotalResults int   `json:"total_results"`
	TotalPages   int   `json:"total_pages"`
	Next         *link `json:"next"`
}

type listResponse[R any] struct {
	Pagination pagination `json:"pagination"`
	Resources  []R        `json:"resources"`
}

// resource holds the fields every v3 resource carries.
type resource struct {
	GUID      string          `json:"guid"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
	Links     map[string]link `json:"links"`

	log capi.Logger
}

func (r *resource) Bind(log capi.Logger) {
	r.log = log
}

func (r *resource) metadata() capi.Metadata {
	return capi.Metadata{
		ID:        parse.ID(r.GUID, r.log),
		CreatedAt: parse.Timestamp(r.CreatedAt, r.log),
		UpdatedAt: parse.Timestamp(r.UpdatedAt, r.log),
		URL:       r.Links["self"].Href,
	}
}

type relationship struct {
	Data *struct {
		GUID string `json:"guid"`
	} `json:"data"`
}

func (r relationship) guid() string {
	if r.Data == nil {
		return ""
	}

	return r.Data.GUID
}

// Wire enums. Their names are coerced onto the domain enums at join time.
type (
	appState            string
	buildState          string
	packageState        string
	packageType         string
	serviceInstanceType string
	operationState      string
	operationType       string
)

type organizationResource struct {
	resource

	Name      string `json:"name"`
	Suspended bool   `json:"suspended"`
}

type spaceResource struct {
	resource

	Name          string `json:"name"`
	Relationships struct {
		Organization relationship `json:"organization"`
	} `json:"relationships"`
}

type stackResource struct {
	resource

	Name        string `json:"name"`
	Description string `json:"description"`
}

type domainResource struct {
	resource

	Name          string `json:"name"`
	Internal      bool   `json:"internal"`
	Relationships struct {
		Organization relationship `json:"organization"`
	} `json:"relationships"`
}

type appResource struct {
	resource

	Name      string   `json:"name"`
	State     appState `json:"state"`
	Lifecycle struct {
		Type string `json:"type"`
		Data struct {
			Buildpacks []string `json:"buildpacks"`
			Stack      string   `json:"stack"`
		} `json:"data"`
	} `json:"lifecycle"`
	Relationships struct {
		Space relationship `json:"space"`
	} `json:"relationships"`
}

type processResource struct {
	resource

	Type       string `json:"type"`
	Instances  int    `json:"instances"`
	MemoryInMB int    `json:"memory_in_mb"`
	DiskInMB   int    `json:"disk_in_mb"`
}

type processStats struct {
	Resources []struct {
		State string `json:"state"`
	} `json:"resources"`
}

type environmentVariables struct {
	Var map[string]interface{} `json:"var"`
}

type routeResource struct {
	resource

	Host          string `json:"host"`
	Path          string `json:"path"`
	Port          *int   `json:"port"`
	URL           string `json:"url"`
	Relationships struct {
		Domain relationship `json:"domain"`
		Space  relationship `json:"space"`
	} `json:"relationships"`
}

type servicePlanResource struct {
	resource

	Name          string `json:"name"`
	Description   string `json:"description"`
	Free          bool   `json:"free"`
	Relationships struct {
		ServiceOffering relationship `json:"service_offering"`
	} `json:"relationships"`
}

type serviceOfferingResource struct {
	resource

	Name string `json:"name"`
}

type lastOperation struct {
	Type        operationType  `json:"type"`
	State       operationState `json:"state"`
	Description string         `json:"description"`
	UpdatedAt   string         `json:"updated_at"`
}

type serviceInstanceResource struct {
	resource

	Name          string              `json:"name"`
	Type          serviceInstanceType `json:"type"`
	Tags          []string            `json:"tags"`
	LastOperation *lastOperation      `json:"last_operation"`
	Relationships struct {
		ServicePlan relationship `json:"service_plan"`
		Space       relationship `json:"space"`
	} `json:"relationships"`
}

type packageResource struct {
	resource

	Type  packageType  `json:"type"`
	State packageState `json:"state"`
	Data  struct {
		Image string `json:"image"`
	} `json:"data"`
}

type buildResource struct {
	resource

	State             buildState `json:"state"`
	Error             *string    `json:"error"`
	StagingMemoryInMB int        `json:"staging_memory_in_mb"`
	StagingDiskInMB   int        `json:"staging_disk_in_mb"`
	Package           *struct {
		GUID string `json:"guid"`
	} `json:"package"`
}

type job struct {
	resource

	State     string          `json:"state"`
	Operation string          `json:"operation"`
	Errors    []capi.APIError `json:"errors"`
}
