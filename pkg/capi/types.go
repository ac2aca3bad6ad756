package capi

import (
	"time"

	"github.com/google/uuid"
)

// Metadata carries the identity and timestamps shared by every platform resource.
// ID and the timestamps are nil when the platform omitted them or sent a value
// that could not be parsed.
type Metadata struct {
	ID        *uuid.UUID `json:"id,omitempty"         yaml:"id,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	URL       string     `json:"url,omitempty"        yaml:"url,omitempty"`
}

// GUID returns the string form of the resource identifier, or "" if absent.
func (m Metadata) GUID() string {
	if m.ID == nil {
		return ""
	}

	return m.ID.String()
}

// Organization is the top-level tenancy unit.
type Organization struct {
	Metadata `yaml:",inline"`

	Name      string `json:"name"      yaml:"name"`
	Suspended bool   `json:"suspended" yaml:"suspended"`
}

// Space is a deployment area inside an organization.
type Space struct {
	Metadata `yaml:",inline"`

	Name         string        `json:"name"                   yaml:"name"`
	Organization *Organization `json:"organization,omitempty" yaml:"organization,omitempty"`
}

// Stack is a root filesystem that applications are staged against.
type Stack struct {
	Metadata `yaml:",inline"`

	Name        string `json:"name"        yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// Domain is a DNS domain routes are created under.
type Domain struct {
	Metadata `yaml:",inline"`

	Name     string `json:"name"     yaml:"name"`
	Internal bool   `json:"internal" yaml:"internal"`
	Shared   bool   `json:"shared"   yaml:"shared"`
}

// Application is a deployed workload together with its stack and space.
type Application struct {
	Metadata `yaml:",inline"`

	Name             string            `json:"name"                        yaml:"name"`
	State            ApplicationState  `json:"state"                       yaml:"state"`
	Instances        int               `json:"instances"                   yaml:"instances"`
	RunningInstances *int              `json:"running_instances,omitempty" yaml:"running_instances,omitempty"`
	MemoryMB         int               `json:"memory_mb"                   yaml:"memory_mb"`
	DiskMB           int               `json:"disk_mb"                     yaml:"disk_mb"`
	Buildpacks       []string          `json:"buildpacks,omitempty"        yaml:"buildpacks,omitempty"`
	Environment      map[string]string `json:"environment,omitempty"       yaml:"environment,omitempty"`
	URLs             []string          `json:"urls,omitempty"              yaml:"urls,omitempty"`
	Stack            *Stack            `json:"stack,omitempty"             yaml:"stack,omitempty"`
	Space            *Space            `json:"space,omitempty"             yaml:"space,omitempty"`
}

// Route maps a host and path under a domain to applications.
type Route struct {
	Metadata `yaml:",inline"`

	Host   string  `json:"host"             yaml:"host"`
	Path   string  `json:"path"             yaml:"path"`
	Port   *int    `json:"port,omitempty"   yaml:"port,omitempty"`
	URL    string  `json:"url"              yaml:"url"`
	Domain *Domain `json:"domain,omitempty" yaml:"domain,omitempty"`
	Space  *Space  `json:"space,omitempty"  yaml:"space,omitempty"`
}

// ServicePlan is a tier of a service offering.
type ServicePlan struct {
	Metadata `yaml:",inline"`

	Name        string `json:"name"        yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Free        bool   `json:"free"        yaml:"free"`
	Offering    string `json:"offering"    yaml:"offering"`
}

// LastOperation describes the most recent asynchronous operation on a service instance.
type LastOperation struct {
	Type        OperationType  `json:"type"                 yaml:"type"`
	State       OperationState `json:"state"                yaml:"state"`
	Description string         `json:"description"          yaml:"description"`
	UpdatedAt   *time.Time     `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// ServiceInstance is a provisioned (or user-provided) service.
type ServiceInstance struct {
	Metadata `yaml:",inline"`

	Name          string              `json:"name"                     yaml:"name"`
	Type          ServiceInstanceType `json:"type"                     yaml:"type"`
	Tags          []string            `json:"tags,omitempty"           yaml:"tags,omitempty"`
	LastOperation *LastOperation      `json:"last_operation,omitempty" yaml:"last_operation,omitempty"`
	Plan          *ServicePlan        `json:"plan,omitempty"           yaml:"plan,omitempty"`
	Space         *Space              `json:"space,omitempty"          yaml:"space,omitempty"`
}

// Package is an uploaded application bits archive or docker image reference.
type Package struct {
	Metadata `yaml:",inline"`

	Type  PackageType  `json:"type"            yaml:"type"`
	State PackageState `json:"state"           yaml:"state"`
	Image string       `json:"image,omitempty" yaml:"image,omitempty"`
}

// Build is a staging of a package.
type Build struct {
	Metadata `yaml:",inline"`

	State           BuildState `json:"state"             yaml:"state"`
	Error           string     `json:"error,omitempty"   yaml:"error,omitempty"`
	StagingMemoryMB int        `json:"staging_memory_mb" yaml:"staging_memory_mb"`
	StagingDiskMB   int        `json:"staging_disk_mb"   yaml:"staging_disk_mb"`
	Package         *Package   `json:"package,omitempty" yaml:"package,omitempty"`
}

// Links represents resource links.
type Links map[string]Link

// Link represents a single link.
type Link struct {
	Href   string `json:"href"             yaml:"href"`
	Method string `json:"method,omitempty" yaml:"method,omitempty"`
}

// RootInfo represents the root / response.
type RootInfo struct {
	Links Links `json:"links" yaml:"links"`
}
