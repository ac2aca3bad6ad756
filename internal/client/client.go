// Package client implements the capi.Client facade. Each API generation binds
// its endpoints to the generic clients here, so lookups, listings and
// lifecycle operations behave the same whichever generation serves them.
package client

import (
	"github.com/fivetwenty-io/cfops/pkg/capi"
)

// Set holds the per-kind clients of one API generation.
type Set struct {
	Organizations    capi.ResourceClient[capi.Organization]
	Spaces           capi.ResourceClient[capi.Space]
	Stacks           capi.ResourceClient[capi.Stack]
	Domains          capi.ResourceClient[capi.Domain]
	Routes           capi.ResourceClient[capi.Route]
	ServicePlans     capi.ResourceClient[capi.ServicePlan]
	Applications     capi.ApplicationsClient
	ServiceInstances capi.ServiceInstancesClient
	Builds           capi.BuildsClient
	Packages         capi.PackagesClient
}

// Client implements capi.Client.
type Client struct {
	version capi.APIVersion
	set     Set
}

var _ capi.Client = (*Client)(nil)

// New returns the facade over set. Missing build and package clients report
// capi.ErrUnsupportedAPIVersion.
func New(version capi.APIVersion, set Set) *Client {
	if set.Builds == nil {
		set.Builds = UnsupportedBuilds(version)
	}

	if set.Packages == nil {
		set.Packages = UnsupportedPackages(version)
	}

	return &Client{version: version, set: set}
}

func (c *Client) APIVersion() capi.APIVersion {
	return c.version
}

func (c *Client) Organizations() capi.ResourceClient[capi.Organization] {
	return c.set.Organizations
}

func (c *Client) Spaces() capi.ResourceClient[capi.Space] {
	return c.set.Spaces
}

func (c *Client) Stacks() capi.ResourceClient[capi.Stack] {
	return c.set.Stacks
}

func (c *Client) Domains() capi.ResourceClient[capi.Domain] {
	return c.set.Domains
}

func (c *Client) Routes() capi.ResourceClient[capi.Route] {
	return c.set.Routes
}

func (c *Client) ServicePlans() capi.ResourceClient[capi.ServicePlan] {
	return c.set.ServicePlans
}

func (c *Client) Applications() capi.ApplicationsClient {
	return c.set.Applications
}

func (c *Client) ServiceInstances() capi.ServiceInstancesClient {
	return c.set.ServiceInstances
}

func (c *Client) Builds() capi.BuildsClient {
	return c.set.Builds
}

func (c *Client) Packages() capi.PackagesClient {
	return c.set.Packages
}
