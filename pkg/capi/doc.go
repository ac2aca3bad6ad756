// Package capi provides the domain values, interfaces, and error helpers for
// working with a Cloud Foundry Cloud Controller over either API generation.
//
// # Overview
//
// The capi package defines immutable domain values (Application, Space,
// Organization, Route, ServiceInstance, Build, Package, ...) and the Client
// facade that reads them. A concrete implementation is provided by the
// cfclient package, which validates configuration, discovers the API
// generation and the UAA token endpoint, and wires transport, retries and
// caching. Each value is derived from whichever wire generation the
// platform speaks (v2 entity envelopes or v3 flat resources), so callers
// never see the wire format.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/cfops/pkg/capi"
//	  "github.com/fivetwenty-io/cfops/pkg/cfclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := cfclient.New(ctx, &capi.Config{APIEndpoint: "https://api.example.com"})
//	  if err != nil { log.Fatal(err) }
//
//	  // Every page is fetched, and each app's stack and space are joined in.
//	  apps, err := cli.Applications().List(ctx)
//	  if err != nil { log.Fatal(err) }
//	  _ = apps
//	}
//
// # Errors
//
// Non-2xx responses are *ResponseError values carrying the HTTP status and
// the platform errors of either generation. Required lookups that match
// nothing return *NotFoundError. Helpers such as IsNotFound, IsUnauthorized,
// IsForbidden and StatusCode branch on common cases.
//
// # Retries
//
// Every platform call runs under the RetryPolicy in Config: a bounded number
// of attempts with a fixed delay. Client errors other than 408 and 429 are
// not retried. With FailSafe set, an exhausted call yields a zero result and
// an error log instead of an error: nil for a single resource and a nil
// slice for a listing, even when part of it had been received.
package capi
