// Package cfclient is the entry point for constructing a capi.Client.
//
// New validates the configuration, reads the Cloud Controller root document
// when it needs to, and returns a client bound to one API generation: v3 when
// the root advertises cloud_controller_v3, v2 otherwise. Setting
// Config.APIVersion pins the generation and skips that lookup unless a token
// endpoint still has to be discovered.
//
// Quick start
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
//
//	  // With an access token you already have:
//	  cli, err := cfclient.New(ctx, &capi.Config{
//	    APIEndpoint: "https://api.example.com",
//	    AccessToken: "eyJhbGciOi...",
//	  })
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  // With credentials, the UAA token endpoint is discovered from the root
//	  // document (links.uaa, then links.login) unless TokenURL is set.
//	  cli, err = cfclient.New(ctx, &capi.Config{
//	    APIEndpoint: "https://api.example.com",
//	    Username:    "user",
//	    Password:    "pass",
//	  })
//
//	  apps, err := cli.Applications().List(ctx)
//	  if err != nil { log.Fatal(err) }
//	  for _, app := range apps {
//	    log.Println(app.Name, app.State, app.Stack.Name)
//	  }
//	}
//
// Builds and Packages exist only on v3. On a v2 client their methods return
// capi.ErrUnsupportedAPIVersion.
//
// Connections
//
// Connections caches one client per API host. Concurrent callers asking for
// the same host share a single construction, including its error; Forget
// drops a host so the next Get tries again.
//
// TLS
//
// Config.SkipTLSVerify is refused unless CAPI_DEV_MODE is "true" or "1".
package cfclient
