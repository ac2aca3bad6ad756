package ccbase_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/cfops/internal/ccbase"
	"github.com/fivetwenty-io/cfops/internal/fetch"
	capihttp "github.com/fivetwenty-io/cfops/internal/http"
	"github.com/fivetwenty-io/cfops/internal/retry"
	"github.com/fivetwenty-io/cfops/pkg/capi"
)

type stackResource struct {
	GUID string `json:"guid"`
	Name string `json:"name"`

	bound bool
}

func (s *stackResource) Bind(capi.Logger) {
	s.bound = true
}

func (s *stackResource) Derive() string {
	return s.Name
}

func newConn(t *testing.T, handler http.Handler) *ccbase.Conn {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &ccbase.Conn{
		HTTP:    capihttp.NewClient(server.URL, nil),
		Fetcher: fetch.New(retry.New(capi.RetryPolicy{Attempts: 2, Delay: time.Millisecond})),
		Log:     capi.NopLogger{},
	}
}

func TestResourcePath(t *testing.T) {
	assert.Equal(t, "/v3/stacks/abc", ccbase.ResourcePath("/v3/stacks", "abc"))
	assert.Equal(t, "/v3/stacks/a%2Fb", ccbase.ResourcePath("/v3/stacks", "a/b"))
}

func TestAuxByGUID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v3/stacks/present", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"guid":"present","name":"cflinuxfs4"}`))
	})

	conn := newConn(t, mux)

	stack, err := ccbase.AuxByGUID[stackResource](t.Context(), conn, "/v3/stacks", "present")
	require.NoError(t, err)
	require.NotNil(t, stack)
	assert.Equal(t, "cflinuxfs4", stack.Name)
	assert.True(t, stack.bound)

	stack, err = ccbase.AuxByGUID[stackResource](t.Context(), conn, "/v3/stacks", "gone")
	require.NoError(t, err)
	assert.Nil(t, stack)

	stack, err = ccbase.AuxByGUID[stackResource](t.Context(), conn, "/v3/stacks", "")
	require.NoError(t, err)
	assert.Nil(t, stack)
}

func TestAuxJSON_Missing(t *testing.T) {
	conn := newConn(t, http.NotFoundHandler())

	var doc map[string]interface{}

	found, err := conn.AuxJSON(t.Context(), "/v2/apps/web/summary", &doc)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestEndpoint(t *testing.T) {
	var queries []url.Values

	list := func(path string, query url.Values) fetch.PageFunc[*stackResource] {
		return func(context.Context, string) (fetch.Page[*stackResource], error) {
			queries = append(queries, query)

			return fetch.Page[*stackResource]{Resources: []*stackResource{{GUID: "s1", Name: "cflinuxfs4"}}}, nil
		}
	}

	resource := ccbase.Endpoint[stackResource](&ccbase.Conn{}, "stack", "/v3/stacks", list,
		func(name string) url.Values { return url.Values{"names": {name}} },
		fetch.Direct[string, *stackResource]())

	assert.Equal(t, "stack", resource.Kind)

	_, err := resource.ByName("cflinuxfs4")(t.Context(), "")
	require.NoError(t, err)

	_, err = resource.All(t.Context(), "")
	require.NoError(t, err)

	assert.Equal(t, []url.Values{{"names": {"cflinuxfs4"}}, nil}, queries)
}
