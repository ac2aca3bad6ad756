package ccv3

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/cfops/internal/fetch"
	capihttp "github.com/fivetwenty-io/cfops/internal/http"
	"github.com/fivetwenty-io/cfops/internal/retry"
	"github.com/fivetwenty-io/cfops/pkg/capi"
)

const (
	appGUID      = "6f0b8b36-4d9f-4c2c-9d6e-3b5f0e1c2a01"
	spaceGUID    = "a1d2c3b4-1111-4c2c-9d6e-3b5f0e1c2a02"
	orgGUID      = "b2e3d4c5-2222-4c2c-9d6e-3b5f0e1c2a03"
	stackGUID    = "c3f4e5d6-3333-4c2c-9d6e-3b5f0e1c2a04"
	domainGUID   = "d4a5f6e7-4444-4c2c-9d6e-3b5f0e1c2a05"
	planGUID     = "e5b6a7f8-5555-4c2c-9d6e-3b5f0e1c2a06"
	offeringGUID = "f6c7b8a9-6666-4c2c-9d6e-3b5f0e1c2a07"
	instanceGUID = "07d8c9ba-7777-4c2c-9d6e-3b5f0e1c2a08"
	packageGUID  = "18e9dacb-8888-4c2c-9d6e-3b5f0e1c2a09"
	buildGUID    = "29fa0bdc-9999-4c2c-9d6e-3b5f0e1c2a10"
)

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func list(resources ...string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"pagination": map[string]interface{}{"total_results": len(resources), "next": nil},
		"resources":  json.RawMessage("[" + join(resources) + "]"),
	})

	return string(body)
}

func join(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}

		out += p
	}

	return out
}

func newTestBackend(t *testing.T, handler http.Handler) *Backend {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	r := retry.New(capi.RetryPolicy{Attempts: 3, Delay: time.Millisecond})

	return New(capihttp.NewClient(server.URL, nil), fetch.New(r), WithJobPolling(time.Millisecond, time.Second))
}

func spaceAndOrg(mux *http.ServeMux) {
	mux.HandleFunc("GET /v3/spaces/"+spaceGUID, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"guid":"`+spaceGUID+`","name":"dev","relationships":{"organization":{"data":{"guid":"`+orgGUID+`"}}}}`)
	})
	mux.HandleFunc("GET /v3/organizations/"+orgGUID, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"guid":"`+orgGUID+`","name":"acme","suspended":false}`)
	})
}

func appJSON(guid, name, state, stack, space string) string {
	return fmt.Sprintf(`{"guid":%q,"created_at":"2019-07-03T20:00:46Z","updated_at":"2019-07-03T20:00:46+0000",`+
		`"name":%q,"state":%q,"lifecycle":{"type":"buildpack","data":{"buildpacks":["ruby_buildpack"],"stack":%q}},`+
		`"relationships":{"space":{"data":{"guid":%q}}},"links":{"self":{"href":"https://api.example.com/v3/apps/%s"}}}`,
		guid, name, state, stack, space, guid)
}

func stackJSON() string {
	return `{"guid":"` + stackGUID + `","name":"cflinuxfs4","description":"Cloud Foundry Linux-based filesystem"}`
}

func idOf(s string) *uuid.UUID {
	id := uuid.MustParse(s)

	return &id
}

func TestApplications_GetJoinsAuxiliaryContent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v3/apps", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "web", r.URL.Query().Get("names"))
		writeJSON(w, http.StatusOK, list(appJSON(appGUID, "web", "STARTED", "cflinuxfs4", spaceGUID)))
	})
	mux.HandleFunc("GET /v3/apps/"+appGUID+"/processes/web", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"guid":"proc","type":"web","instances":2,"memory_in_mb":256,"disk_in_mb":1024}`)
	})
	mux.HandleFunc("GET /v3/apps/"+appGUID+"/processes/web/stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"resources":[{"state":"RUNNING"},{"state":"CRASHED"}]}`)
	})
	mux.HandleFunc("GET /v3/apps/"+appGUID+"/environment_variables", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"var":{"RAILS_ENV":"production"}}`)
	})
	mux.HandleFunc("GET /v3/apps/"+appGUID+"/routes", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, list(`{"guid":"r1","url":"web.example.com"}`))
	})
	mux.HandleFunc("GET /v3/stacks", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cflinuxfs4", r.URL.Query().Get("names"))
		writeJSON(w, http.StatusOK, list(stackJSON()))
	})
	spaceAndOrg(mux)

	b := newTestBackend(t, mux)

	app, err := b.Client().Applications().Get(t.Context(), "web")
	require.NoError(t, err)

	created := time.Date(2019, 7, 3, 20, 0, 46, 0, time.UTC)
	running := 1
	want := &capi.Application{
		Metadata: capi.Metadata{
			ID:        idOf(appGUID),
			CreatedAt: &created,
			UpdatedAt: &created,
			URL:       "https://api.example.com/v3/apps/" + appGUID,
		},
		Name:             "web",
		State:            capi.ApplicationStarted,
		Instances:        2,
		RunningInstances: &running,
		MemoryMB:         256,
		DiskMB:           1024,
		Buildpacks:       []string{"ruby_buildpack"},
		Environment:      map[string]string{"RAILS_ENV": "production"},
		URLs:             []string{"web.example.com"},
		Stack: &capi.Stack{
			Metadata:    capi.Metadata{ID: idOf(stackGUID)},
			Name:        "cflinuxfs4",
			Description: "Cloud Foundry Linux-based filesystem",
		},
		Space: &capi.Space{
			Metadata:     capi.Metadata{ID: idOf(spaceGUID)},
			Name:         "dev",
			Organization: &capi.Organization{Metadata: capi.Metadata{ID: idOf(orgGUID)}, Name: "acme"},
		},
	}

	if diff := cmp.Diff(want, app); diff != "" {
		t.Errorf("application mismatch (-want +got):\n%s", diff)
	}
}

func TestApplications_ListFollowsPagination(t *testing.T) {
	sizes := []int{50, 50, 12}

	var stackCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v3/apps", func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if p := r.URL.Query().Get("page"); p != "" {
			page, _ = strconv.Atoi(p)
		}

		offset := 0
		for _, size := range sizes[:page-1] {
			offset += size
		}

		resources := make([]string, 0, sizes[page-1])
		for i := range sizes[page-1] {
			n := offset + i
			resources = append(resources, appJSON(fmt.Sprintf("00000000-0000-4000-8000-%012d", n), fmt.Sprintf("app-%03d", n), "STOPPED", "cflinuxfs4", ""))
		}

		next := interface{}(nil)
		if page < len(sizes) {
			next = map[string]string{"href": fmt.Sprintf("http://%s/v3/apps?page=%d&per_page=50", r.Host, page+1)}
		}

		body, _ := json.Marshal(map[string]interface{}{
			"pagination": map[string]interface{}{"total_results": 112, "total_pages": 3, "next": next},
			"resources":  json.RawMessage("[" + join(resources) + "]"),
		})
		writeJSON(w, http.StatusOK, string(body))
	})
	mux.HandleFunc("GET /v3/stacks", func(w http.ResponseWriter, _ *http.Request) {
		stackCalls.Add(1)
		writeJSON(w, http.StatusOK, list(stackJSON()))
	})

	b := newTestBackend(t, mux)

	apps, err := b.Client().Applications().List(t.Context())
	require.NoError(t, err)
	require.Len(t, apps, 112)

	for i, app := range apps {
		assert.Equal(t, fmt.Sprintf("app-%03d", i), app.Name)
		require.NotNil(t, app.Stack)
		assert.Equal(t, "cflinuxfs4", app.Stack.Name)
		assert.Nil(t, app.Space)
		assert.Nil(t, app.RunningInstances)
	}

	assert.Equal(t, int32(112), stackCalls.Load())
}

func TestApplications_DeriveIsRepeatable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v3/stacks", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, list(stackJSON()))
	})
	spaceAndOrg(mux)

	b := newTestBackend(t, mux)

	var raw appResource
	require.NoError(t, json.Unmarshal([]byte(appJSON(appGUID, "web", "started", "cflinuxfs4", spaceGUID)), &raw))
	raw.Bind(b.Log)

	d, err := b.joinApplication(t.Context(), &raw)
	require.NoError(t, err)

	first, second := d.Derive(), d.Derive()
	assert.Empty(t, cmp.Diff(first, second))
	assert.NotSame(t, first, second)
	assert.NotSame(t, first.Space, second.Space)
	assert.Equal(t, capi.ApplicationStarted, first.State)
}

func TestApplications_IncompatibleStateSurfaces(t *testing.T) {
	var calls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v3/apps", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, list(appJSON(appGUID, "web", "CRASHED", "", "")))
	})

	b := newTestBackend(t, mux)

	_, err := b.Client().Applications().Get(t.Context(), "web")
	require.ErrorIs(t, err, capi.ErrIncompatibleSchema)
	assert.Equal(t, int32(1), calls.Load())
}

func TestApplications_MalformedMetadataDegrades(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v3/organizations/not-a-guid", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"guid":"not-a-guid","created_at":"yesterday","name":"acme"}`)
	})

	b := newTestBackend(t, mux)

	org, err := b.Client().Organizations().GetByGUID(t.Context(), "not-a-guid")
	require.NoError(t, err)
	assert.Nil(t, org.ID)
	assert.Nil(t, org.CreatedAt)
	assert.Equal(t, "acme", org.Name)
}

func TestOrganizations_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v3/organizations/"+orgGUID, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"errors":[{"code":10010,"title":"CF-ResourceNotFound","detail":"Organization not found"}]}`)
	})
	mux.HandleFunc("GET /v3/organizations", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, list())
	})

	b := newTestBackend(t, mux)
	orgs := b.Client().Organizations()

	_, err := orgs.GetByGUID(t.Context(), orgGUID)
	require.Error(t, err)

	var nf *capi.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "organization", nf.Kind)
	assert.True(t, capi.IsNotFound(err))

	_, err = orgs.Get(t.Context(), "missing")
	require.ErrorIs(t, err, capi.ErrResourceNotFound)

	org, err := orgs.Lookup(t.Context(), "missing", false)
	require.NoError(t, err)
	assert.Nil(t, org)

	all, err := orgs.List(t.Context())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestApplications_Start(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v3/apps/"+appGUID+"/actions/start", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, appJSON(appGUID, "web", "STARTED", "", ""))
	})

	b := newTestBackend(t, mux)

	app, err := b.Client().Applications().Start(t.Context(), appGUID)
	require.NoError(t, err)
	assert.Equal(t, capi.ApplicationStarted, app.State)
	assert.Nil(t, app.Stack)
}

func TestApplications_DeletePollsJob(t *testing.T) {
	var polls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /v3/apps/"+appGUID, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "http://"+r.Host+"/v3/jobs/job-1")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /v3/jobs/job-1", func(w http.ResponseWriter, _ *http.Request) {
		state := "PROCESSING"
		if polls.Add(1) > 1 {
			state = "COMPLETE"
		}

		writeJSON(w, http.StatusOK, `{"guid":"job-1","operation":"app.delete","state":"`+state+`","errors":[]}`)
	})

	b := newTestBackend(t, mux)

	require.NoError(t, b.Client().Applications().Delete(t.Context(), appGUID))
	assert.Equal(t, int32(2), polls.Load())
}

func TestApplications_DeleteMissingSucceeds(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /v3/apps/"+appGUID, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"errors":[{"code":10010,"title":"CF-ResourceNotFound","detail":"App not found"}]}`)
	})

	b := newTestBackend(t, mux)

	require.NoError(t, b.Client().Applications().Delete(t.Context(), appGUID))
}

func TestServiceInstances_DeleteFailedJob(t *testing.T) {
	var deletes atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /v3/service_instances/"+instanceGUID, func(w http.ResponseWriter, r *http.Request) {
		deletes.Add(1)
		w.Header().Set("Location", "http://"+r.Host+"/v3/jobs/job-2")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /v3/jobs/job-2", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"guid":"job-2","operation":"service_instance.delete","state":"FAILED",`+
			`"errors":[{"code":10001,"title":"CF-ServiceBrokerUnavailable","detail":"broker unavailable"}]}`)
	})

	b := newTestBackend(t, mux)

	err := b.Client().ServiceInstances().Delete(t.Context(), instanceGUID)
	require.ErrorIs(t, err, capi.ErrJobFailed)
	assert.Contains(t, err.Error(), "broker unavailable")
	assert.Equal(t, int32(1), deletes.Load())
}

func TestServiceInstances_Managed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v3/service_instances/"+instanceGUID, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"guid":"`+instanceGUID+`","name":"db","type":"managed","tags":["sql"],`+
			`"last_operation":{"type":"create","state":"succeeded","description":"done","updated_at":"2020-01-02T03:04:05Z"},`+
			`"relationships":{"service_plan":{"data":{"guid":"`+planGUID+`"}},"space":{"data":{"guid":"`+spaceGUID+`"}}}}`)
	})
	mux.HandleFunc("GET /v3/service_plans/"+planGUID, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"guid":"`+planGUID+`","name":"small","free":true,`+
			`"relationships":{"service_offering":{"data":{"guid":"`+offeringGUID+`"}}}}`)
	})
	mux.HandleFunc("GET /v3/service_offerings/"+offeringGUID, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"guid":"`+offeringGUID+`","name":"postgres"}`)
	})
	spaceAndOrg(mux)

	b := newTestBackend(t, mux)

	si, err := b.Client().ServiceInstances().GetByGUID(t.Context(), instanceGUID)
	require.NoError(t, err)

	assert.Equal(t, capi.ServiceInstanceManaged, si.Type)
	assert.Equal(t, []string{"sql"}, si.Tags)
	require.NotNil(t, si.LastOperation)
	assert.Equal(t, capi.OperationCreate, si.LastOperation.Type)
	assert.Equal(t, capi.OperationSucceeded, si.LastOperation.State)
	require.NotNil(t, si.Plan)
	assert.Equal(t, "small", si.Plan.Name)
	assert.Equal(t, "postgres", si.Plan.Offering)
	require.NotNil(t, si.Space)
	assert.Equal(t, "acme", si.Space.Organization.Name)
}

func TestServiceInstances_UserProvidedSkipsPlan(t *testing.T) {
	var planCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v3/service_instances", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, list(`{"guid":"`+instanceGUID+`","name":"creds","type":"user-provided",`+
			`"relationships":{"space":{"data":{"guid":"`+spaceGUID+`"}}}}`))
	})
	mux.HandleFunc("GET /v3/service_plans/", func(w http.ResponseWriter, _ *http.Request) {
		planCalls.Add(1)
	})
	spaceAndOrg(mux)

	b := newTestBackend(t, mux)

	si, err := b.Client().ServiceInstances().Get(t.Context(), "creds")
	require.NoError(t, err)
	assert.Equal(t, capi.ServiceInstanceUserProvided, si.Type)
	assert.Nil(t, si.Plan)
	assert.Nil(t, si.LastOperation)
	assert.Equal(t, "dev", si.Space.Name)
	assert.Zero(t, planCalls.Load())
}

func TestRoutes_JoinDomainAndSpace(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v3/routes", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "web", r.URL.Query().Get("hosts"))
		writeJSON(w, http.StatusOK, list(`{"guid":"r1","host":"web","path":"/api","port":null,"url":"web.example.com/api",`+
			`"relationships":{"domain":{"data":{"guid":"`+domainGUID+`"}},"space":{"data":{"guid":"`+spaceGUID+`"}}}}`))
	})
	mux.HandleFunc("GET /v3/domains/"+domainGUID, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"guid":"`+domainGUID+`","name":"example.com","internal":false,"relationships":{"organization":{"data":null}}}`)
	})
	spaceAndOrg(mux)

	b := newTestBackend(t, mux)

	route, err := b.Client().Routes().Get(t.Context(), "web")
	require.NoError(t, err)
	assert.Equal(t, "web.example.com/api", route.URL)
	assert.Nil(t, route.Port)
	require.NotNil(t, route.Domain)
	assert.True(t, route.Domain.Shared)
	assert.Equal(t, "dev", route.Space.Name)
}

func TestBuilds_ListForApplication(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v3/builds", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, appGUID, r.URL.Query().Get("app_guids"))
		writeJSON(w, http.StatusOK, list(`{"guid":"`+buildGUID+`","state":"STAGED","error":null,`+
			`"staging_memory_in_mb":1024,"staging_disk_in_mb":4096,"package":{"guid":"`+packageGUID+`"}}`))
	})
	mux.HandleFunc("GET /v3/packages/"+packageGUID, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"guid":"`+packageGUID+`","type":"bits","state":"READY","data":{}}`)
	})

	b := newTestBackend(t, mux)

	builds, err := b.Client().Builds().ListForApplication(t.Context(), appGUID)
	require.NoError(t, err)
	require.Len(t, builds, 1)

	assert.Equal(t, capi.BuildStaged, builds[0].State)
	assert.Equal(t, 1024, builds[0].StagingMemoryMB)
	require.NotNil(t, builds[0].Package)
	assert.Equal(t, capi.PackageBits, builds[0].Package.Type)
	assert.Equal(t, capi.PackageReady, builds[0].Package.State)
}

func TestPollJob_Timeout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v3/jobs/slow", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"guid":"slow","operation":"app.delete","state":"PROCESSING"}`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	b := New(capihttp.NewClient(server.URL, nil), fetch.New(retry.New(capi.RetryPolicy{Attempts: 1})),
		WithJobPolling(5*time.Millisecond, 30*time.Millisecond))

	_, err := b.pollJob(context.Background(), server.URL+"/v3/jobs/slow")
	require.ErrorIs(t, err, capi.ErrJobTimeout)
}

func TestApplications_FailSafeDegradesWithoutNotFound(t *testing.T) {
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		writeJSON(w, http.StatusServiceUnavailable, `{"description":"maintenance"}`)
	}))
	t.Cleanup(server.Close)

	r := retry.New(capi.RetryPolicy{Attempts: 2, Delay: time.Millisecond}).FailSafe()
	apps := New(capihttp.NewClient(server.URL, nil), fetch.New(r)).Client().Applications()

	app, err := apps.Get(t.Context(), "web")
	require.NoError(t, err)
	assert.Nil(t, app)

	app, err = apps.GetByGUID(t.Context(), appGUID)
	require.NoError(t, err)
	assert.Nil(t, app)

	all, err := apps.List(t.Context())
	require.NoError(t, err)
	assert.Nil(t, all)

	assert.Equal(t, int32(6), requests.Load())
}
