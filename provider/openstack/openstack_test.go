package openstack_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/func/seeder/provider/openstack"
	"github.com/func/seeder/resource"
	"github.com/gophercloud/gophercloud/v2"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	"go.uber.org/zap/zaptest"
)

// serviceTypes maps service names to the catalog types gophercloud may look
// up for them.
var serviceTypes = map[string][]string{
	"identity":  {"identity"},
	"compute":   {"compute"},
	"network":   {"network"},
	"dns":       {"dns"},
	"placement": {"placement"},
	"sharev2":   {"sharev2", "shared-file-system", "share"},
	"volumev3":  {"volumev3", "block-storage", "volume", "block-store"},
}

var servicePaths = map[string]string{
	"identity":  "/identity/v3/",
	"compute":   "/compute/v2.1/",
	"network":   "/network/",
	"dns":       "/dns/",
	"placement": "/placement/",
	"sharev2":   "/share/v2/",
	"volumev3":  "/volume/v3/",
}

// newClients returns clients for a cloud served by mux. Only the listed
// services are in the catalog.
func newClients(t *testing.T, mux http.Handler, catalog ...string) *openstack.Clients {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	endpoints := make(map[string]string)
	for _, name := range catalog {
		for _, typ := range serviceTypes[name] {
			endpoints[typ] = srv.URL + servicePaths[name]
		}
	}
	pc := &gophercloud.ProviderClient{
		HTTPClient: *srv.Client(),
		EndpointLocator: func(eo gophercloud.EndpointOpts) (string, error) {
			if url, ok := endpoints[eo.Type]; ok {
				return url, nil
			}
			return "", &gophercloud.ErrEndpointNotFound{}
		},
	}
	return &openstack.Clients{
		Session:  openstack.ProviderSession(pc),
		Services: fastServices(),
		Logger:   zaptest.NewLogger(t),
	}
}

func fastServices() []*openstack.Service {
	out := make([]*openstack.Service, 0, len(openstack.DefaultServices))
	for _, s := range openstack.DefaultServices {
		cp := *s
		cp.Policy.BaseDelay = time.Millisecond
		cp.Policy.MaxDelay = time.Millisecond
		cp.Rate = 0
		out = append(out, &cp)
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func readJSON(t *testing.T, r *http.Request) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Errorf("Decode request body: %v", err)
	}
	return body
}

// desired checks raw items against the built-in kinds.
func desired(t *testing.T, c *openstack.Clients, raws ...resource.RawItem) resource.Desired {
	t.Helper()
	reg := resource.NewRegistry(openstack.Kinds(c)...)
	d, err := reg.Desired(raws)
	require.NoError(t, err)
	return d
}

func raw(kind string, kv ...interface{}) resource.RawItem {
	fields := make(map[string]cty.Value)
	for i := 0; i < len(kv); i += 2 {
		switch v := kv[i+1].(type) {
		case cty.Value:
			fields[kv[i].(string)] = v
		default:
			fields[kv[i].(string)] = cty.StringVal(v.(string))
		}
	}
	return resource.RawItem{Kind: kind, Fields: fields}
}

func TestClients_Check(t *testing.T) {
	c := newClients(t, http.NewServeMux(), "identity")

	err := c.Check(context.Background(), "dns")
	require.True(t, errors.Is(err, resource.ErrSkipped), "optional service: %v", err)

	err = c.Check(context.Background(), "compute")
	require.Error(t, err)
	require.Equal(t, resource.ServiceUnavailable, resource.ClassOf(err))
	require.Contains(t, err.Error(), "no compute endpoint")

	err = c.Check(context.Background(), "nope")
	require.Equal(t, resource.ServiceUnavailable, resource.ClassOf(err))

	require.NoError(t, c.Check(context.Background(), "identity"))
	require.True(t, c.Concurrent("identity"))
	require.False(t, c.Concurrent("placement"))
}

func TestClients_Microversion(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    interface{}
		want    string
		wantErr resource.Class
	}{
		{
			name:   "Single",
			status: http.StatusOK,
			body: map[string]interface{}{
				"version": map[string]string{"id": "v2.1", "status": "CURRENT", "min_version": "2.1", "version": "2.79"},
			},
			want: "2.61",
		},
		{
			name:   "List",
			status: http.StatusMultipleChoices,
			body: map[string]interface{}{
				"versions": []map[string]string{
					{"id": "v2.0", "status": "SUPPORTED"},
					{"id": "v2.1", "status": "CURRENT", "min_version": "2.1", "version": "2.50"},
				},
			},
			want: "2.50",
		},
		{
			name:   "NoRange",
			status: http.StatusOK,
			body:   map[string]interface{}{"version": map[string]string{"id": "v2.1"}},
			want:   "2.1",
		},
		{
			name:   "NotFound",
			status: http.StatusNotFound,
			body:   map[string]string{},
			want:   "2.1",
		},
		{
			name:   "Incompatible",
			status: http.StatusOK,
			body: map[string]interface{}{
				"version": map[string]string{"id": "v2.1", "min_version": "2.70", "version": "2.90"},
			},
			wantErr: resource.VersionIncompatible,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /compute/v2.1/{$}", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			c := newClients(t, mux, "identity", "compute")

			got, err := c.Microversion(context.Background(), "compute")
			if tt.wantErr != resource.ClassNone {
				require.Error(t, err)
				require.Equal(t, tt.wantErr, resource.ClassOf(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

// projects is a fake keystone project API.
type projects struct {
	mu   sync.Mutex
	byID map[string]map[string]interface{}
}

func (p *projects) handler(t *testing.T) http.Handler {
	p.byID = make(map[string]map[string]interface{})
	mux := http.NewServeMux()
	mux.HandleFunc("/identity/v3/projects", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			q := r.URL.Query()
			list := []map[string]interface{}{}
			for _, proj := range p.byID {
				if n := q.Get("name"); n != "" && proj["name"] != n {
					continue
				}
				if tag := q.Get("tags"); tag != "" && !hasTag(proj, tag) {
					continue
				}
				list = append(list, proj)
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{"projects": list})
		case http.MethodPost:
			proj := readJSON(t, r)["project"].(map[string]interface{})
			proj["id"] = "p" + strconv.Itoa(len(p.byID)+1)
			p.byID[proj["id"].(string)] = proj
			writeJSON(w, http.StatusCreated, map[string]interface{}{"project": proj})
		}
	})
	mux.HandleFunc("/identity/v3/projects/{id}", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()
		proj, ok := p.byID[r.PathValue("id")]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": map[string]string{"message": "not found"}})
			return
		}
		switch r.Method {
		case http.MethodPatch:
			for k, v := range readJSON(t, r)["project"].(map[string]interface{}) {
				proj[k] = v
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{"project": proj})
		case http.MethodDelete:
			delete(p.byID, r.PathValue("id"))
			w.WriteHeader(http.StatusNoContent)
		}
	})
	return mux
}

func (p *projects) get(id string) map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.byID[id]
}

func (p *projects) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byID)
}

func hasTag(proj map[string]interface{}, tag string) bool {
	tags, _ := proj["tags"].([]interface{})
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func TestProject(t *testing.T) {
	api := &projects{}
	c := newClients(t, api.handler(t), "identity")

	d := desired(t, c, raw("project",
		"name", "ops",
		"description", "Operations",
		"tags", cty.SetVal([]cty.Value{cty.StringVal("team")}),
	))
	item := d["project"][0].WithIDs(map[string]string{"domain": "default"})
	require.Equal(t, resource.Key{"Default", "ops"}, item.Key())
	drv := item.Kind.Driver
	pruner, ok := item.Kind.Pruner()
	require.True(t, ok)

	got, err := drv.Find(context.Background(), item)
	require.NoError(t, err)
	require.Nil(t, got)

	created, err := drv.Create(context.Background(), item)
	require.NoError(t, err)
	require.Equal(t, "p1", created.ID)
	require.True(t, created.Seeded)
	require.True(t, resource.Diff(item, created).Empty(), "diff after create: %v", resource.Diff(item, created))
	require.ElementsMatch(t, []interface{}{"team", openstack.SeedTag}, api.get("p1")["tags"])
	require.Equal(t, "default", api.get("p1")["domain_id"])

	found, err := drv.Find(context.Background(), item)
	require.NoError(t, err)
	require.Equal(t, "p1", found.ID)
	require.True(t, resource.Diff(item, found).Empty())

	d = desired(t, c, raw("project", "name", "ops", "description", "Ops team"))
	changed := d["project"][0].WithIDs(map[string]string{"domain": "default"})
	delta := resource.Diff(changed, found)
	require.Equal(t, []string{"description"}, delta.Fields())
	updated, err := drv.Update(context.Background(), found, delta, changed)
	require.NoError(t, err)
	require.Equal(t, "Ops team", api.get("p1")["description"])
	require.True(t, resource.Diff(changed, updated).Empty())

	seeded, err := pruner.ListSeeded(context.Background())
	require.NoError(t, err)
	require.Len(t, seeded, 1)
	require.Equal(t, resource.Key{"default", "ops"}, seeded[0].Key)

	require.NoError(t, pruner.Delete(context.Background(), seeded[0]))
	require.Zero(t, api.len())
	// Deleting a missing project is not an error.
	require.NoError(t, pruner.Delete(context.Background(), seeded[0]))
}

func TestDomain_transient(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("GET /identity/v3/domains", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls < 3 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "try later"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"domains": []map[string]interface{}{{"id": "default", "name": "Default", "enabled": true}},
		})
	})
	c := newClients(t, mux, "identity")

	d := desired(t, c, raw("domain", "name", "Default", "enabled", "true"))
	item := d["domain"][0]
	got, err := item.Kind.Driver.Find(context.Background(), item)
	require.NoError(t, err)
	require.Equal(t, "default", got.ID)
	require.True(t, resource.Diff(item, got).Empty())
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 3, calls)
}

func TestDomain_ambiguous(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /identity/v3/domains", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"domains": []map[string]interface{}{{"id": "a", "name": "ops"}, {"id": "b", "name": "ops"}},
		})
	})
	c := newClients(t, mux, "identity")

	item := desired(t, c, raw("domain", "name", "ops"))["domain"][0]
	_, err := item.Kind.Driver.Find(context.Background(), item)
	require.Error(t, err)
	require.Equal(t, resource.AmbiguousRemote, resource.ClassOf(err))
}

func TestRoleAssignment(t *testing.T) {
	var mu sync.Mutex
	assigned := map[string]bool{}
	mux := http.NewServeMux()
	mux.HandleFunc("/identity/v3/projects/{project}/users/{user}/roles/{role}", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.Method {
		case http.MethodHead:
			if !assigned[r.URL.Path] {
				w.WriteHeader(http.StatusNotFound)
				return
			}
		case http.MethodPut:
			assigned[r.URL.Path] = true
		}
		w.WriteHeader(http.StatusNoContent)
	})
	c := newClients(t, mux, "identity")

	item := desired(t, c, raw("role_assignment", "role", "admin", "user", "bob", "project", "ops"))["role_assignment"][0]
	item = item.WithIDs(map[string]string{"role": "r1", "user": "u1", "project": "p1"})
	drv := item.Kind.Driver

	got, err := drv.Find(context.Background(), item)
	require.NoError(t, err)
	require.Nil(t, got)

	created, err := drv.Create(context.Background(), item)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(created.ID, "/projects/p1/users/u1/roles/r1"), created.ID)

	found, err := drv.Find(context.Background(), item)
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)
	require.True(t, resource.Diff(item, found).Empty())
}

func TestRoleAssignment_validate(t *testing.T) {
	c := newClients(t, http.NewServeMux(), "identity")
	reg := resource.NewRegistry(openstack.Kinds(c)...)

	tests := []struct {
		name string
		raw  resource.RawItem
		want string
	}{
		{"TwoActors", raw("role_assignment", "role", "admin", "user", "bob", "group", "ops", "project", "ops"), "exactly one of user or group"},
		{"NoTarget", raw("role_assignment", "role", "admin", "user", "bob"), "exactly one of project or domain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Desired([]resource.RawItem{tt.raw})
			require.Error(t, err)
			require.Equal(t, resource.InvalidValue, resource.ClassOf(err))
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFlavor(t *testing.T) {
	var mu sync.Mutex
	var headers []string
	specs := map[string]string{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /compute/v2.1/{$}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"version": map[string]string{"id": "v2.1", "min_version": "2.1", "version": "2.79"},
		})
	})
	mux.HandleFunc("POST /compute/v2.1/flavors", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		headers = append(headers, r.Header.Get("X-OpenStack-Nova-API-Version"))
		mu.Unlock()
		f := readJSON(t, r)["flavor"].(map[string]interface{})
		f["id"] = "f1"
		f["swap"] = ""
		writeJSON(w, http.StatusOK, map[string]interface{}{"flavor": f})
	})
	mux.HandleFunc("/compute/v2.1/flavors/f1/os-extra_specs", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if r.Method == http.MethodPost {
			for k, v := range readJSON(t, r)["extra_specs"].(map[string]interface{}) {
				specs[k] = v.(string)
			}
		}
		out := map[string]string{"hw:unmanaged": "yes"}
		for k, v := range specs {
			out[k] = v
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"extra_specs": out})
	})
	c := newClients(t, mux, "identity", "compute")

	item := desired(t, c, raw("flavor",
		"name", "m1.small",
		"ram", "2048",
		"vcpus", "1",
		"description", "Small",
		"extra_specs", cty.MapVal(map[string]cty.Value{"hw:cpu_policy": cty.StringVal("dedicated")}),
	))["flavor"][0]

	created, err := item.Kind.Driver.Create(context.Background(), item)
	require.NoError(t, err)
	require.Equal(t, "f1", created.ID)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"2.61"}, headers)
	require.Equal(t, map[string]string{"hw:cpu_policy": "dedicated"}, specs)
	delta := resource.Diff(item, created)
	require.True(t, delta.Empty(), "diff after create: %v", delta.Fields())
}

func TestFlavor_descriptionNeedsMicroversion(t *testing.T) {
	var posted atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("GET /compute/v2.1/{$}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{})
	})
	mux.HandleFunc("POST /compute/v2.1/flavors", func(w http.ResponseWriter, r *http.Request) {
		posted.Store(true)
		writeJSON(w, http.StatusOK, map[string]interface{}{"flavor": map[string]string{"id": "f1"}})
	})
	c := newClients(t, mux, "identity", "compute")

	item := desired(t, c, raw("flavor", "name", "m1.small", "ram", "2048", "vcpus", "1", "description", "Small"))["flavor"][0]
	_, err := item.Kind.Driver.Create(context.Background(), item)
	require.Error(t, err)
	require.Equal(t, resource.VersionIncompatible, resource.ClassOf(err))
	require.False(t, posted.Load())
}

func TestZone_optional(t *testing.T) {
	c := newClients(t, http.NewServeMux(), "identity")

	item := desired(t, c, raw("dns_zone", "name", "example.com", "email", "ops@example.com"))["dns_zone"][0]
	_, err := item.Kind.Driver.Find(context.Background(), item)
	require.True(t, errors.Is(err, resource.ErrSkipped), "got %v", err)
}

func TestZone(t *testing.T) {
	var (
		mu    sync.Mutex
		query string
	)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /dns/v2/zones", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		query = r.URL.Query().Get("name")
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"zones": []map[string]interface{}{{"id": "z1", "name": "example.com.", "email": "ops@example.com", "ttl": 3600, "type": "PRIMARY"}},
		})
	})
	c := newClients(t, mux, "identity", "dns")

	item := desired(t, c, raw("dns_zone", "name", "example.com", "email", "ops@example.com", "ttl", "3600"))["dns_zone"][0]
	got, err := item.Kind.Driver.Find(context.Background(), item)
	require.NoError(t, err)
	mu.Lock()
	require.Equal(t, "example.com.", query)
	mu.Unlock()
	require.Equal(t, "z1", got.ID)
	require.True(t, resource.Diff(item, got).Empty())
}

func TestKinds(t *testing.T) {
	c := &openstack.Clients{}
	reg := resource.NewRegistry(openstack.Kinds(c)...)
	want := []string{
		"dns_zone", "domain", "flavor", "group", "network", "project", "region",
		"resource_provider", "role", "role_assignment", "share_type", "user", "volume_type",
	}
	require.ElementsMatch(t, want, reg.Names())
	for _, k := range reg.Kinds() {
		require.NotNil(t, k.Driver, k.Name)
		require.NotEmpty(t, k.KeyFields(), k.Name)
	}
	for _, name := range []string{"project", "network"} {
		_, ok := reg.Kind(name).Pruner()
		require.True(t, ok, name)
	}
}
