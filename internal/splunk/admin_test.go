package splunk

import (
	"context"
	"strings"
	"testing"

	"github.com/grandcamel/splunk-as/internal/splunktest"
)

func TestServerInfoAndHealth(t *testing.T) {
	srv := splunktest.New()
	defer srv.Close()

	c := testClient(t, srv, nil)
	ctx := context.Background()

	info, err := c.ServerInfo(ctx)
	if err != nil {
		t.Fatalf("ServerInfo: %v", err)
	}
	if info["version"] != "9.2.1" {
		t.Errorf("version = %v", info["version"])
	}

	health, err := c.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health["health"] != "green" {
		t.Errorf("health = %v", health["health"])
	}
	if _, ok := health["features"].(map[string]any); !ok {
		t.Error("health features missing")
	}
}

func TestListUsers(t *testing.T) {
	srv := splunktest.New()
	defer srv.Close()

	c := testClient(t, srv, nil)
	users, err := c.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if users[0].Name != "admin" || users[0].RealName != "Administrator" {
		t.Errorf("first user = %+v", users[0])
	}
	if len(users[1].Roles) != 2 {
		t.Errorf("analyst roles = %v", users[1].Roles)
	}
}

func TestListRoles(t *testing.T) {
	srv := splunktest.New()
	defer srv.Close()

	c := testClient(t, srv, nil)
	roles, err := c.ListRoles(context.Background())
	if err != nil {
		t.Fatalf("ListRoles: %v", err)
	}
	if len(roles) != 2 {
		t.Fatalf("expected 2 roles, got %d", len(roles))
	}
	if roles[0].Name != "admin" || roles[0].Capabilities != 2 {
		t.Errorf("admin role = %+v", roles[0])
	}
	if len(roles[0].ImportedRoles) != 2 {
		t.Errorf("imported roles = %v", roles[0].ImportedRoles)
	}
}

func TestRestPostFormEncoding(t *testing.T) {
	srv := splunktest.New()
	defer srv.Close()

	c := testClient(t, srv, nil)
	ctx := context.Background()

	// JSON object body.
	if _, err := c.RestPost(ctx, "/server/info", `{"name":"errors","count":5}`); err != nil {
		t.Fatalf("RestPost JSON: %v", err)
	}
	// k=v&k=v body.
	if _, err := c.RestPost(ctx, "/server/info", "name=errors&disabled=1"); err != nil {
		t.Fatalf("RestPost form: %v", err)
	}

	calls := srv.Calls()
	if calls[0].Form["name"] != "errors" || calls[0].Form["count"] != "5" {
		t.Errorf("JSON body not form-encoded: %v", calls[0].Form)
	}
	if calls[1].Form["name"] != "errors" || calls[1].Form["disabled"] != "1" {
		t.Errorf("form body not parsed: %v", calls[1].Form)
	}
}

func TestNamespaceEndpoint(t *testing.T) {
	cases := []struct {
		endpoint, app, owner, want string
	}{
		{"/services/saved/searches", "", "", "/services/saved/searches"},
		{"/services/saved/searches", "search", "", "/servicesNS/-/search/saved/searches"},
		{"/services/saved/searches", "search", "admin", "/servicesNS/admin/search/saved/searches"},
		{"saved/searches", "search", "", "/servicesNS/-/search/saved/searches"},
	}
	for _, tc := range cases {
		if got := NamespaceEndpoint(tc.endpoint, tc.app, tc.owner); got != tc.want {
			t.Errorf("NamespaceEndpoint(%q, %q, %q) = %q, want %q", tc.endpoint, tc.app, tc.owner, got, tc.want)
		}
	}
}

func TestListIndexes(t *testing.T) {
	srv := splunktest.New()
	defer srv.Close()

	c := testClient(t, srv, nil)
	ctx := context.Background()

	indexes, err := c.ListIndexes(ctx, "")
	if err != nil {
		t.Fatalf("ListIndexes: %v", err)
	}
	if len(indexes) != 3 {
		t.Fatalf("expected 3 indexes, got %d", len(indexes))
	}

	filtered, err := c.ListIndexes(ctx, "METRICS")
	if err != nil {
		t.Fatalf("ListIndexes filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Name != "metrics_main" {
		t.Errorf("filter result = %v", filtered)
	}
}

func TestGetIndex(t *testing.T) {
	srv := splunktest.New()
	defer srv.Close()

	c := testClient(t, srv, nil)
	index, err := c.GetIndex(context.Background(), "main")
	if err != nil {
		t.Fatalf("GetIndex: %v", err)
	}
	if index.DataType != "event" {
		t.Errorf("datatype = %q", index.DataType)
	}
	if index.TotalEventCount != 12345 {
		t.Errorf("event count = %d", index.TotalEventCount)
	}

	if _, err := c.GetIndex(context.Background(), "missing"); ErrorKind(err) != KindNotFound {
		t.Errorf("missing index error = %v", err)
	}
}

func TestMetricsIndexes(t *testing.T) {
	srv := splunktest.New()
	defer srv.Close()

	c := testClient(t, srv, nil)
	indexes, err := c.MetricsIndexes(context.Background())
	if err != nil {
		t.Fatalf("MetricsIndexes: %v", err)
	}
	if len(indexes) != 1 || indexes[0].Name != "metrics_main" {
		t.Errorf("metric indexes = %v", indexes)
	}
}

func TestListMetricsBuildsMcatalog(t *testing.T) {
	srv := splunktest.New()
	defer srv.Close()
	srv.SetOneshotResults([]map[string]any{
		{"metrics": "cpu.percent"},
		{"metrics": "mem.used"},
	})

	c := testClient(t, srv, nil)
	names, err := c.ListMetrics(context.Background(), "metrics_main")
	if err != nil {
		t.Fatalf("ListMetrics: %v", err)
	}
	if len(names) != 2 || names[0] != "cpu.percent" {
		t.Errorf("metric names = %v", names)
	}

	calls := srv.Calls()
	search := calls[len(calls)-1].Form["search"]
	if !strings.Contains(search, "mcatalog") || !strings.Contains(search, "index=metrics_main") {
		t.Errorf("dispatched SPL = %q", search)
	}
}

func TestMStatsBuildsQuery(t *testing.T) {
	srv := splunktest.New()
	defer srv.Close()
	srv.SetOneshotResults([]map[string]any{{"_time": "2024-01-15T08:00:00", "value": "42.5"}})

	c := testClient(t, srv, nil)
	results, err := c.MStats(context.Background(), "cpu.percent", MStatsOptions{
		Index:   "metrics_main",
		Agg:     "max",
		Span:    "5m",
		SplitBy: "host",
	})
	if err != nil {
		t.Fatalf("MStats: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %v", results)
	}

	calls := srv.Calls()
	search := calls[len(calls)-1].Form["search"]
	for _, fragment := range []string{"| mstats max(cpu.percent) as value", "WHERE index=metrics_main", "BY host", "span=5m"} {
		if !strings.Contains(search, fragment) {
			t.Errorf("SPL %q missing %q", search, fragment)
		}
	}
}

func TestSourcetypesBuildsMetadataQuery(t *testing.T) {
	srv := splunktest.New()
	defer srv.Close()
	srv.SetOneshotResults([]map[string]any{{"sourcetype": "access_combined", "totalCount": "9000"}})

	c := testClient(t, srv, nil)
	results, err := c.Sourcetypes(context.Background(), "main")
	if err != nil {
		t.Fatalf("Sourcetypes: %v", err)
	}
	if len(results) != 1 || results[0]["sourcetype"] != "access_combined" {
		t.Errorf("results = %v", results)
	}

	calls := srv.Calls()
	search := calls[len(calls)-1].Form["search"]
	if !strings.Contains(search, "| metadata type=sourcetypes index=main") {
		t.Errorf("SPL = %q", search)
	}
}

func TestResultsPagination(t *testing.T) {
	srv := splunktest.New()
	defer srv.Close()
	srv.AddJob(&splunktest.Job{
		SID:           "res.1",
		DispatchState: "DONE",
		Results:       []map[string]any{{"host": "web1"}, {"host": "web2"}},
	})

	c := testClient(t, srv, nil)
	results, err := c.Results(context.Background(), "res.1", ResultsOptions{
		Count:  100,
		Offset: 10,
		Fields: []string{"host", "status"},
	})
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %v", results)
	}

	calls := srv.Calls()
	form := calls[len(calls)-1].Form
	if form["count"] != "100" || form["offset"] != "10" {
		t.Errorf("pagination params = %v", form)
	}
	if form["field_list"] != "host,status" {
		t.Errorf("field_list = %q", form["field_list"])
	}
}
