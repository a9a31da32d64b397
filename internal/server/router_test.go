package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/maruel/notedb/internal/markdown"
	"github.com/maruel/notedb/internal/server/handlers"
	"github.com/maruel/notedb/internal/sharing"
	"github.com/maruel/notedb/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	svc := &handlers.Services{
		Hierarchy:  storage.NewHierarchyService(store, nil),
		Completion: storage.NewCompletionService(store, nil),
		Calendar:   storage.NewCalendarService(store),
		Sharing:    sharing.NewManager([]byte("test-secret")),
		Markdown:   markdown.NewRenderer(),
		Store:      store,
	}
	srv := httptest.NewServer(NewRouter(svc, nil))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func TestHealthAndSchema(t *testing.T) {
	srv := newTestServer(t)

	var health handlers.HealthResponse
	if code := doJSON(t, "GET", srv.URL+"/api/health", nil, &health); code != 200 || health.Status != "ok" {
		t.Fatalf("health = %d %+v", code, health)
	}

	var schema handlers.SchemaResponse
	if code := doJSON(t, "GET", srv.URL+"/api/schema", nil, &schema); code != 200 {
		t.Fatalf("schema status = %d", code)
	}
	for _, table := range []string{"pages", "databases", "blocks", "completion_logs"} {
		if len(schema.Tables[table]) == 0 {
			t.Fatalf("schema missing table %s: %+v", table, schema.Tables)
		}
	}
}

func TestPageLifecycle(t *testing.T) {
	srv := newTestServer(t)

	var created handlers.PageResponse
	code := doJSON(t, "POST", srv.URL+"/api/pages", map[string]any{
		"title": "My page",
		"properties": map[string]any{
			"notes": map[string]any{
				"id": "notes", "name": "Notes", "type": "rich_text",
				"rich_text_content": "# Hello",
			},
		},
	}, &created)
	if code != 200 {
		t.Fatalf("create = %d", code)
	}
	if created.Page.Title != "My page" {
		t.Fatalf("created = %+v", created.Page)
	}
	if created.Rendered["notes"] == "" {
		t.Fatal("rich text not rendered")
	}

	id := created.Page.ID.String()
	var got handlers.PageResponse
	if code := doJSON(t, "GET", srv.URL+"/api/pages/"+id, nil, &got); code != 200 {
		t.Fatalf("get = %d", code)
	}

	var updated handlers.PageResponse
	code = doJSON(t, "PUT", srv.URL+"/api/pages/"+id, map[string]any{"title": "Renamed"}, &updated)
	if code != 200 || updated.Page.Title != "Renamed" {
		t.Fatalf("update = %d %+v", code, updated.Page)
	}

	var list handlers.ListPagesResponse
	if code := doJSON(t, "GET", srv.URL+"/api/pages", nil, &list); code != 200 || len(list.Pages) != 1 {
		t.Fatalf("list = %d %d", code, len(list.Pages))
	}

	if code := doJSON(t, "DELETE", srv.URL+"/api/pages/"+id, nil, nil); code != 200 {
		t.Fatalf("delete = %d", code)
	}
	if code := doJSON(t, "GET", srv.URL+"/api/pages/"+id, nil, nil); code != 404 {
		t.Fatalf("get after delete = %d", code)
	}
}

func TestNestedDeleteCascadesOverAPI(t *testing.T) {
	srv := newTestServer(t)

	var page handlers.PageResponse
	doJSON(t, "POST", srv.URL+"/api/pages", map[string]any{"title": "Root"}, &page)

	var db handlers.DatabaseResponse
	code := doJSON(t, "POST", srv.URL+"/api/databases", map[string]any{
		"name":           "Tasks",
		"parent_page_id": page.Page.ID.String(),
	}, &db)
	if code != 200 {
		t.Fatalf("create db = %d", code)
	}

	var child handlers.PageResponse
	doJSON(t, "POST", srv.URL+"/api/pages", map[string]any{
		"title":              "Task 1",
		"parent_database_id": db.Database.ID.String(),
	}, &child)

	// Path from the leaf runs root, database, leaf.
	var path handlers.PathResponse
	url := fmt.Sprintf("%s/api/pages/%s/path", srv.URL, child.Page.ID)
	if code := doJSON(t, "GET", url, nil, &path); code != 200 || len(path.Path) != 3 {
		t.Fatalf("path = %d %+v", code, path.Path)
	}

	if code := doJSON(t, "DELETE", srv.URL+"/api/pages/"+page.Page.ID.String(), nil, nil); code != 200 {
		t.Fatalf("delete root = %d", code)
	}
	if code := doJSON(t, "GET", srv.URL+"/api/databases/"+db.Database.ID.String(), nil, nil); code != 404 {
		t.Fatalf("database survived cascade: %d", code)
	}
	if code := doJSON(t, "GET", srv.URL+"/api/pages/"+child.Page.ID.String(), nil, nil); code != 404 {
		t.Fatalf("child survived cascade: %d", code)
	}
}

func TestCompletionAndCalendarEndpoints(t *testing.T) {
	srv := newTestServer(t)

	var page handlers.PageResponse
	doJSON(t, "POST", srv.URL+"/api/pages", map[string]any{
		"title": "Daily habit",
		"properties": map[string]any{
			"due": map[string]any{
				"id": "due", "name": "Due", "type": "date",
				"value": map[string]any{
					"start_date":      "2024-01-01",
					"repetition":      true,
					"repetition_type": "daily",
					"repetition_config": map[string]any{
						"interval": 1,
						"end_date": "2024-01-03",
					},
				},
			},
		},
	}, &page)
	id := page.Page.ID.String()

	var marked handlers.MarkCompletedResponse
	code := doJSON(t, "POST", srv.URL+"/api/pages/"+id+"/completions",
		map[string]any{"date": "2024-01-02", "completed": true}, &marked)
	if code != 200 || !marked.Log.Completed {
		t.Fatalf("mark = %d %+v", code, marked.Log)
	}

	// Omitting "completed" marks the occurrence done.
	code = doJSON(t, "POST", srv.URL+"/api/pages/"+id+"/completions",
		map[string]any{"date": "2024-01-01"}, &marked)
	if code != 200 || !marked.Log.Completed {
		t.Fatalf("default mark = %d %+v", code, marked.Log)
	}
	code = doJSON(t, "POST", srv.URL+"/api/pages/"+id+"/completions",
		map[string]any{"date": "2024-01-01", "completed": false}, &marked)
	if code != 200 || marked.Log.Completed {
		t.Fatalf("explicit false = %d %+v", code, marked.Log)
	}

	var logs handlers.ListCompletionsResponse
	if code := doJSON(t, "GET", srv.URL+"/api/pages/"+id+"/completions", nil, &logs); code != 200 || len(logs.Logs) != 1 {
		t.Fatalf("logs = %d %+v", code, logs.Logs)
	}

	var cal handlers.CalendarResponse
	url := srv.URL + "/api/calendar?from=2024-01-01&to=2024-01-03"
	if code := doJSON(t, "GET", url, nil, &cal); code != 200 {
		t.Fatalf("calendar = %d", code)
	}
	if len(cal.Items) != 3 {
		t.Fatalf("calendar items = %+v", cal.Items)
	}
	for _, it := range cal.Items {
		want := it.Date == "2024-01-02"
		if it.Completed != want {
			t.Fatalf("completion state wrong for %s: %+v", it.Date, it)
		}
	}

	if code := doJSON(t, "GET", srv.URL+"/api/calendar?from=bad&to=2024-01-03", nil, nil); code != 400 {
		t.Fatalf("bad range = %d", code)
	}

	// A lone bound is kept; only the missing side is defaulted.
	cal.Items = nil
	if code := doJSON(t, "GET", srv.URL+"/api/calendar?from=2024-01-01", nil, &cal); code != 200 || len(cal.Items) != 3 {
		t.Fatalf("open-ended range = %d %+v", code, cal.Items)
	}
	if code := doJSON(t, "GET", srv.URL+"/api/calendar?to=2023-12-31", nil, nil); code != 400 {
		t.Fatalf("inverted defaulted range = %d", code)
	}
}

func TestShareFlow(t *testing.T) {
	srv := newTestServer(t)

	var page handlers.PageResponse
	doJSON(t, "POST", srv.URL+"/api/pages", map[string]any{"title": "Shared"}, &page)

	var share handlers.SharePageResponse
	code := doJSON(t, "POST", srv.URL+"/api/pages/"+page.Page.ID.String()+"/share",
		map[string]any{"ttl_hours": 1}, &share)
	if code != 200 || share.Token == "" {
		t.Fatalf("share = %d %+v", code, share)
	}

	var shared handlers.PageResponse
	if code := doJSON(t, "GET", srv.URL+"/api/shared/"+share.Token, nil, &shared); code != 200 {
		t.Fatalf("resolve = %d", code)
	}
	if shared.Page.ID != page.Page.ID {
		t.Fatal("share resolved to wrong page")
	}

	if code := doJSON(t, "GET", srv.URL+"/api/shared/bogus-token", nil, nil); code != 401 {
		t.Fatalf("bogus token = %d", code)
	}
}

func TestValidationErrors(t *testing.T) {
	srv := newTestServer(t)

	// Missing title.
	if code := doJSON(t, "POST", srv.URL+"/api/pages", map[string]any{}, nil); code != 400 {
		t.Fatalf("missing title = %d", code)
	}
	// Unknown fields are rejected.
	if code := doJSON(t, "POST", srv.URL+"/api/pages", map[string]any{"title": "x", "bogus": 1}, nil); code != 400 {
		t.Fatalf("unknown field = %d", code)
	}
	// Malformed ID.
	if code := doJSON(t, "GET", srv.URL+"/api/pages/%21%21", nil, nil); code != 400 {
		t.Fatalf("malformed id = %d", code)
	}
}
