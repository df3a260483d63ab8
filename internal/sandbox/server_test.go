package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridedit/internal/client"
	"gridedit/internal/grid"
	"gridedit/internal/model"
)

func newTestServer(t *testing.T) (*httptest.Server, *Server) {
	t.Helper()
	ctx := context.Background()
	st, err := Open(ctx, filepath.Join(t.TempDir(), "sandbox.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	fx, err := DefaultFixture()
	require.NoError(t, err)
	require.NoError(t, st.Seed(ctx, fx))

	srv, err := NewServer(ctx, st, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, srv
}

func loadGrid(t *testing.T, ts *httptest.Server, table string, q model.Query) (*client.Client, *grid.Controller) {
	t.Helper()
	c, err := client.New(ts.URL + "/tables/" + table + "/")
	require.NoError(t, err)
	page, err := c.Load(context.Background(), q)
	require.NoError(t, err)
	return c, grid.New(page, c)
}

func postJSON(t *testing.T, ts *httptest.Server, srv *Server, path string, body string) map[string]any {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(client.CSRFHeader, srv.Token())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func colIndex(t *testing.T, c *grid.Controller, name string) int {
	t.Helper()
	for i, col := range c.Config().Columns {
		if col.Name == name {
			return i
		}
	}
	t.Fatalf("no column %q", name)
	return -1
}

func TestGrid_PageConfig(t *testing.T) {
	ts, srv := newTestServer(t)
	_, ctl := loadGrid(t, ts, "people", model.Query{})

	cfg := ctl.Config()
	assert.Equal(t, "people", cfg.TableName)
	assert.Equal(t, []string{"id"}, cfg.PKColumns)
	assert.Equal(t, []string{"id"}, cfg.PKUsesSequence)
	assert.Equal(t, "/tables/people/save/", cfg.SaveURL)
	assert.Equal(t, srv.Token(), cfg.CSRFToken)
	require.Len(t, ctl.Rows(), 3)

	k, ok := ctl.Row(0).Key()
	require.True(t, ok)
	assert.Equal(t, `{"id":1}`, k.String())
	assert.Equal(t, "true", ctl.Row(0).Cell("active").Original)
	assert.Equal(t, "", ctl.Row(1).Cell("score").Original)
}

func TestGrid_SortFilterPaging(t *testing.T) {
	ts, _ := newTestServer(t)

	_, ctl := loadGrid(t, ts, "people", model.Query{Sort: "name", Order: "desc"})
	require.Len(t, ctl.Rows(), 3)
	assert.Equal(t, "Carol", ctl.Row(0).Cell("name").Original)

	_, ctl = loadGrid(t, ts, "people", model.Query{Filters: map[string]string{"email": "EXAMPLE"}})
	assert.Len(t, ctl.Rows(), 2)
	assert.Equal(t, 2, ctl.Page().Total)

	_, ctl = loadGrid(t, ts, "people", model.Query{PerPage: 2, Page: 2})
	require.Len(t, ctl.Rows(), 1)
	assert.Equal(t, "Carol", ctl.Row(0).Cell("name").Original)
	assert.Equal(t, 3, ctl.Page().Total)
}

func TestSaveFlow_EndToEnd(t *testing.T) {
	ts, _ := newTestServer(t)
	_, ctl := loadGrid(t, ts, "people", model.Query{})
	name := colIndex(t, ctl, "name")

	ctl.Click(0, name)
	ctl.Edit(0, name, "Alicia")
	ctl.Blur(0, name)
	assert.Equal(t, []string{`{"id":1}`}, ctl.DirtyKeys())

	n, issued := ctl.Save(context.Background())
	require.True(t, issued)
	assert.Equal(t, grid.NoticeSuccess, n.Kind, n.Text)
	assert.Equal(t, "Saved 1 row(s).", n.Text)
	assert.Zero(t, ctl.DirtyCount())
	assert.False(t, ctl.SaveEnabled())

	_, fresh := loadGrid(t, ts, "people", model.Query{})
	assert.Equal(t, "Alicia", fresh.Row(0).Cell("name").Original)
}

func TestSave_AtomicOnRowError(t *testing.T) {
	ts, _ := newTestServer(t)
	_, ctl := loadGrid(t, ts, "people", model.Query{})
	name := colIndex(t, ctl, "name")
	score := colIndex(t, ctl, "score")

	ctl.Click(0, name)
	ctl.Edit(0, name, "Alicia")
	ctl.Blur(0, name)
	ctl.Click(1, score)
	ctl.Edit(1, score, "lots")
	ctl.Blur(1, score)

	n, _ := ctl.Save(context.Background())
	assert.Equal(t, grid.NoticeError, n.Kind)
	assert.Equal(t, `Save failed: invalid input syntax for type numeric: "lots"`, n.Text)
	assert.Equal(t, 2, ctl.DirtyCount())

	_, fresh := loadGrid(t, ts, "people", model.Query{})
	assert.Equal(t, "Alice", fresh.Row(0).Cell("name").Original, "batch must roll back")
}

func TestSave_BlankNumericBecomesNull(t *testing.T) {
	ts, _ := newTestServer(t)
	_, ctl := loadGrid(t, ts, "people", model.Query{})
	score := colIndex(t, ctl, "score")

	ctl.Click(0, score)
	ctl.Edit(0, score, "  ")
	ctl.Blur(0, score)
	n, _ := ctl.Save(context.Background())
	require.Equal(t, grid.NoticeSuccess, n.Kind, n.Text)

	_, fresh := loadGrid(t, ts, "people", model.Query{})
	assert.Equal(t, "", fresh.Row(0).Cell("score").Original)
}

func TestSave_CompositeKey(t *testing.T) {
	ts, _ := newTestServer(t)
	_, ctl := loadGrid(t, ts, "memberships", model.Query{})
	role := colIndex(t, ctl, "role")

	k, ok := ctl.Row(0).Key()
	require.True(t, ok)
	assert.Equal(t, `{"org":"acme","person_id":1}`, k.String())

	ctl.Click(0, role)
	ctl.Edit(0, role, "admin")
	ctl.Blur(0, role)
	n, _ := ctl.Save(context.Background())
	assert.Equal(t, "Saved 1 row(s).", n.Text)
}

func TestRowsWithoutPrimaryKeyAreReadOnly(t *testing.T) {
	ts, _ := newTestServer(t)
	_, ctl := loadGrid(t, ts, "audit_log", model.Query{})
	require.Len(t, ctl.Rows(), 1)
	_, ok := ctl.Row(0).Key()
	assert.False(t, ok)
	assert.False(t, ctl.Click(0, 1))
}

func TestInsertFlow(t *testing.T) {
	ts, _ := newTestServer(t)
	_, ctl := loadGrid(t, ts, "people", model.Query{})

	d := ctl.OpenDraft()
	assert.Nil(t, d.Field("id"))
	d.Set("name", "Dana")
	d.Field("active").Toggle()

	n, issued := ctl.Insert(context.Background())
	require.True(t, issued)
	assert.True(t, n.Reload, n.Text)
	assert.Nil(t, ctl.Draft())

	_, fresh := loadGrid(t, ts, "people", model.Query{})
	require.Len(t, fresh.Rows(), 4)
	last := fresh.Row(3)
	k, _ := last.Key()
	assert.Equal(t, `{"id":4}`, k.String())
	assert.Equal(t, "true", last.Cell("active").Original)
	assert.Equal(t, "", last.Cell("born").Original)
}

func TestInsert_Validation(t *testing.T) {
	ts, srv := newTestServer(t)

	out := postJSON(t, ts, srv, "/tables/people/insert/", `{"columns":{"email":"x@example.com"}}`)
	assert.Equal(t, false, out["ok"])
	assert.Equal(t, "Non-nullable column 'name' requires a value.", out["error"])

	out = postJSON(t, ts, srv, "/tables/memberships/insert/", `{"columns":{"person_id":3}}`)
	assert.Equal(t, "Primary key column 'org' is required (no sequence).", out["error"])

	out = postJSON(t, ts, srv, "/tables/memberships/insert/", `{"columns":{"org":"acme","person_id":1}}`)
	assert.Equal(t, `duplicate key value violates unique constraint "memberships_pkey"`, out["error"])

	out = postJSON(t, ts, srv, "/tables/people/insert/", `{"columns":[]}`)
	assert.Equal(t, "Missing or invalid 'columns' object", out["error"])

	out = postJSON(t, ts, srv, "/tables/people/insert/", `not json`)
	assert.Equal(t, "Invalid JSON", out["error"])
}

func TestInsertFailureKeepsDraft(t *testing.T) {
	ts, _ := newTestServer(t)
	_, ctl := loadGrid(t, ts, "people", model.Query{})
	d := ctl.OpenDraft()
	d.Set("born", "2001-02-03")

	n, _ := ctl.Insert(context.Background())
	assert.Equal(t, "Insert failed: Non-nullable column 'name' requires a value.", n.Text)
	assert.Same(t, d, ctl.Draft())
	assert.Equal(t, "2001-02-03", d.Field("born").ReadCurrentValue())
}

func TestDeleteFlow(t *testing.T) {
	ts, _ := newTestServer(t)
	_, ctl := loadGrid(t, ts, "people", model.Query{})

	n, issued := ctl.Delete(context.Background(), 2, true)
	require.True(t, issued)
	assert.Equal(t, "Deleted 1 row(s).", n.Text)
	assert.Len(t, ctl.Rows(), 2)

	_, fresh := loadGrid(t, ts, "people", model.Query{})
	assert.Len(t, fresh.Rows(), 2)
}

func TestDelete_Validation(t *testing.T) {
	ts, srv := newTestServer(t)

	out := postJSON(t, ts, srv, "/tables/people/delete/", `{"pks":[{"nope":1}]}`)
	assert.Equal(t, false, out["ok"])
	errs, _ := out["errors"].([]any)
	require.Len(t, errs, 1)
	assert.Equal(t, "Invalid or missing primary key", errs[0].(map[string]any)["error"])

	out = postJSON(t, ts, srv, "/tables/audit_log/delete/", `{"pks":[]}`)
	assert.Equal(t, "Table has no primary key", out["error"])

	out = postJSON(t, ts, srv, "/tables/people/delete/", `{"pks":{}}`)
	assert.Equal(t, "Missing or invalid 'pks' array", out["error"])

	out = postJSON(t, ts, srv, "/tables/people/delete/", `{"pks":[{"id":"1"}]}`)
	assert.Equal(t, true, out["ok"])
	assert.EqualValues(t, 1, out["deleted"])
}

func TestCSRFRejected(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Post(ts.URL+"/tables/people/save/", "application/json", bytes.NewBufferString(`{"rows":[]}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(b), "CSRF verification failed")
}

func TestCSRFFailureSurfacesAsInvalidResponse(t *testing.T) {
	ts, _ := newTestServer(t)
	c, err := client.New(ts.URL + "/tables/people/")
	require.NoError(t, err)
	page, err := c.Load(context.Background(), model.Query{})
	require.NoError(t, err)
	page.Config.CSRFToken = "stale"
	require.NoError(t, c.Configure(page.Config))

	ctl := grid.New(page, c)
	name := colIndex(t, ctl, "name")
	ctl.Click(0, name)
	ctl.Edit(0, name, "Alicia")
	ctl.Blur(0, name)

	n, _ := ctl.Save(context.Background())
	assert.Equal(t, "Save failed: invalid response", n.Text)
	assert.Equal(t, 1, ctl.DirtyCount())
}

func TestUnknownTable(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/tables/nope/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTablesListing(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/tables/")
	require.NoError(t, err)
	defer resp.Body.Close()
	var out []tableEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out, 3)
	assert.Equal(t, "audit_log", out[0].Name)
	assert.Equal(t, "/tables/people/", out[2].URL)
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sandbox.sqlite")
	st, err := Open(ctx, path)
	require.NoError(t, err)
	fx, err := DefaultFixture()
	require.NoError(t, err)
	require.NoError(t, st.Seed(ctx, fx))
	require.NoError(t, st.Seed(ctx, fx))
	rows, err := st.Rows(ctx, "people")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	tok1, _ := st.CSRFToken(ctx)
	require.NoError(t, st.Close())

	st, err = Open(ctx, path)
	require.NoError(t, err)
	defer st.Close()
	tok2, _ := st.CSRFToken(ctx)
	assert.Equal(t, tok1, tok2)
}
