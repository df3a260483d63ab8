package tui

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gridedit/internal/model"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeSource struct {
	page    model.Page
	loads   []model.Query
	saves   []model.SaveRequest
	inserts []model.InsertRequest
	deletes []model.DeleteRequest
	result  model.Result
	err     error
}

func (f *fakeSource) Load(_ context.Context, q model.Query) (model.Page, error) {
	f.loads = append(f.loads, q)
	return f.page, nil
}

func (f *fakeSource) Save(_ context.Context, req model.SaveRequest) (model.Result, error) {
	f.saves = append(f.saves, req)
	return f.result, f.err
}

func (f *fakeSource) Insert(_ context.Context, req model.InsertRequest) (model.Result, error) {
	f.inserts = append(f.inserts, req)
	return f.result, f.err
}

func (f *fakeSource) Delete(_ context.Context, req model.DeleteRequest) (model.Result, error) {
	f.deletes = append(f.deletes, req)
	return f.result, f.err
}

func testPage() model.Page {
	cfg := model.GridConfig{
		TableName:      "people",
		SchemaName:     "public",
		PKColumns:      []string{"id"},
		PKUsesSequence: []string{"id"},
		Columns: []model.Column{
			{Name: "id", DataType: "integer"},
			{Name: "name", DataType: "text"},
			{Name: "active", DataType: "boolean", IsNullable: true},
			{Name: "born", DataType: "date", IsNullable: true},
		},
	}
	return model.Page{
		Config:  cfg,
		Page:    1,
		PerPage: 50,
		Total:   2,
		Rows: []model.PageRow{
			{PK: json.RawMessage(`{"id":7}`), Values: map[string]string{"id": "7", "name": "Alice", "active": "true", "born": "1990-01-02"}},
			{PK: json.RawMessage(`{"id":3}`), Values: map[string]string{"id": "3", "name": "Bob", "active": "", "born": ""}},
		},
	}
}

func newTestModel(t *testing.T, src *fakeSource) gridModel {
	t.Helper()
	src.page = testPage()
	m := newGridModel(context.Background(), src, Options{
		Now: func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) },
	})
	m.noticeTTL = 0
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	return run(t, m, m.Init())
}

func update(t *testing.T, m gridModel, msg tea.Msg) gridModel {
	t.Helper()
	next, cmd := m.Update(msg)
	return run(t, next.(gridModel), cmd)
}

// run executes cmd and feeds request results back into the model. Spinner
// ticks and other timers are dropped.
func run(t *testing.T, m gridModel, cmd tea.Cmd) gridModel {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case pageLoadedMsg, saveDoneMsg, insertDoneMsg, deleteDoneMsg:
			next, more := m.Update(msg)
			m = next.(gridModel)
			queue = append(queue, more)
		}
	}
	return m
}

func press(t *testing.T, m gridModel, keys ...string) gridModel {
	t.Helper()
	for _, k := range keys {
		m = update(t, m, keyMsg(k))
	}
	return m
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "ctrl+t":
		return tea.KeyMsg{Type: tea.KeyCtrlT}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func typeText(t *testing.T, m gridModel, s string) gridModel {
	t.Helper()
	for _, r := range s {
		m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func clearInput(t *testing.T, m gridModel, n int) gridModel {
	t.Helper()
	for i := 0; i < n; i++ {
		m = press(t, m, "backspace")
	}
	return m
}

func TestLoad_BuildsGrid(t *testing.T) {
	src := &fakeSource{}
	m := newTestModel(t, src)
	if m.ctl == nil {
		t.Fatalf("expected controller after load")
	}
	if len(src.loads) != 1 {
		t.Fatalf("expected one load; got %d", len(src.loads))
	}
	if m.busy() {
		t.Fatalf("expected idle after load")
	}
	view := m.View()
	if !strings.Contains(view, "public.people") || !strings.Contains(view, "Alice") {
		t.Fatalf("expected table in view; got:\n%s", view)
	}
}

func TestEditCell_MarksRowAndSaves(t *testing.T) {
	src := &fakeSource{result: model.Result{OK: true, Updated: model.IntPtr(1)}}
	m := newTestModel(t, src)

	m = press(t, m, "l", "enter")
	if !m.editing {
		t.Fatalf("expected edit mode on name cell")
	}
	m = clearInput(t, m, len("Alice"))
	m = typeText(t, m, "Alicia")
	m = press(t, m, "enter")
	if m.editing {
		t.Fatalf("expected enter to leave edit mode")
	}
	if got := m.ctl.DirtyKeys(); len(got) != 1 || got[0] != `{"id":7}` {
		t.Fatalf("expected row 7 dirty; got %v", got)
	}
	if !strings.Contains(m.View(), "1 row(s) modified") {
		t.Fatalf("expected modified label in header")
	}

	m = press(t, m, "s")
	if len(src.saves) != 1 {
		t.Fatalf("expected one save; got %d", len(src.saves))
	}
	if got := src.saves[0].Rows[0].Columns["name"]; got != "Alicia" {
		t.Fatalf("expected Alicia sent; got %q", got)
	}
	if m.ctl.DirtyCount() != 0 {
		t.Fatalf("expected clean grid after save")
	}
	if m.notice.Text != "Saved 1 row(s)." {
		t.Fatalf("unexpected notice %q", m.notice.Text)
	}
}

func TestEscape_DiscardsCellEdit(t *testing.T) {
	m := newTestModel(t, &fakeSource{})
	m = press(t, m, "l", "enter")
	m = typeText(t, m, "xyz")
	m = press(t, m, "esc")
	if m.editing {
		t.Fatalf("expected esc to leave edit mode")
	}
	if m.ctl.DirtyCount() != 0 {
		t.Fatalf("expected no dirty rows after esc")
	}
	if got := m.ctl.Row(0).Cell("name").Text(); got != "Alice" {
		t.Fatalf("expected original restored; got %q", got)
	}
}

func TestSave_FailureKeepsRowsDirty(t *testing.T) {
	src := &fakeSource{result: model.Result{OK: false, Error: "boom"}}
	m := newTestModel(t, src)
	m = press(t, m, "l", "enter")
	m = typeText(t, m, "!")
	m = press(t, m, "tab", "s")
	if m.ctl.DirtyCount() != 1 {
		t.Fatalf("expected row to stay dirty")
	}
	if m.notice.Text != "Save failed: boom" {
		t.Fatalf("unexpected notice %q", m.notice.Text)
	}
}

func TestPrimaryKeyCellIsReadOnly(t *testing.T) {
	m := newTestModel(t, &fakeSource{})
	m = press(t, m, "enter")
	if m.editing {
		t.Fatalf("expected pk cell to stay in display mode")
	}
	if m.notice.Text != readOnlyText {
		t.Fatalf("expected read-only notice; got %q", m.notice.Text)
	}
}

func TestSpaceTogglesCheckbox(t *testing.T) {
	m := newTestModel(t, &fakeSource{})
	m = press(t, m, "l", "l", "space")
	if got := m.ctl.Row(0).Cell("active").Text(); got != "false" {
		t.Fatalf("expected unchecked; got %q", got)
	}
	if m.ctl.DirtyCount() != 1 {
		t.Fatalf("expected toggled row dirty")
	}
	m = press(t, m, "space")
	if m.ctl.DirtyCount() != 0 {
		t.Fatalf("expected toggling back to clear the row")
	}
}

func TestCtrlT_FillsNowWhileEditing(t *testing.T) {
	m := newTestModel(t, &fakeSource{})
	m = press(t, m, "l", "l", "l", "down", "enter", "ctrl+t")
	if got := m.editor.Value(); got != "2024-05-06" {
		t.Fatalf("expected date filled; got %q", got)
	}
	m = press(t, m, "enter")
	if got := m.ctl.DirtyKeys(); len(got) != 1 || got[0] != `{"id":3}` {
		t.Fatalf("expected row 3 dirty; got %v", got)
	}
}

func TestRevert(t *testing.T) {
	m := newTestModel(t, &fakeSource{})
	m = press(t, m, "l", "enter")
	m = typeText(t, m, "!")
	m = press(t, m, "enter", "u")
	if m.ctl.DirtyCount() != 0 {
		t.Fatalf("expected revert to clear dirty rows")
	}
	if m.notice.Text != "Changes reverted." {
		t.Fatalf("unexpected notice %q", m.notice.Text)
	}
}

func TestReloadRefusedWhileDirty(t *testing.T) {
	src := &fakeSource{}
	m := newTestModel(t, src)
	m = press(t, m, "l", "enter")
	m = typeText(t, m, "!")
	m = press(t, m, "enter", "r")
	if len(src.loads) != 1 {
		t.Fatalf("expected reload to be refused; loads=%d", len(src.loads))
	}
	if m.notice.Text != unsavedText {
		t.Fatalf("unexpected notice %q", m.notice.Text)
	}
}

func TestAddRow_InsertsAndReloads(t *testing.T) {
	src := &fakeSource{result: model.Result{OK: true, Inserted: model.IntPtr(1)}}
	m := newTestModel(t, src)
	m = press(t, m, "a")
	if m.modal != modalDraft {
		t.Fatalf("expected draft modal")
	}
	m = typeText(t, m, "Dana")
	m = press(t, m, "tab", "space", "enter")

	if len(src.inserts) != 1 {
		t.Fatalf("expected one insert; got %d", len(src.inserts))
	}
	cols := src.inserts[0].Columns
	if _, ok := cols["id"]; ok {
		t.Fatalf("sequence column must not be sent: %v", cols)
	}
	if cols["name"] != "Dana" || cols["active"] != "true" {
		t.Fatalf("unexpected insert payload %v", cols)
	}
	if m.modal != modalNone {
		t.Fatalf("expected draft closed after insert")
	}
	if len(src.loads) != 2 {
		t.Fatalf("expected reload after insert; loads=%d", len(src.loads))
	}
}

func TestAddRow_FailureKeepsDraft(t *testing.T) {
	src := &fakeSource{result: model.Result{OK: false, Error: "Non-nullable column 'name' requires a value."}}
	m := newTestModel(t, src)
	m = press(t, m, "a", "enter")
	if m.modal != modalDraft {
		t.Fatalf("expected draft to stay open")
	}
	if !strings.Contains(m.View(), "requires a value") {
		t.Fatalf("expected error inside draft modal")
	}
	m = press(t, m, "esc")
	if m.modal != modalNone || m.ctl.Draft() != nil {
		t.Fatalf("expected esc to discard the draft")
	}
}

func TestDelete_ConfirmThenRemove(t *testing.T) {
	src := &fakeSource{result: model.Result{OK: true, Deleted: model.IntPtr(1)}}
	m := newTestModel(t, src)

	m = press(t, m, "d")
	if m.modal != modalConfirmDelete {
		t.Fatalf("expected delete confirmation")
	}
	if !strings.Contains(m.deletePrompt, `{"id":7}`) {
		t.Fatalf("unexpected prompt %q", m.deletePrompt)
	}
	// Enter defaults to cancel.
	m = press(t, m, "enter")
	if len(src.deletes) != 0 || len(m.ctl.Rows()) != 2 {
		t.Fatalf("expected cancel to keep the row")
	}

	m = press(t, m, "d", "y")
	if len(src.deletes) != 1 {
		t.Fatalf("expected one delete; got %d", len(src.deletes))
	}
	if len(m.ctl.Rows()) != 1 {
		t.Fatalf("expected row removed; got %d rows", len(m.ctl.Rows()))
	}
	if m.notice.Text != "Deleted 1 row(s)." {
		t.Fatalf("unexpected notice %q", m.notice.Text)
	}
}

func TestQuitWithUnsavedRowsAsks(t *testing.T) {
	m := newTestModel(t, &fakeSource{})
	m = press(t, m, "l", "enter")
	m = typeText(t, m, "!")
	m = press(t, m, "enter")

	next, cmd := m.Update(keyMsg("q"))
	m = next.(gridModel)
	if cmd != nil || m.modal != modalConfirmQuit {
		t.Fatalf("expected quit confirmation")
	}
	_, cmd = m.Update(keyMsg("y"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestSortAndFilterReload(t *testing.T) {
	src := &fakeSource{}
	m := newTestModel(t, src)
	m = press(t, m, "l", "o")
	if got := src.loads[len(src.loads)-1]; got.Sort != "name" || got.Order != "asc" {
		t.Fatalf("unexpected sort query %+v", got)
	}
	m = press(t, m, "o")
	if got := src.loads[len(src.loads)-1]; got.Order != "desc" {
		t.Fatalf("expected second press to flip order; got %+v", got)
	}

	m = press(t, m, "/")
	m = typeText(t, m, "ali")
	m = press(t, m, "enter")
	got := src.loads[len(src.loads)-1]
	if got.Filters["name"] != "ali" || got.Page != 1 {
		t.Fatalf("unexpected filter query %+v", got)
	}
	_ = m
}

// firstMsg runs cmd and returns the first message of type T without feeding
// anything back into the model, leaving the request outstanding.
func firstMsg[T tea.Msg](t *testing.T, cmd tea.Cmd) T {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		if b, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, b...)
			continue
		}
		if v, ok := msg.(T); ok {
			return v
		}
	}
	var zero T
	t.Fatalf("command produced no %T", zero)
	return zero
}

func TestWritesRefusedWhileLoading(t *testing.T) {
	src := &fakeSource{result: model.Result{OK: true, Updated: model.IntPtr(1)}}
	m := newTestModel(t, src)

	next, cmd := m.Update(keyMsg("r"))
	m = next.(gridModel)
	loaded := firstMsg[pageLoadedMsg](t, cmd)
	if !m.loading {
		t.Fatalf("expected loading while the page is outstanding")
	}

	m = press(t, m, "l", "enter")
	if m.editing {
		t.Fatalf("expected edit to be refused while loading")
	}
	if m.notice.Text != loadingText {
		t.Fatalf("unexpected notice %q", m.notice.Text)
	}
	m = typeText(t, m, "X")
	m = press(t, m, "enter", "s", "a", "d")
	if m.modal != modalNone {
		t.Fatalf("expected no modal while loading; got %v", m.modal)
	}
	if m.ctl.DirtyCount() != 0 || len(src.saves) != 0 {
		t.Fatalf("expected nothing written; dirty=%d saves=%d", m.ctl.DirtyCount(), len(src.saves))
	}

	m = update(t, m, loaded)
	if m.loading {
		t.Fatalf("expected load to finish")
	}
	if got := m.ctl.Cell(0, 1).Input.Value; got != "Alice" {
		t.Fatalf("expected Alice after load; got %q", got)
	}
	m = press(t, m, "enter")
	if !m.editing {
		t.Fatalf("expected editing to work once the page landed")
	}
}

func TestDeleteLandingKeepsEditedRow(t *testing.T) {
	src := &fakeSource{result: model.Result{OK: true, Deleted: model.IntPtr(1)}}
	m := newTestModel(t, src)
	src.page.Rows = append(src.page.Rows, model.PageRow{
		PK:     json.RawMessage(`{"id":9}`),
		Values: map[string]string{"id": "9", "name": "Carol", "active": "", "born": ""},
	})
	src.page.Total = 3
	m = press(t, m, "r")
	if len(m.ctl.Rows()) != 3 {
		t.Fatalf("expected 3 rows; got %d", len(m.ctl.Rows()))
	}

	m = press(t, m, "d")
	next, cmd := m.Update(keyMsg("y"))
	m = next.(gridModel)
	deleted := firstMsg[deleteDoneMsg](t, cmd)

	m = press(t, m, "down", "l", "enter")
	if !m.editing || m.row != 1 {
		t.Fatalf("expected editing Bob on row 1; editing=%v row=%d", m.editing, m.row)
	}

	m = update(t, m, deleted)
	if len(m.ctl.Rows()) != 2 {
		t.Fatalf("expected Alice removed; got %d rows", len(m.ctl.Rows()))
	}
	if m.row != 0 || !m.editing {
		t.Fatalf("expected cursor to follow Bob to row 0; row=%d editing=%v", m.row, m.editing)
	}

	m = typeText(t, m, "Z")
	m = press(t, m, "enter")
	cl := m.ctl.Cell(0, 1)
	if cl.Editing() || m.editing {
		t.Fatalf("expected enter to leave edit mode")
	}
	if cl.Input.Value != "BobZ" {
		t.Fatalf("expected BobZ; got %q", cl.Input.Value)
	}
	if got := m.ctl.DirtyKeys(); len(got) != 1 || got[0] != `{"id":3}` {
		t.Fatalf("expected Bob dirty; got %v", got)
	}
}

func TestDeleteLandingOnEditedRowStopsEditing(t *testing.T) {
	src := &fakeSource{result: model.Result{OK: true, Deleted: model.IntPtr(1)}}
	m := newTestModel(t, src)

	m = press(t, m, "d")
	next, cmd := m.Update(keyMsg("y"))
	m = next.(gridModel)
	deleted := firstMsg[deleteDoneMsg](t, cmd)

	m = press(t, m, "l", "enter")
	if !m.editing {
		t.Fatalf("expected editing Alice")
	}
	m = update(t, m, deleted)
	if m.editing {
		t.Fatalf("expected editing to stop once its row is gone")
	}
	if got := m.ctl.Cell(0, 1).Input.Value; got != "Bob" {
		t.Fatalf("expected Bob on row 0; got %q", got)
	}
}
