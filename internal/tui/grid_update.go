package tui

import (
	"maps"
	"strings"

	"gridedit/internal/cell"
	"gridedit/internal/grid"
	"gridedit/internal/model"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	busyText     = "A request is already in progress."
	unsavedText  = "Save or revert changes first."
	readOnlyText = "This cell is read-only."
	loadingText  = "The page is still loading."
)

func (m gridModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.scrollIntoView()
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case pageLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.logger.Warn("load failed", "error", msg.err)
			return m, m.setNotice(grid.Notice{Kind: grid.NoticeError, Text: loadFailureText(msg.err)})
		}
		m.applyPage(msg.page)
		return m, nil

	case saveDoneMsg:
		if msg.ctl != m.ctl {
			return m, nil
		}
		return m, m.setNotice(m.ctl.FinishSave(msg.batch, msg.res, msg.err))

	case insertDoneMsg:
		if msg.ctl != m.ctl {
			return m, nil
		}
		n := m.ctl.FinishInsert(msg.op, msg.res, msg.err)
		cmd := m.setNotice(n)
		if !n.Reload {
			return m, cmd
		}
		// The new row's identity and position come from the server.
		m.closeDraft()
		return m, tea.Batch(cmd, m.fetch(m.query))

	case deleteDoneMsg:
		if msg.ctl != m.ctl {
			return m, nil
		}
		// Rows below the deleted one shift up; keep the cursor on its row.
		cur := ""
		if r := m.ctl.Row(m.row); r != nil {
			if k, ok := r.Key(); ok {
				cur = k.String()
			}
		}
		n := m.ctl.FinishDelete(msg.op, msg.res, msg.err)
		if i := m.ctl.FindRow(cur); cur != "" && i >= 0 {
			m.row = i
		} else if m.editing {
			m.stopEdit()
		}
		m.clampCursor()
		return m, m.setNotice(n)

	case noticeExpiredMsg:
		if msg.seq == m.noticeSeq {
			m.notice = grid.Notice{}
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case m.modal != modalNone:
			return m.updateModal(msg)
		case m.editing:
			return m.updateEditing(msg)
		}
		return m.updateGrid(msg)
	}
	return m, nil
}

func (m gridModel) updateGrid(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		if m.ctl != nil && m.ctl.DirtyCount() > 0 {
			m.modal = modalConfirmQuit
			m.confirmFocus = confirmFocusCancel
			return m, nil
		}
		return m, tea.Quit
	}
	if key.Matches(msg, m.keys.Help) {
		m.modal = modalHelp
		return m, nil
	}
	if m.ctl == nil {
		if key.Matches(msg, m.keys.Reload) {
			return m, m.reload(m.query)
		}
		return m, nil
	}

	// The loaded page replaces the controller, so nothing may be written to
	// the current one until it lands.
	if m.loading && m.writeKey(msg) {
		return m, m.info(loadingText)
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		m.move(-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.move(1, 0)
	case key.Matches(msg, m.keys.Left):
		m.move(0, -1)
	case key.Matches(msg, m.keys.Right):
		m.move(0, 1)
	case key.Matches(msg, m.keys.Edit):
		return m, m.startEdit()
	case key.Matches(msg, m.keys.Toggle):
		return m, m.toggleCell()
	case key.Matches(msg, m.keys.Save):
		return m, m.save()
	case key.Matches(msg, m.keys.Revert):
		return m, m.setNotice(m.ctl.Revert())
	case key.Matches(msg, m.keys.Add):
		m.openDraft()
	case key.Matches(msg, m.keys.Delete):
		prompt, ok := m.ctl.DeletePrompt(m.row)
		if !ok {
			return m, m.info("This row cannot be deleted.")
		}
		m.modal = modalConfirmDelete
		m.deleteRow = m.row
		m.deletePrompt = prompt
		m.confirmFocus = confirmFocusCancel
	case key.Matches(msg, m.keys.Reload):
		return m, m.reload(m.query)
	case key.Matches(msg, m.keys.Sort):
		return m, m.sortByCurrent()
	case key.Matches(msg, m.keys.Filter):
		cols := m.ctl.Config().Columns
		if m.col < len(cols) {
			m.filterColumn = cols[m.col].Name
			m.filterInput.SetValue(m.query.Filters[m.filterColumn])
			m.filterInput.CursorEnd()
			m.filterInput.Focus()
			m.modal = modalFilter
		}
	case key.Matches(msg, m.keys.NextPage):
		p := m.ctl.Page()
		if p.Page*p.PerPage < p.Total {
			q := m.query
			q.Page = p.Page + 1
			return m, m.reload(q)
		}
	case key.Matches(msg, m.keys.PrevPage):
		if p := m.ctl.Page(); p.Page > 1 {
			q := m.query
			q.Page = p.Page - 1
			return m, m.reload(q)
		}
	}
	return m, nil
}

func (m gridModel) writeKey(msg tea.KeyMsg) bool {
	return key.Matches(msg, m.keys.Edit, m.keys.Toggle, m.keys.Save, m.keys.Add, m.keys.Delete)
}

// reload fetches the page for q. A page swap would drop unsaved edits, so it
// is refused while rows are dirty.
func (m *gridModel) reload(q model.Query) tea.Cmd {
	if m.ctl != nil {
		if m.ctl.InFlight() {
			return m.info(busyText)
		}
		if m.ctl.DirtyCount() > 0 {
			return m.info(unsavedText)
		}
	}
	return m.fetch(q)
}

func (m *gridModel) fetch(q model.Query) tea.Cmd {
	m.query = q
	m.loading = true
	return tea.Batch(loadCmd(m.ctx, m.src, q), m.spinner.Tick)
}

func (m *gridModel) startEdit() tea.Cmd {
	cl := m.currentCell()
	if !m.ctl.Click(m.row, m.col) {
		if cl != nil && !cl.Editing() {
			return m.info(readOnlyText)
		}
		return nil
	}
	m.editing = true
	if cl.Kind() == cell.KindCheckbox {
		return nil
	}
	m.editor.SetValue(cl.Input.Value)
	m.editor.CursorEnd()
	m.editor.Placeholder = cell.NowLayout(cl.Kind())
	if w := m.columnWidths(); m.col < len(w) {
		m.editor.Width = w[m.col]
	}
	m.editor.Focus()
	return nil
}

func (m *gridModel) stopEdit() {
	m.editing = false
	m.editor.Blur()
}

// toggleCell flips a checkbox in one step: focus, toggle, blur.
func (m *gridModel) toggleCell() tea.Cmd {
	cl := m.currentCell()
	if cl == nil || cl.Kind() != cell.KindCheckbox {
		return nil
	}
	if !m.ctl.Click(m.row, m.col) {
		return m.info(readOnlyText)
	}
	m.ctl.Toggle(m.row, m.col)
	m.ctl.Blur(m.row, m.col)
	return nil
}

func (m gridModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cl := m.currentCell()
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.ctl.Key(m.row, m.col, grid.KeyEscape)
		m.stopEdit()
		return m, nil
	case key.Matches(msg, m.keys.Commit):
		m.ctl.Key(m.row, m.col, grid.KeyEnter)
		m.stopEdit()
		return m, nil
	case key.Matches(msg, m.keys.Next), msg.Type == tea.KeyDown, msg.Type == tea.KeyUp, key.Matches(msg, m.keys.Prev):
		// Leaving the cell is a focus loss.
		m.ctl.Blur(m.row, m.col)
		m.stopEdit()
		switch {
		case key.Matches(msg, m.keys.Next):
			m.move(0, 1)
		case key.Matches(msg, m.keys.Prev):
			m.move(0, -1)
		case msg.Type == tea.KeyDown:
			m.move(1, 0)
		default:
			m.move(-1, 0)
		}
		return m, nil
	case key.Matches(msg, m.keys.Now):
		if m.ctl.FillNow(m.row, m.col) {
			m.editor.SetValue(cl.Input.Value)
			m.editor.CursorEnd()
		}
		return m, nil
	}
	if cl.Kind() == cell.KindCheckbox {
		if key.Matches(msg, m.keys.Toggle) {
			m.ctl.Toggle(m.row, m.col)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	m.ctl.Edit(m.row, m.col, m.editor.Value())
	return m, cmd
}

func (m *gridModel) save() tea.Cmd {
	b, ok := m.ctl.BeginSave()
	if !ok {
		if m.ctl.InFlight() {
			return m.info(busyText)
		}
		return m.info("No changes to save.")
	}
	return tea.Batch(saveCmd(m.ctx, m.src, m.ctl, b), m.spinner.Tick)
}

func (m *gridModel) sortByCurrent() tea.Cmd {
	cols := m.ctl.Config().Columns
	if m.col >= len(cols) {
		return nil
	}
	q := m.query
	name := cols[m.col].Name
	if q.Sort == name && strings.EqualFold(q.Order, "asc") {
		q.Order = "desc"
	} else {
		q.Sort, q.Order = name, "asc"
	}
	q.Page = 1
	return m.reload(q)
}

func (m *gridModel) openDraft() {
	d := m.ctl.OpenDraft()
	m.draftInputs = make([]textinput.Model, len(d.Fields))
	for i, f := range d.Fields {
		in := newInput(cell.NowLayout(f.Kind()))
		in.SetValue(f.ReadCurrentValue())
		m.draftInputs[i] = in
	}
	m.draftFocus = 0
	m.focusDraft()
	m.modal = modalDraft
}

func (m *gridModel) focusDraft() {
	for i := range m.draftInputs {
		if i == m.draftFocus {
			m.draftInputs[i].Focus()
		} else {
			m.draftInputs[i].Blur()
		}
	}
}

func (m *gridModel) closeDraft() {
	if m.modal == modalDraft {
		m.modal = modalNone
	}
	m.draftInputs = nil
}

func (m gridModel) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.modal {
	case modalHelp:
		m.modal = modalNone
		return m, nil
	case modalDraft:
		return m.updateDraft(msg)
	case modalFilter:
		return m.updateFilter(msg)
	}

	confirmed := false
	switch msg.String() {
	case "tab", "shift+tab", "left", "right", "h", "l":
		m.confirmFocus = m.confirmFocus.next()
		return m, nil
	case "esc", "n", "ctrl+g":
		m.modal = modalNone
		return m, nil
	case "y":
		confirmed = true
	case "enter":
		confirmed = m.confirmFocus == confirmFocusConfirm
	default:
		return m, nil
	}
	kind := m.modal
	m.modal = modalNone
	if !confirmed {
		return m, nil
	}
	switch kind {
	case modalConfirmQuit:
		return m, tea.Quit
	case modalConfirmDelete:
		if m.loading {
			return m, m.info(loadingText)
		}
		op, ok := m.ctl.BeginDelete(m.deleteRow, true)
		if !ok {
			if m.ctl.InFlight() {
				return m, m.info(busyText)
			}
			return m, nil
		}
		return m, tea.Batch(deleteCmd(m.ctx, m.src, m.ctl, op), m.spinner.Tick)
	}
	return m, nil
}

func (m gridModel) updateDraft(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.ctl.Draft()
	if d == nil {
		m.closeDraft()
		return m, nil
	}
	n := len(d.Fields)
	var field *cell.Cell
	if n > 0 {
		field = d.Fields[m.draftFocus]
	}
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.ctl.CancelDraft()
		m.closeDraft()
		return m, nil
	case msg.String() == "enter" || msg.String() == "ctrl+s":
		if m.loading {
			return m, m.info(loadingText)
		}
		op, ok := m.ctl.BeginInsert()
		if !ok {
			return m, m.info(busyText)
		}
		return m, tea.Batch(insertCmd(m.ctx, m.src, m.ctl, op), m.spinner.Tick)
	case field == nil:
		return m, nil
	case key.Matches(msg, m.keys.Next), msg.Type == tea.KeyDown:
		m.draftFocus = (m.draftFocus + 1) % n
		m.focusDraft()
		return m, nil
	case key.Matches(msg, m.keys.Prev), msg.Type == tea.KeyUp:
		m.draftFocus = (m.draftFocus + n - 1) % n
		m.focusDraft()
		return m, nil
	case key.Matches(msg, m.keys.Now):
		if d.FillNow(field.Column, m.now()) {
			m.draftInputs[m.draftFocus].SetValue(field.Input.Value)
			m.draftInputs[m.draftFocus].CursorEnd()
		}
		return m, nil
	}
	if field.Kind() == cell.KindCheckbox {
		if key.Matches(msg, m.keys.Toggle) {
			field.Toggle()
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.draftInputs[m.draftFocus], cmd = m.draftInputs[m.draftFocus].Update(msg)
	d.Set(field.Column, m.draftInputs[m.draftFocus].Value())
	return m, cmd
}

func (m gridModel) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.modal = modalNone
		m.filterInput.Blur()
		return m, nil
	case "enter":
		m.modal = modalNone
		m.filterInput.Blur()
		q := m.query
		q.Filters = maps.Clone(q.Filters)
		if q.Filters == nil {
			q.Filters = map[string]string{}
		}
		if v := strings.TrimSpace(m.filterInput.Value()); v != "" {
			q.Filters[m.filterColumn] = v
		} else {
			delete(q.Filters, m.filterColumn)
		}
		q.Page = 1
		return m, m.reload(q)
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}
