package tui

import (
	"fmt"
	"strings"

	"gridedit/internal/cell"
	"gridedit/internal/grid"
	"gridedit/internal/model"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

const (
	gutterWidth    = 2
	minColumnWidth = 3
	maxColumnWidth = 28
)

func (m gridModel) View() string {
	width := m.viewWidth()
	parts := []string{m.viewHeader(width)}
	if m.ctl == nil {
		parts = append(parts, styleMuted().Render("Loading…"))
	} else {
		parts = append(parts, m.viewTable(width, m.tableHeight()))
	}
	parts = append(parts, m.viewFooter(width))
	base := strings.Join(parts, "\n")

	mw := modalWidth(width)
	switch m.modal {
	case modalConfirmDelete:
		return overlay(base, renderConfirmModal(mw, "Delete row", m.deletePrompt, "Delete", "Cancel", m.confirmFocus), width, m.height)
	case modalConfirmQuit:
		body := fmt.Sprintf("Discard %s?", dirtyCountText(m.ctl.DirtyCount()))
		return overlay(base, renderConfirmModal(mw, "Unsaved changes", body, "Quit", "Cancel", m.confirmFocus), width, m.height)
	case modalDraft:
		return overlay(base, m.viewDraft(mw), width, m.height)
	case modalFilter:
		bodyW := modalBodyWidth(mw)
		content := strings.Join([]string{
			renderInputLine(bodyW, m.filterInput.View()),
			"",
			styleMuted().Render("enter: apply (empty clears)   esc: cancel"),
		}, "\n")
		return overlay(base, renderModalBox(mw, "Filter "+m.filterColumn, content), width, m.height)
	case modalHelp:
		return overlay(base, renderModalBox(mw, "Help", renderMarkdown(helpMarkdown(m.keys), modalBodyWidth(mw))), width, m.height)
	}
	return base
}

func dirtyCountText(n int) string {
	return fmt.Sprintf("%d unsaved row(s)", n)
}

func (m gridModel) viewHeader(width int) string {
	title := "gridedit"
	var right []string
	if m.ctl != nil {
		cfg := m.ctl.Config()
		title = cfg.TableName
		if cfg.SchemaName != "" {
			title = cfg.SchemaName + "." + title
		}
		if cfg.DBAlias != "" {
			title += styleMuted().Render(" @ " + cfg.DBAlias)
		}
		if label := m.ctl.Label(); label != "" {
			right = append(right, styleDirtyMarker().Render(label))
		}
		p := m.ctl.Page()
		right = append(right, styleMuted().Render(pageText(p)))
	}
	if m.busy() {
		right = append(right, m.spinner.View())
	}
	left := lipgloss.NewStyle().Bold(true).Render(title)
	r := strings.Join(right, "  ")
	gap := width - xansi.StringWidth(left) - xansi.StringWidth(r)
	if gap < 1 {
		gap = 1
	}
	return fitWidth(left+strings.Repeat(" ", gap)+r, width)
}

func pageText(p model.Page) string {
	pages := 1
	if p.PerPage > 0 && p.Total > 0 {
		pages = (p.Total + p.PerPage - 1) / p.PerPage
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	return fmt.Sprintf("page %d/%d · %d rows", page, pages, p.Total)
}

// cellText renders a cell's current text. Checkboxes become glyphs; a NULL
// boolean shows blank.
func cellText(cl *cell.Cell) string {
	if cl == nil {
		return ""
	}
	t := cl.Text()
	if cl.Kind() == cell.KindCheckbox {
		switch t {
		case "true":
			return glyphChecked()
		case "false":
			return glyphUnchecked()
		}
		return ""
	}
	return t
}

func (m gridModel) columnWidths() []int {
	if m.ctl == nil {
		return nil
	}
	cols := m.ctl.Config().Columns
	widths := make([]int, len(cols))
	for i, c := range cols {
		w := xansi.StringWidth(m.columnLabel(c)) + 1
		for _, row := range m.ctl.Rows() {
			if tw := xansi.StringWidth(cellText(row.Cell(c.Name))); tw > w {
				w = tw
			}
		}
		widths[i] = min(max(w, minColumnWidth), maxColumnWidth)
	}
	return widths
}

func (m gridModel) columnLabel(c model.Column) string {
	label := c.Name
	if m.ctl.Config().IsPKColumn(c.Name) {
		label += " " + glyphKey()
	}
	if m.query.Sort == c.Name {
		if strings.EqualFold(m.query.Order, "desc") {
			label += " " + glyphSortDesc()
		} else {
			label += " " + glyphSortAsc()
		}
	}
	if m.query.Filters[c.Name] != "" {
		label += " /"
	}
	return label
}

func (m gridModel) viewTable(width, height int) string {
	cols := m.ctl.Config().Columns
	widths := m.columnWidths()

	// Columns from m.left that fit the terminal.
	avail := width - gutterWidth
	last := m.left
	for used := 0; last < len(cols); last++ {
		if used+widths[last] > avail && last > m.left {
			break
		}
		used += widths[last] + 1
	}

	var b strings.Builder
	var head []string
	for i := m.left; i < last; i++ {
		head = append(head, fitWidth(m.columnLabel(cols[i]), widths[i]))
	}
	b.WriteString(strings.Repeat(" ", gutterWidth))
	b.WriteString(styleHeader().Render(strings.Join(head, " ")))
	b.WriteString("\n")
	b.WriteString(styleMuted().Render(strings.Repeat(glyphHRule(), max(width, 1))))

	rows := m.ctl.Rows()
	if len(rows) == 0 {
		b.WriteString("\n")
		b.WriteString(styleMuted().Render("No rows."))
		return normalizePane(b.String(), width, height+2)
	}
	end := min(m.top+height, len(rows))
	for r := m.top; r < end; r++ {
		row := rows[r]
		b.WriteString("\n")
		if row.Dirty() {
			b.WriteString(styleDirtyMarker().Render(glyphDirty()) + " ")
		} else {
			b.WriteString("  ")
		}
		var line []string
		for i := m.left; i < last; i++ {
			line = append(line, m.renderCell(row, r, i, cols[i], widths[i]))
		}
		b.WriteString(strings.Join(line, " "))
	}
	return normalizePane(b.String(), width, height+2)
}

func (m gridModel) renderCell(row *grid.Row, r, c int, col model.Column, w int) string {
	cl := row.Cell(col.Name)
	selected := r == m.row && c == m.col
	if selected && m.editing && cl != nil && cl.Editing() && cl.Kind() != cell.KindCheckbox {
		return styleEditing().Render(fitWidth(m.editor.View(), w))
	}
	text := fitWidth(cellText(cl), w)
	switch {
	case selected && cl != nil && cl.Editing():
		return styleEditing().Render(text)
	case selected:
		return styleSelected().Render(text)
	case cl != nil && cl.Changed():
		return styleChanged().Render(text)
	case cl == nil || !cl.Editable:
		return styleMuted().Render(text)
	}
	return text
}

func (m gridModel) viewFooter(width int) string {
	var notice string
	switch m.notice.Kind {
	case grid.NoticeSuccess:
		notice = lipgloss.NewStyle().Foreground(colorSuccessFg).Render(m.notice.Text)
	case grid.NoticeError:
		notice = lipgloss.NewStyle().Foreground(colorErrorFg).Bold(true).Render(m.notice.Text)
	case grid.NoticeInfo:
		notice = styleMuted().Render(m.notice.Text)
	}
	m.help.Width = width
	var keys string
	if m.editing {
		keys = m.help.View(editingKeys{m.keys})
	} else {
		keys = m.help.View(m.keys)
	}
	return fitWidth(notice, width) + "\n" + keys
}

func (m gridModel) viewDraft(width int) string {
	d := m.ctl.Draft()
	bodyW := modalBodyWidth(width)
	var lines []string
	if d == nil || len(d.Fields) == 0 {
		lines = append(lines, styleMuted().Render("Every column is generated by the server."))
	} else {
		for i, f := range d.Fields {
			col, _ := m.ctl.Config().Column(f.Column)
			name := f.Column
			if i == m.draftFocus {
				name = lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render(name)
			}
			label := name + styleMuted().Render(" "+col.DataType)
			if !col.IsNullable {
				label += " *"
			}
			lines = append(lines, label)
			if f.Kind() == cell.KindCheckbox {
				lines = append(lines, " "+cellText(f))
			} else {
				lines = append(lines, renderInputLine(bodyW, m.draftInputs[i].View()))
			}
		}
	}
	if m.notice.Kind == grid.NoticeError {
		lines = append(lines, "", lipgloss.NewStyle().Foreground(colorErrorFg).Width(bodyW).Render(m.notice.Text))
	}
	lines = append(lines, "", styleMuted().Width(bodyW).Render("tab: next   space: toggle   ctrl+t: now   enter: insert   esc: cancel"))
	return renderModalBox(width, "New row", strings.Join(lines, "\n"))
}
