package tui

import (
	"context"
	"log/slog"
	"time"

	"gridedit/internal/cell"
	"gridedit/internal/grid"
	"gridedit/internal/model"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Source loads grid pages and performs the three writes.
type Source interface {
	grid.Transport
	Load(ctx context.Context, q model.Query) (model.Page, error)
}

type Options struct {
	Query  model.Query
	Logger *slog.Logger
	// Now is the clock behind "set to now"; defaults to time.Now.
	Now func() time.Time
}

type gridModel struct {
	ctx    context.Context
	src    Source
	query  model.Query
	ctl    *grid.Controller
	logger *slog.Logger
	now    func() time.Time

	width  int
	height int

	row  int
	col  int
	top  int
	left int

	editor  textinput.Model
	editing bool

	modal        modalKind
	confirmFocus confirmModalFocus
	deleteRow    int
	deletePrompt string
	draftInputs  []textinput.Model
	draftFocus   int
	filterInput  textinput.Model
	filterColumn string

	loading   bool
	notice    grid.Notice
	noticeSeq int
	noticeTTL time.Duration

	spinner spinner.Model
	keys    keyMap
	help    help.Model
}

func newGridModel(ctx context.Context, src Source, opts Options) gridModel {
	m := gridModel{
		ctx:       ctx,
		src:       src,
		query:     opts.Query,
		logger:    opts.Logger,
		now:       opts.Now,
		loading:   true,
		noticeTTL: defaultNoticeTTL,
		keys:      defaultKeyMap(),
		help:      help.New(),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}
	if m.now == nil {
		m.now = time.Now
	}
	m.editor = newInput("")
	m.filterInput = newInput("substring")
	return m
}

func newInput(placeholder string) textinput.Model {
	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = placeholder
	in.CharLimit = 0
	in.Width = 24
	_ = in.Cursor.SetMode(cursor.CursorStatic)
	return in
}

func (m gridModel) Init() tea.Cmd {
	return tea.Batch(loadCmd(m.ctx, m.src, m.query), m.spinner.Tick)
}

func (m gridModel) busy() bool {
	return m.loading || (m.ctl != nil && m.ctl.InFlight())
}

// applyPage swaps in a controller for a freshly loaded page, keeping the
// cursor where it was when possible.
func (m *gridModel) applyPage(page model.Page) {
	m.ctl = grid.New(page, m.src, grid.WithLogger(m.logger), grid.WithClock(m.now))
	m.query.Page = page.Page
	m.query.PerPage = page.PerPage
	if page.Sort != "" {
		m.query.Sort, m.query.Order = page.Sort, page.Order
	}
	m.editing = false
	m.clampCursor()
}

func (m *gridModel) clampCursor() {
	if m.ctl == nil {
		return
	}
	if n := len(m.ctl.Rows()); m.row >= n {
		m.row = n - 1
	}
	if m.row < 0 {
		m.row = 0
	}
	if n := len(m.ctl.Config().Columns); m.col >= n {
		m.col = n - 1
	}
	if m.col < 0 {
		m.col = 0
	}
	m.scrollIntoView()
}

func (m *gridModel) move(dr, dc int) {
	m.row += dr
	m.col += dc
	m.clampCursor()
}

func (m *gridModel) tableHeight() int {
	h := m.height - 6
	if m.height == 0 {
		h = 20
	}
	if h < 3 {
		h = 3
	}
	return h
}

func (m *gridModel) scrollIntoView() {
	h := m.tableHeight()
	if m.row < m.top {
		m.top = m.row
	}
	if m.row >= m.top+h {
		m.top = m.row - h + 1
	}
	if m.col < m.left {
		m.left = m.col
	}
	widths := m.columnWidths()
	avail := m.viewWidth() - gutterWidth
	for m.left < m.col {
		used := 0
		for i := m.left; i <= m.col && i < len(widths); i++ {
			used += widths[i] + 1
		}
		if used <= avail {
			break
		}
		m.left++
	}
}

func (m gridModel) viewWidth() int {
	if m.width == 0 {
		return 100
	}
	return m.width
}

func (m gridModel) currentCell() *cell.Cell {
	if m.ctl == nil {
		return nil
	}
	return m.ctl.Cell(m.row, m.col)
}

// setNotice shows a toast and schedules its expiry.
func (m *gridModel) setNotice(n grid.Notice) tea.Cmd {
	if n.Empty() {
		return nil
	}
	m.notice = n
	m.noticeSeq++
	if m.noticeTTL <= 0 {
		return nil
	}
	seq := m.noticeSeq
	return tea.Tick(m.noticeTTL, func(time.Time) tea.Msg { return noticeExpiredMsg{seq: seq} })
}

func (m *gridModel) info(text string) tea.Cmd {
	return m.setNotice(grid.Notice{Kind: grid.NoticeInfo, Text: text})
}
