package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gridedit/internal/client"
	"gridedit/internal/grid"
	"gridedit/internal/model"

	tea "github.com/charmbracelet/bubbletea"
)

const defaultNoticeTTL = 4 * time.Second

type pageLoadedMsg struct {
	page model.Page
	err  error
}

// The done messages carry the controller that issued the request so a result
// never lands on a grid that was rebuilt in the meantime.
type saveDoneMsg struct {
	ctl   *grid.Controller
	batch *grid.SaveBatch
	res   model.Result
	err   error
}

type insertDoneMsg struct {
	ctl *grid.Controller
	op  *grid.InsertOp
	res model.Result
	err error
}

type deleteDoneMsg struct {
	ctl *grid.Controller
	op  *grid.DeleteOp
	res model.Result
	err error
}

type noticeExpiredMsg struct{ seq int }

func loadCmd(ctx context.Context, src Source, q model.Query) tea.Cmd {
	return func() tea.Msg {
		page, err := src.Load(ctx, q)
		return pageLoadedMsg{page: page, err: err}
	}
}

func saveCmd(ctx context.Context, src Source, ctl *grid.Controller, b *grid.SaveBatch) tea.Cmd {
	return func() tea.Msg {
		res, err := src.Save(ctx, b.Request)
		return saveDoneMsg{ctl: ctl, batch: b, res: res, err: err}
	}
}

func insertCmd(ctx context.Context, src Source, ctl *grid.Controller, op *grid.InsertOp) tea.Cmd {
	return func() tea.Msg {
		res, err := src.Insert(ctx, op.Request)
		return insertDoneMsg{ctl: ctl, op: op, res: res, err: err}
	}
}

func deleteCmd(ctx context.Context, src Source, ctl *grid.Controller, op *grid.DeleteOp) tea.Cmd {
	return func() tea.Msg {
		res, err := src.Delete(ctx, op.Request)
		return deleteDoneMsg{ctl: ctl, op: op, res: res, err: err}
	}
}

func loadFailureText(err error) string {
	var invalid *client.InvalidResponseError
	switch {
	case errors.As(err, &invalid) && invalid.StatusCode >= 400:
		return fmt.Sprintf("Load failed: HTTP %d", invalid.StatusCode)
	case errors.Is(err, client.ErrInvalidResponse):
		return "Load failed: invalid response"
	default:
		return "Load failed: network error"
	}
}
