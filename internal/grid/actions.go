package grid

import (
	"context"
	"errors"
	"fmt"

	"gridedit/internal/client"
	"gridedit/internal/model"
	"gridedit/internal/pk"
)

type NoticeKind int

const (
	NoticeNone NoticeKind = iota
	NoticeInfo
	NoticeSuccess
	NoticeError
)

// Notice is a transient user notification. Reload asks the caller to fetch the
// page again (after a successful insert).
type Notice struct {
	Kind   NoticeKind
	Text   string
	Reload bool
}

func (n Notice) Empty() bool { return n.Kind == NoticeNone }

func info(s string) Notice    { return Notice{Kind: NoticeInfo, Text: s} }
func success(s string) Notice { return Notice{Kind: NoticeSuccess, Text: s} }
func failure(s string) Notice { return Notice{Kind: NoticeError, Text: s} }

var busyNotice = info("A request is already in progress.")

// failureText maps the three recoverable failure kinds to user-facing text.
func failureText(action string, err error) string {
	var serverErr *client.ServerError
	switch {
	case errors.As(err, &serverErr):
		return fmt.Sprintf("%s failed: %s", action, serverErr.Error())
	case errors.Is(err, client.ErrInvalidResponse):
		return fmt.Sprintf("%s failed: invalid response", action)
	default:
		return fmt.Sprintf("%s failed: network error", action)
	}
}

// SaveBatch is an issued save: the request plus what was sent for each row.
type SaveBatch struct {
	Request model.SaveRequest

	rows []*Row
	sent []map[string]string
}

// BeginSave builds the batch from the dirty set. It reports false, issuing
// nothing, when the set is empty or another request is in flight.
func (c *Controller) BeginSave() (*SaveBatch, bool) {
	if c.inFlight || c.dirty.Len() == 0 {
		return nil, false
	}
	b := &SaveBatch{Request: model.SaveRequest{Rows: []model.SaveRow{}}}
	for _, row := range c.dirty.Rows() {
		key, ok := row.Key()
		if !ok {
			continue
		}
		values := row.Values()
		b.rows = append(b.rows, row)
		b.sent = append(b.sent, values)
		b.Request.Rows = append(b.Request.Rows, model.SaveRow{PK: key, Columns: values})
	}
	if len(b.rows) == 0 {
		return nil, false
	}
	c.inFlight = true
	return b, true
}

// FinishSave reconciles a save response. On any failure nothing but the
// in-flight flag changes. On success the sent values become the originals.
func (c *Controller) FinishSave(b *SaveBatch, res model.Result, err error) Notice {
	c.inFlight = false
	if err == nil && !res.OK {
		err = &client.ServerError{Result: res}
	}
	if err != nil {
		c.logger.Warn("save failed", "rows", len(b.rows), "error", err)
		return failure(failureText("Save", err))
	}

	for i, row := range b.rows {
		sent := b.sent[i]
		for _, cl := range row.Cells {
			v, ok := sent[cl.Column]
			if !ok || !cl.Editable {
				continue
			}
			cl.Commit(v)
			if cl.Changed() && !cl.Editing() {
				cl.Display.Text = cl.ReadCurrentValue()
			}
		}
		// Edits made while the request was in flight keep the row dirty.
		c.recheck(row)
	}

	c.logger.Info("saved rows", "rows", len(b.rows), "updated", res.Updated)
	if res.Updated != nil {
		return success(fmt.Sprintf("Saved %d row(s).", *res.Updated))
	}
	return success("Saved.")
}

// Save issues one batch save and reconciles it. The bool reports whether a
// request was made.
func (c *Controller) Save(ctx context.Context) (Notice, bool) {
	b, ok := c.BeginSave()
	if !ok {
		if c.inFlight {
			return busyNotice, false
		}
		return Notice{}, false
	}
	res, err := c.transport.Save(ctx, b.Request)
	return c.FinishSave(b, res, err), true
}

// Draft returns the open insert draft, if any.
func (c *Controller) Draft() *Draft { return c.draft }

// OpenDraft opens (or returns the already open) insert draft.
func (c *Controller) OpenDraft() *Draft {
	if c.draft == nil {
		c.draft = NewDraft(c.cfg)
	}
	return c.draft
}

func (c *Controller) CancelDraft() { c.draft = nil }

type InsertOp struct {
	Request model.InsertRequest
	draft   *Draft
}

// BeginInsert builds the insert request from the open draft.
func (c *Controller) BeginInsert() (*InsertOp, bool) {
	if c.inFlight || c.draft == nil {
		return nil, false
	}
	c.inFlight = true
	return &InsertOp{
		Request: model.InsertRequest{Columns: c.draft.Columns()},
		draft:   c.draft,
	}, true
}

// FinishInsert discards the draft and asks for a reload on success; on failure
// the draft stays open with its input intact.
func (c *Controller) FinishInsert(op *InsertOp, res model.Result, err error) Notice {
	c.inFlight = false
	if err == nil && !res.OK {
		err = &client.ServerError{Result: res}
	}
	if err != nil {
		c.logger.Warn("insert failed", "error", err)
		return failure(failureText("Insert", err))
	}
	if c.draft == op.draft {
		c.draft = nil
	}
	c.logger.Info("inserted row")
	n := success("Row inserted.")
	n.Reload = true
	return n
}

func (c *Controller) Insert(ctx context.Context) (Notice, bool) {
	op, ok := c.BeginInsert()
	if !ok {
		if c.inFlight {
			return busyNotice, false
		}
		return Notice{}, false
	}
	res, err := c.transport.Insert(ctx, op.Request)
	return c.FinishInsert(op, res, err), true
}

// DeletePrompt is the confirmation copy for deleting row r. It reports false
// for rows without identity, which cannot be deleted.
func (c *Controller) DeletePrompt(r int) (string, bool) {
	row := c.Row(r)
	if row == nil {
		return "", false
	}
	key, ok := row.Key()
	if !ok {
		return "", false
	}
	return fmt.Sprintf("Permanently delete row %s? This cannot be undone.", key.String()), true
}

type DeleteOp struct {
	Request model.DeleteRequest
	key     pk.Key
}

// BeginDelete requires an explicit confirmation.
func (c *Controller) BeginDelete(r int, confirmed bool) (*DeleteOp, bool) {
	if !confirmed || c.inFlight {
		return nil, false
	}
	row := c.Row(r)
	if row == nil {
		return nil, false
	}
	key, ok := row.Key()
	if !ok {
		return nil, false
	}
	c.inFlight = true
	return &DeleteOp{Request: model.DeleteRequest{PKs: []pk.Key{key}}, key: key}, true
}

// FinishDelete removes the row on success and leaves it in place otherwise.
func (c *Controller) FinishDelete(op *DeleteOp, res model.Result, err error) Notice {
	c.inFlight = false
	if err == nil && !res.OK {
		err = &client.ServerError{Result: res}
	}
	if err != nil {
		c.logger.Warn("delete failed", "pk", op.key.String(), "error", err)
		return failure(failureText("Delete", err))
	}
	if i := c.FindRow(op.key.String()); i >= 0 {
		c.dirty.Unmark(c.rows[i])
		c.rows = append(c.rows[:i], c.rows[i+1:]...)
	}
	n := 1
	if res.Deleted != nil {
		n = *res.Deleted
	}
	c.logger.Info("deleted row", "pk", op.key.String(), "deleted", n)
	return success(fmt.Sprintf("Deleted %d row(s).", n))
}

func (c *Controller) Delete(ctx context.Context, r int, confirmed bool) (Notice, bool) {
	op, ok := c.BeginDelete(r, confirmed)
	if !ok {
		if c.inFlight {
			return busyNotice, false
		}
		return Notice{}, false
	}
	res, err := c.transport.Delete(ctx, op.Request)
	return c.FinishDelete(op, res, err), true
}
