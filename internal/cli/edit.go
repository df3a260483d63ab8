package cli

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"gridedit/internal/cell"
	"gridedit/internal/client"
	"gridedit/internal/grid"
	"gridedit/internal/model"
	"gridedit/internal/pk"

	"github.com/spf13/cobra"
)

// nowValue asks for the "set to now" affordance instead of a literal value.
const nowValue = "@now"

// lookupPerPage is the page size used while searching for a row by key.
var lookupPerPage = 200

// loadRow loads the page holding the row with the given primary key. Object
// keys narrow the page with one filter per key column. Filters match
// substrings, so later pages are read until the key turns up.
func loadRow(ctx context.Context, c *client.Client, logger *slog.Logger, raw string) (*grid.Controller, int, error) {
	key, ok := pk.Parse(raw)
	if !ok {
		return nil, -1, errUsage("invalid --pk %q: expected a JSON object or array of scalars", raw)
	}
	q := model.Query{Page: 1, PerPage: lookupPerPage, Filters: map[string]string{}}
	if obj, ok := key.Value().(map[string]any); ok {
		for col, v := range obj {
			q.Filters[col] = filterValue(v)
		}
	}
	for {
		page, err := c.Load(ctx, q)
		if err != nil {
			return nil, -1, err
		}
		ctl := grid.New(page, c, grid.WithLogger(logger))
		if r := ctl.FindRow(key.String()); r >= 0 {
			return ctl, r, nil
		}
		if len(page.Rows) == 0 || page.Page*page.PerPage >= page.Total {
			return nil, -1, errNotFound("row", key.String())
		}
		logger.Debug("row not on page, reading the next one", "pk", key.String(), "page", page.Page)
		q.Page = page.Page + 1
	}
}

func columnIndex(cfg model.GridConfig, name string) int {
	for i, c := range cfg.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func newSetCmd(app *App) *cobra.Command {
	var rawPK string

	cmd := &cobra.Command{
		Use:   "set --pk JSON column=value...",
		Short: "Edit cells of one row and save them as a batch",
		Args:  cobra.MinimumNArgs(1),
		Example: strings.TrimSpace(`
gridedit set --pk '{"id":1}' name=Alicia
gridedit set --pk '{"id":1}' active=false last_login=@now
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog, err := app.logger(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeLog()

			assigns, err := parseAssignments(args)
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := newClient(app, logger)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := commandContext(cmd)
			ctl, r, err := loadRow(ctx, c, logger, rawPK)
			if err != nil {
				return writeErr(cmd, err)
			}

			// Each assignment is one click, edit and blur, as in the grid.
			for _, a := range assigns {
				col := columnIndex(ctl.Config(), a.column)
				if col < 0 {
					return writeErr(cmd, errNotFound("column", a.column))
				}
				if !ctl.Click(r, col) {
					return writeErr(cmd, errUsage("column %q is not editable", a.column))
				}
				if a.value == nowValue {
					if !ctl.FillNow(r, col) {
						ctl.Key(r, col, grid.KeyEscape)
						return writeErr(cmd, errUsage("column %q is not a date or time", a.column))
					}
				} else {
					kind := ctl.Cell(r, col).Kind()
					if kind == cell.KindCheckbox {
						if _, err := parseBool(a.value); err != nil {
							ctl.Key(r, col, grid.KeyEscape)
							return writeErr(cmd, err)
						}
					}
					ctl.Edit(r, col, normalizeBool(kind, a.value))
				}
				ctl.Blur(r, col)
			}

			key, _ := ctl.Row(r).Key()
			if ctl.DirtyCount() == 0 {
				return writeOut(cmd, app, map[string]any{
					"data":   map[string]any{"pk": key, "saved": false},
					"_hints": []string{"no value differs from the stored row"},
				})
			}
			sent := ctl.Row(r).Values()
			n, _ := ctl.Save(ctx)
			if err := noticeErr(n); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{"pk": key, "saved": true, "columns": sent, "message": n.Text},
			})
		},
	}

	cmd.Flags().StringVar(&rawPK, "pk", "", `Primary key as JSON, e.g. '{"id":1}'`)
	_ = cmd.MarkFlagRequired("pk")
	return cmd
}

func newInsertCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insert column=value...",
		Short: "Insert one row (sequence-generated key columns are filled by the server)",
		Example: strings.TrimSpace(`
gridedit insert name=Dana email=dana@example.com active=true
gridedit insert name=Eve born=@now
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog, err := app.logger(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeLog()

			assigns, err := parseAssignments(args)
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := newClient(app, logger)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := commandContext(cmd)
			page, err := c.Load(ctx, model.Query{PerPage: 1})
			if err != nil {
				return writeErr(cmd, err)
			}
			ctl := grid.New(page, c, grid.WithLogger(logger))

			d := ctl.OpenDraft()
			for _, a := range assigns {
				f := d.Field(a.column)
				if f == nil {
					if ctl.Config().UsesSequence(a.column) {
						return writeErr(cmd, errUsage("column %q is generated by a sequence", a.column))
					}
					return writeErr(cmd, errNotFound("column", a.column))
				}
				if a.value == nowValue {
					if !d.FillNow(a.column, time.Now()) {
						return writeErr(cmd, errUsage("column %q is not a date or time", a.column))
					}
					continue
				}
				if f.Kind() == cell.KindCheckbox {
					if _, err := parseBool(a.value); err != nil {
						return writeErr(cmd, err)
					}
				}
				d.Set(a.column, normalizeBool(f.Kind(), a.value))
			}

			sent := d.Columns()
			n, _ := ctl.Insert(ctx)
			if err := noticeErr(n); err != nil {
				return writeErr(cmd, err)
			}
			var hints []string
			if col := firstPK(ctl.Config()); col != "" {
				hints = append(hints, "gridedit rows --sort "+col+" --order desc")
			}
			return writeOut(cmd, app, map[string]any{
				"data":   map[string]any{"inserted": true, "columns": sent, "message": n.Text},
				"_hints": hints,
			})
		},
	}
	return cmd
}

func newDeleteCmd(app *App) *cobra.Command {
	var rawPK string
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete --pk JSON --yes",
		Short: "Permanently delete one row",
		Example: strings.TrimSpace(`
gridedit delete --pk '{"id":1}' --yes
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog, err := app.logger(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeLog()

			c, err := newClient(app, logger)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := commandContext(cmd)
			ctl, r, err := loadRow(ctx, c, logger, rawPK)
			if err != nil {
				return writeErr(cmd, err)
			}
			prompt, ok := ctl.DeletePrompt(r)
			if !ok {
				return writeErr(cmd, errUsage("row cannot be deleted"))
			}
			if !yes {
				return writeErr(cmd, errUsage("%s Pass --yes to confirm.", prompt))
			}
			key, _ := ctl.Row(r).Key()
			n, _ := ctl.Delete(ctx, r, true)
			if err := noticeErr(n); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{"pk": key, "deleted": true, "message": n.Text},
			})
		},
	}

	cmd.Flags().StringVar(&rawPK, "pk", "", `Primary key as JSON, e.g. '{"id":1}'`)
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")
	_ = cmd.MarkFlagRequired("pk")
	return cmd
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "1", "on":
		return true, nil
	case "false", "f", "no", "0", "off", "":
		return false, nil
	}
	return false, errUsage("expected a boolean, got %q", s)
}

func normalizeBool(k cell.InputKind, v string) string {
	if k != cell.KindCheckbox {
		return v
	}
	if b, _ := parseBool(v); b {
		return "true"
	}
	return "false"
}

func firstPK(cfg model.GridConfig) string {
	if len(cfg.PKColumns) > 0 {
		return cfg.PKColumns[0]
	}
	if len(cfg.Columns) == 0 {
		return ""
	}
	return cfg.Columns[0].Name
}
