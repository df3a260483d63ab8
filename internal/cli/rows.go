package cli

import (
	"encoding/json"
	"strings"

	"gridedit/internal/model"

	"github.com/spf13/cobra"
)

type rowOut struct {
	PK     json.RawMessage   `json:"pk"`
	Values map[string]string `json:"values"`
}

func newRowsCmd(app *App) *cobra.Command {
	var q model.Query
	var filters []string

	cmd := &cobra.Command{
		Use:   "rows",
		Short: "Print one page of rows",
		Example: strings.TrimSpace(`
gridedit rows
gridedit rows --sort born --order desc --per-page 20 --page 2
gridedit rows --filter email=example.com --format yaml
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog, err := app.logger(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeLog()

			fs, err := parseAssignments(filters)
			if err != nil {
				return writeErr(cmd, err)
			}
			q.Filters = map[string]string{}
			for _, a := range fs {
				q.Filters[a.column] = a.value
			}

			c, err := newClient(app, logger)
			if err != nil {
				return writeErr(cmd, err)
			}
			page, err := c.Load(commandContext(cmd), q)
			if err != nil {
				return writeErr(cmd, err)
			}

			rows := make([]rowOut, 0, len(page.Rows))
			for _, r := range page.Rows {
				rows = append(rows, rowOut{PK: r.PK, Values: r.Values})
			}
			return writeOut(cmd, app, map[string]any{
				"data": rows,
				"meta": map[string]any{
					"table":     page.Config.TableName,
					"pkColumns": page.Config.PKColumns,
					"page":      page.Page,
					"perPage":   page.PerPage,
					"total":     page.Total,
					"sort":      page.Sort,
					"order":     page.Order,
				},
			})
		},
	}

	cmd.Flags().StringVar(&q.Sort, "sort", "", "Sort column")
	cmd.Flags().StringVar(&q.Order, "order", "", "Sort order (asc|desc)")
	cmd.Flags().IntVar(&q.Page, "page", 0, "Page number (1-based)")
	cmd.Flags().IntVar(&q.PerPage, "per-page", 0, "Rows per page")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "Column filter column=substring (repeatable)")
	return cmd
}
