package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"gridedit/internal/client"
	"gridedit/internal/format"
	"gridedit/internal/logging"
	"gridedit/internal/tui"

	"github.com/spf13/cobra"
)

const defaultURL = "http://127.0.0.1:8765/tables/people/"

type App struct {
	URL        string
	Format     string
	PrettyJSON bool
	LogLevel   string
	LogFile    string
	Timeout    time.Duration
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "gridedit",
		Short:        "Edit database tables as a grid: batch save, insert and delete over JSON",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start a local sandbox backend
  gridedit serve --db ./grid.sqlite

  # Edit a table interactively
  gridedit --url http://127.0.0.1:8765/tables/people/

  # Scriptable commands
  gridedit rows --sort name --filter email=example
  gridedit set --pk '{"id":1}' name=Alicia active=true
  gridedit insert name=Dana born=@now
  gridedit delete --pk '{"id":1}' --yes
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive grid.
			if len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.URL, "url", envOr("GRIDEDIT_URL", defaultURL), "Grid page URL (absolute)")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("GRIDEDIT_FORMAT", "json"), "Output format (json|yaml)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("GRIDEDIT_LOG_LEVEL", "info"), "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&app.LogFile, "log-file", envOr("GRIDEDIT_LOG_FILE", ""), "Append logs to this file (the grid UI only logs to a file)")
	cmd.PersistentFlags().DurationVar(&app.Timeout, "timeout", 15*time.Second, "HTTP request timeout")

	cmd.AddCommand(newRowsCmd(app))
	cmd.AddCommand(newSetCmd(app))
	cmd.AddCommand(newInsertCmd(app))
	cmd.AddCommand(newDeleteCmd(app))
	cmd.AddCommand(newServeCmd(app))

	return cmd
}

func runTUI(cmd *cobra.Command, app *App) error {
	level, err := logging.ParseLevel(app.LogLevel)
	if err != nil {
		return writeErr(cmd, err)
	}
	logger, closeLog, err := logging.OpenFile(app.LogFile, level)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer closeLog()

	c, err := newClient(app, logger)
	if err != nil {
		return writeErr(cmd, err)
	}
	return tui.Run(cmd.Context(), c, tui.Options{Logger: logger})
}

// logger writes to stderr and, with --log-file, to the file as well.
func (app *App) logger(cmd *cobra.Command) (*slog.Logger, func() error, error) {
	level, err := logging.ParseLevel(app.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return logging.Tee(cmd.ErrOrStderr(), app.LogFile, level)
}

func newClient(app *App, logger *slog.Logger) (*client.Client, error) {
	return client.New(app.URL,
		client.WithHTTPClient(&http.Client{Timeout: app.Timeout}),
		client.WithLogger(logger),
	)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
