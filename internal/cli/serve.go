package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gridedit/internal/sandbox"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string
	var dbPath string
	var fixturePath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sandbox grid backend (SQLite-backed, seeded from a YAML fixture)",
		Example: strings.TrimSpace(`
gridedit serve
gridedit serve --addr 127.0.0.1:9000 --db ./grid.sqlite --fixture ./tables.yaml
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog, err := app.logger(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fx, err := loadFixture(fixturePath)
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := sandbox.Open(ctx, dbPath)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()
			if err := st.Seed(ctx, fx); err != nil {
				return writeErr(cmd, err)
			}
			srv, err := sandbox.NewServer(ctx, st, logger)
			if err != nil {
				return writeErr(cmd, err)
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return writeErr(cmd, err)
			}
			base := "http://" + ln.Addr().String()

			tables, err := st.Tables(ctx)
			if err != nil {
				_ = ln.Close()
				return writeErr(cmd, err)
			}
			names := make([]string, 0, len(tables))
			for _, t := range tables {
				names = append(names, t.Name)
			}
			var hints []string
			if len(names) > 0 {
				hints = append(hints, "gridedit --url "+base+"/tables/"+names[0]+"/")
			}
			if err := writeOut(cmd, app, map[string]any{
				"data":   map[string]any{"addr": ln.Addr().String(), "url": base + "/tables/", "db": dbPath, "tables": names},
				"_hints": hints,
			}); err != nil {
				_ = ln.Close()
				return err
			}

			hs := &http.Server{
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return hs.Shutdown(shutdownCtx)
			})
			logger.Info("sandbox listening", "addr", ln.Addr().String(), "db", dbPath)
			if err := g.Wait(); err != nil {
				return writeErr(cmd, err)
			}
			logger.Info("sandbox stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", envOr("GRIDEDIT_ADDR", "127.0.0.1:8765"), "Listen address")
	cmd.Flags().StringVar(&dbPath, "db", envOr("GRIDEDIT_DB", "gridedit.sqlite"), "SQLite database path")
	cmd.Flags().StringVar(&fixturePath, "fixture", "", "YAML fixture describing tables and seed rows (default: built-in demo tables)")
	return cmd
}

func loadFixture(path string) (sandbox.Fixture, error) {
	if strings.TrimSpace(path) == "" {
		return sandbox.DefaultFixture()
	}
	return sandbox.LoadFixture(path)
}
