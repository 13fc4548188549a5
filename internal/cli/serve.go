package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/evcraddock/prospector/internal/analyst"
	"github.com/evcraddock/prospector/internal/auth"
	"github.com/evcraddock/prospector/internal/company"
	"github.com/evcraddock/prospector/internal/config"
	"github.com/evcraddock/prospector/internal/db"
	"github.com/evcraddock/prospector/internal/logging"
	"github.com/evcraddock/prospector/internal/warehouse"
	"github.com/evcraddock/prospector/internal/web"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI and API",
		Long:  "Start an HTTP server for the web UI and the JSON API. Stops gracefully on SIGINT or SIGTERM.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (default: PROSPECTOR_PORT or 8080)")

	return cmd
}

func runServe(ctx context.Context, port int) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logging.Setup(cfg.DevMode)
	if port == 0 {
		port = cfg.Port
	}

	path, err := dbPath(cfg)
	if err != nil {
		return err
	}

	wh, err := warehouse.Open(ctx, cfg, path)
	if err != nil {
		return fmt.Errorf("opening warehouse: %w", err)
	}
	defer closeWarehouse(wh)

	// API keys always live in the local database; reuse the warehouse
	// connection when it is that same file.
	keysDB := wh.DB
	if wh.Driver != config.DriverSQLite {
		var d *sql.DB
		if d, err = db.Open(path); err != nil {
			return err
		}
		defer closeDB(d)
		keysDB = d
	}

	var analystClient *analyst.Client
	if cfg.Analyst.Configured() {
		analystClient, err = analyst.NewClient(cfg.Analyst.URL, cfg.Analyst.Token, cfg.Analyst.SemanticModel,
			analyst.WithRateLimit(cfg.Analyst.RPS, 1))
		if err != nil {
			return fmt.Errorf("creating analyst client: %w", err)
		}
	}

	srv, err := web.NewServer(company.NewRepository(wh.DB, wh.Table), auth.NewAPIKeyStore(keysDB), analystClient)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(port)),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting server",
			"addr", "http://localhost"+httpServer.Addr,
			"driver", wh.Driver,
			"table", wh.Table,
			"analyst", analystClient != nil,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
