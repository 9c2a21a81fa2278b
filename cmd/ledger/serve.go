package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/ledgerdesk/internal/config"
	"github.com/alfredjeanlab/ledgerdesk/internal/events"
	"github.com/alfredjeanlab/ledgerdesk/internal/server"
	"github.com/alfredjeanlab/ledgerdesk/internal/store"
	"github.com/alfredjeanlab/ledgerdesk/internal/store/postgres"
	ledgersync "github.com/alfredjeanlab/ledgerdesk/internal/sync"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ledger HTTP server",
	Long: `Run the ledger HTTP server.

Settings come from LEDGER_* environment variables: LEDGER_DATABASE_URL is
required; LEDGER_NATS_URL enables event publishing; LEDGER_SYNC_* enable the
periodic S3 and git exports.`,
	GroupID: "system",
	Args:    cobra.NoArgs,
	// The server is configured from the environment and needs no client.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
		slog.SetDefault(logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger)
	},
}

// serve runs until ctx is cancelled, then releases everything it started in
// reverse order.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	var cleanups []func()
	defer func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
		logger.Info("shutdown complete")
	}()
	cleanups = append(cleanups, closeWith(logger, "store", db.Close))

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	cleanups = append(cleanups, closeWith(logger, "publisher", publisher.Close))

	handler := server.New(db, publisher,
		server.WithLogger(logger),
		server.WithExportLocale(cfg.ExportLocale),
	).NewHTTPHandler(cfg.AuthToken)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	failed := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr, "auth", cfg.AuthToken != "")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
	}()
	cleanups = append(cleanups, func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			logger.Error("HTTP server shutdown", "err", err)
		}
	})

	if sched := startSync(cfg, db, logger); sched != nil {
		cleanups = append(cleanups, sched.Stop)
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down", "cause", context.Cause(ctx))
		return nil
	case err := <-failed:
		return err
	}
}

func newPublisher(cfg *config.Config, logger *slog.Logger) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		logger.Info("events disabled (LEDGER_NATS_URL not set)")
		return &events.NoopPublisher{}, nil
	}
	pub, err := events.NewNATSPublisher(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	logger.Info("events enabled", "nats_url", cfg.NATSURL)
	return pub, nil
}

func closeWith(logger *slog.Logger, what string, fn func() error) func() {
	return func() {
		if err := fn(); err != nil {
			logger.Error("closing "+what, "err", err)
		}
	}
}

// syncDestinations builds the destinations enabled in cfg. A destination that
// cannot be created is logged and skipped.
func syncDestinations(ctx context.Context, cfg *config.Config, logger *slog.Logger) []ledgersync.Destination {
	var dests []ledgersync.Destination
	if cfg.SyncS3Bucket != "" {
		d, err := ledgersync.NewS3Destination(ctx, cfg.SyncS3Bucket, cfg.SyncS3Prefix, cfg.SyncS3Region, cfg.SyncS3Endpoint)
		if err != nil {
			logger.Error("S3 sync destination unavailable", "err", err)
		} else {
			dests = append(dests, d)
		}
	}
	if cfg.SyncGitRepo != "" {
		dests = append(dests, ledgersync.NewGitDestination(cfg.SyncGitRepo, cfg.SyncGitDir, cfg.SyncGitBranch))
	}
	return dests
}

// startSync starts the export scheduler, or returns nil when sync is
// disabled or has nowhere to write.
func startSync(cfg *config.Config, s store.Store, logger *slog.Logger) *ledgersync.Scheduler {
	if cfg.SyncInterval <= 0 {
		return nil
	}
	dests := syncDestinations(context.Background(), cfg, logger)
	if len(dests) == 0 {
		return nil
	}
	names := make([]string, len(dests))
	for i, d := range dests {
		names[i] = d.Name()
	}
	sched := ledgersync.NewScheduler(s, dests, cfg.SyncInterval, cfg.ExportLocale, logger)
	sched.Start()
	logger.Info("sync scheduler started", "interval", cfg.SyncInterval, "destinations", names)
	return sched
}
