package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the IdeaFlow HTTP API.

Connects to storage (applying pending migrations on Postgres), seeds the
administrator from ADMIN_EMAIL/ADMIN_PASSWORD when both are set, and
prunes expired revocation entries on REVOCATION_PRUNE_INTERVAL_SECONDS.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				rootOpts.cfg.Addr = addr
			}
			return serve(cmd.Context(), rootOpts)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides API_ADDR)")
	return cmd
}

func serve(parent context.Context, opts *RootOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger := opts.cfg, opts.logger
	rt, err := buildRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.seedAdmin(ctx); err != nil {
		logger.Warn("admin seed failed (will retry on next restart)", "error", err)
	}

	go pruneLoop(ctx, rt, cfg.RevocationPruneInterval)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           rt.httpServer().Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("IdeaFlow API listening", "addr", cfg.Addr, "storage", cfg.Storage)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	return nil
}

// pruneLoop drops expired revocation entries until ctx ends. A zero
// interval disables it.
func pruneLoop(ctx context.Context, rt *runtime, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := rt.revocations.Prune(ctx)
			if err != nil {
				rt.logger.Warn("revocation prune failed", "error", err)
				continue
			}
			if removed > 0 {
				rt.logger.Info("revocations pruned", "removed", removed)
			}
		}
	}
}
