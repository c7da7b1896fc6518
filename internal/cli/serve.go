package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/roach88/storefront/internal/httpapi"
	"github.com/roach88/storefront/internal/metrics"
	"github.com/roach88/storefront/internal/router"
	"github.com/roach88/storefront/internal/session"
)

// shutdownTimeout bounds graceful shutdown of in-flight requests.
const shutdownTimeout = 5 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a storefront session over HTTP",
		Long: `Serve one storefront session over an HTTP API.

Backends come from the config file: accounts and profiles in memory, SQLite
or Postgres; avatars in memory, on disk or in S3. State changes are pushed
to websocket clients on /events and metrics are exposed on /metrics.

Example:
  storefront serve
  storefront serve --config storefront.yaml --listen :9090`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (overrides config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if opts.Listen != "" {
		cfg.Listen = opts.Listen
	}
	setupLogging(cmd.ErrOrStderr(), opts.RootOptions, cfg.Log)

	seed, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	b, err := openBackends(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open backends", err)
	}
	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sess, err := session.New(session.Deps{
		Catalog:          seed,
		Identity:         b.identity,
		Profiles:         b.profiles,
		Blobs:            b.blobs,
		Router:           router.NewHistory(router.DefaultTarget),
		Gap:              cfg.NotificationGap,
		Metrics:          metrics.New(reg),
		DefaultAvatarURL: cfg.DefaultAvatarURL,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build session", err)
	}
	defer sess.Close()

	api := httpapi.New(sess,
		httpapi.WithGatherer(reg),
		httpapi.WithMaxUpload(cfg.Blob.MaxSize),
	)

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}
	srv := &http.Server{
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	slog.Info("server starting",
		"addr", ln.Addr().String(),
		"database", cfg.Database.Driver,
		"blob", cfg.Blob.Backend,
		"items", len(seed.Items),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", ln.Addr())

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server error", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "shutdown failed", err)
	}
	slog.Info("server stopped gracefully")
	return nil
}
