package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	chiTransport "github.com/kailas-cloud/archivist/internal/transport/chi"
)

func newHTTPCmd(o *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve search, stats, health and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := o.app(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			cfg := app.Config.HTTP
			if port > 0 {
				cfg.Port = port
			}

			server := chiTransport.NewServer(app.Searcher, app.Health, app.History, app.Logger)
			srv := &http.Server{
				Addr:         fmt.Sprintf(":%d", cfg.Port),
				Handler:      server.Router(cfg.APIKeys),
				ReadTimeout:  time.Duration(cfg.ReadTimeoutSec) * time.Second,
				WriteTimeout: time.Duration(cfg.WriteTimeoutSec) * time.Second,
			}
			return serveHTTP(cmd.Context(), srv, time.Duration(cfg.ShutdownSec)*time.Second, app.Logger)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (default from config)")
	return cmd
}

// serveHTTP runs srv until ctx is done, then shuts it down gracefully.
func serveHTTP(ctx context.Context, srv *http.Server, shutdown time.Duration, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Received shutdown signal")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdown)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Server stopped gracefully")
	return nil
}
