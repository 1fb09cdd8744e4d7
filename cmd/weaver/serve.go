package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agenthands/weaver/internal/core"
	"github.com/agenthands/weaver/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var port, natsURL string
	var applySchema bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the graph tools over HTTP and, when configured, NATS",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				a.cfg.Server.Port = port
			}
			if natsURL != "" {
				a.cfg.NATS.URL = natsURL
			}
			return a.withWeaver(cmd.Context(), func(w *core.Weaver) error {
				if applySchema {
					if _, err := w.ApplySchema(cmd.Context()); err != nil {
						return err
					}
				}
				return a.serve(cmd.Context(), w)
			})
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "HTTP port (overrides server.port)")
	cmd.Flags().StringVar(&natsURL, "nats-url", "", "NATS server URL (overrides nats.url)")
	cmd.Flags().BoolVar(&applySchema, "apply-schema", false, "create constraints and indexes before serving")
	return cmd
}

func (a *app) serve(ctx context.Context, w *core.Weaver) error {
	toolkit := a.toolkit(w)

	if a.cfg.NATS.URL != "" {
		nc, err := nats.Connect(a.cfg.NATS.URL, nats.Name("weaver"))
		if err != nil {
			return fmt.Errorf("failed to connect to NATS at %s: %w", a.cfg.NATS.URL, err)
		}
		defer nc.Close()

		bridge := server.NewBridge(nc, toolkit, a.cfg.NATS.SubjectPrefix, a.cfg.NATS.Queue, a.logger.Named("nats"))
		if err := bridge.Start(); err != nil {
			return err
		}
		defer bridge.Stop()
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    ":" + a.cfg.Server.Port,
		Handler: server.NewServer(toolkit, w.Driver, a.logger.Named("http")).SetupRouter(),
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return <-errCh
}
