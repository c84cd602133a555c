package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/groupchat/internal/auth"
	"github.com/desertthunder/groupchat/internal/shared"
	"github.com/desertthunder/groupchat/internal/web"
)

const shutdownTimeout = 10 * time.Second

// Serve runs the web server until SIGINT or SIGTERM, then shuts it down gracefully.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if port := cmd.Int("port"); port > 0 {
		r.config.Server.Port = int(port)
	}
	if err := r.config.Validate(); err != nil {
		return err
	}

	handler, err := r.webHandler()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := r.config.Server.Addr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("starting web server", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err := <-serverErrors:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	r.logger.Info("shutting down web server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// webHandler wires the web app to the runner's store, Spotify service and chat engine.
func (r *Runner) webHandler() (http.Handler, error) {
	spotify, err := r.openSpotify()
	if err != nil {
		return nil, err
	}

	sessions, err := auth.NewSessions(r.config.Server.SessionSecret, r.config.Server.SessionTTL())
	if err != nil {
		return nil, err
	}

	app, err := web.NewApp(web.Deps{
		Accounts:      auth.NewAccountService(r.store.Accounts, shared.WithLogger(r.logger, "component", "auth")),
		Sessions:      sessions,
		Spotify:       spotify,
		Chat:          r.engine,
		Store:         r.store,
		SecureCookies: r.config.Server.SecureCookies,
	}, shared.WithLogger(r.logger, "component", "web"))
	if err != nil {
		return nil, err
	}

	return app.Handler(), nil
}
