// Package api wires the shared building blocks into a runnable reference
// server: configuration, token auth, and the SSE transport behind one
// http.Server with graceful shutdown.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/timada-org/mcp-core/auth"
	"github.com/timada-org/mcp-core/config"
	"github.com/timada-org/mcp-core/sse"
)

const shutdownTimeout = 10 * time.Second

type Options struct {
	Config *config.Config
	Logger zerolog.Logger
}

type App struct {
	config *config.Config
	log    zerolog.Logger
	sse    *sse.Server
	http   *http.Server
}

func New(options Options) (*App, error) {
	cfg := options.Config

	sseServer := sse.New(&sse.ServerOptions{Logger: options.Logger})

	token, generated, err := cfg.GetOrGenerateToken()
	if err != nil {
		return nil, err
	}

	if generated {
		options.Logger.Info().Str("token", token).Msg("generated auth token")
	}

	handler := auth.Middleware(auth.NewTokenAuth(token), sseServer.Router())

	httpServer := &http.Server{
		Addr:    cfg.SocketAddr(),
		Handler: handler,
		// Header timeout only: SSE streams stay open indefinitely, so a
		// write or idle timeout would sever healthy sessions.
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		config: cfg,
		log:    options.Logger,
		sse:    sseServer,
		http:   httpServer,
	}, nil
}

// Listen serves until ctx is canceled, then tears down: sessions first, so
// stream handlers return, then the http server.
func (app *App) Listen(ctx context.Context) error {
	go app.acceptLoop(ctx)

	errCh := make(chan error, 1)

	go func() {
		app.log.Info().Str("addr", app.http.Addr).Msg("listening")
		errCh <- app.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		app.sse.Shutdown()
		return err
	case <-ctx.Done():
	}

	app.log.Info().Msg("shutting down")
	app.sse.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.http.Shutdown(shutdownCtx); err != nil {
		app.log.Error().Err(err).Msg("graceful shutdown failed; forcing close")
		return app.http.Close()
	}

	return nil
}

func (app *App) acceptLoop(ctx context.Context) {
	for {
		session, err := app.sse.NextTransport(ctx)
		if err != nil {
			if !errors.Is(err, sse.ErrServerClosed) && !errors.Is(err, context.Canceled) {
				app.log.Error().Err(err).Msg("accept loop stopped")
			}

			return
		}

		go app.serve(ctx, session)
	}
}

// serve is the reference session handler: it echoes every inbound payload
// back as a message event. Real servers run their protocol engine here.
func (app *App) serve(ctx context.Context, session *sse.Session) {
	for {
		payload, err := session.Receive(ctx)
		if err != nil {
			return
		}

		event := &sse.Event{Name: sse.EventMessage, Data: json.RawMessage(payload)}
		if err := session.Send(ctx, event); err != nil {
			app.log.Warn().Err(err).Str("session_id", session.ID()).Msg("could not echo message")
			return
		}
	}
}
