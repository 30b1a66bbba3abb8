package app

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

// Start runs the API and code stream servers until SIGINT, SIGTERM or SIGHUP
// arrives. The returned channel is closed once a signal was received; the
// caller is expected to call Stop afterwards.
func (a *App) Start() <-chan struct{} {
	terminate := make(chan struct{})

	for _, srv := range []struct {
		name   string
		server *http.Server
	}{
		{"http", a.httpServer},
		{"sse", a.sseServer},
	} {
		go func() {
			slog.Info("server listening", "server", srv.name, "address", srv.server.Addr)

			if err := srv.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				slog.Error("server stopped unexpectedly", "server", srv.name, "error", err)
				os.Exit(1)
			}
		}()
	}

	go func() {
		ctx, stop := signal.NotifyContext(a.ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
		defer stop()

		<-ctx.Done()
		a.cancel()
		close(terminate)

		slog.Info("shutdown signal received")
	}()

	return terminate
}

// Serve runs the API server on l. Tests use it with an ephemeral port.
func (a *App) Serve(l net.Listener) <-chan error {
	return serveOn(a.httpServer, l)
}

// ServeStream runs the code stream server on l.
func (a *App) ServeStream(l net.Listener) <-chan error {
	return serveOn(a.sseServer, l)
}

func serveOn(srv *http.Server, l net.Listener) <-chan error {
	errc := make(chan error, 1)

	go func() {
		defer close(errc)
		if err := srv.Serve(l); !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	return errc
}

// Stop shuts the servers down, waits for background consumers and then
// releases resources in registration order.
func (a *App) Stop(ctx context.Context) {
	a.cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to close resources", "name", "HTTP Server", "error", err)
	}
	if err := a.sseServer.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to close resources", "name", "SSE Server", "error", err)
	}

	slog.InfoContext(ctx, "waiting for background consumers")
	if err := a.goroutine.Wait(); err != nil {
		slog.ErrorContext(ctx, "background consumer failed", "error", err)
	}

	for _, closer := range a.closers {
		if err := closer.fn(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to close resources", "name", closer.name, "error", err)
		}
	}

	slog.InfoContext(ctx, "application stopped")
}
