package app

import (
	"context"
	"io"
	"strings"

	"github.com/vk/spacesd/internal/ctxlog"
	"github.com/vk/spacesd/internal/engine"
	"github.com/vk/spacesd/internal/server"
	"github.com/vk/spacesd/internal/session"
)

// Run executes the application: serve mode when a listen address is
// configured, otherwise one direct resolution with the report printed to
// the application's output writer.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run started.")

	handler := session.NewHandler(a.defs, a.root, a.registry, engine.Options{
		Workers: a.config.Workers,
		Timeout: a.config.Timeout,
	})

	if a.config.Listen != "" {
		return server.New(a.config.Listen, handler).ListenAndServe(ctx)
	}

	// One-shot mode: feed the handler a synthetic PROVIDE exchange.
	return handler.Serve(ctx, oneShot{Reader: strings.NewReader(session.RequestProvide + "\n"), Writer: a.outW})
}

// oneShot pairs a canned request with the report writer.
type oneShot struct {
	io.Reader
	io.Writer
}
