// Package app encapsulates the application's dependencies, configuration,
// and lifecycle: logger construction, provider registration, space file
// loading, and the serve/one-shot run modes.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/spacesd/internal/ctxlog"
	"github.com/vk/spacesd/internal/model"
	"github.com/vk/spacesd/internal/registry"
	"github.com/vk/spacesd/internal/spacefile"
)

// App is one configured resolver instance.
type App struct {
	outW     io.Writer
	errW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	config   *Config
	defs     []*model.Definition
	root     model.ResourceID
}

// NewApp constructs a fully initialized App: its own isolated logger and
// registry, the parsed definition set, and the selected root. Logs go to
// errW so the one-shot report on outW stays clean.
func NewApp(outW, errW io.Writer, cfg *Config, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, errW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	if err := reg.Validate(ctx); err != nil {
		return nil, err
	}
	logger.Debug("Providers registered.", "count", len(reg.Providers()))

	defs, err := spacefile.ParseFile(cfg.SpacePath)
	if err != nil {
		return nil, fmt.Errorf("loading space file: %w", err)
	}
	logger.Debug("Space file loaded.", "path", cfg.SpacePath, "definitions", len(defs))

	root, err := pickRoot(defs, cfg.Root)
	if err != nil {
		return nil, err
	}
	logger.Debug("Root resource selected.", "root", root.String())

	return &App{
		outW:     outW,
		errW:     errW,
		logger:   logger,
		registry: reg,
		config:   cfg,
		defs:     defs,
		root:     root,
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// pickRoot resolves the configured root reference, defaulting to the single
// project-kind definition when none is named.
func pickRoot(defs []*model.Definition, rootRef string) (model.ResourceID, error) {
	if rootRef != "" {
		return model.ParseResourceID(rootRef)
	}
	var projects []model.ResourceID
	for _, def := range defs {
		if def.ID.Kind == "project" {
			projects = append(projects, def.ID)
		}
	}
	switch len(projects) {
	case 1:
		return projects[0], nil
	case 0:
		return model.ResourceID{}, fmt.Errorf("no project resource defined and no root configured")
	default:
		return model.ResourceID{}, fmt.Errorf("%d project resources defined; select one with -root", len(projects))
	}
}
