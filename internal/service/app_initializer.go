package service

import (
	"context"
	"fmt"

	"github.com/target/mmk-ui-shell/internal/domain/appconfig"
	"github.com/target/mmk-ui-shell/internal/domain/logging"
)

type configLoader interface {
	Load(ctx context.Context) error
	Document() *appconfig.Document
}

type authBootstrapper interface {
	Bootstrap(ctx context.Context) error
}

type levelSetter interface {
	SetLevel(level logging.Level)
}

// AppInitializerOptions groups dependencies for AppInitializer.
type AppInitializerOptions struct {
	Config configLoader     // Required
	Auth   authBootstrapper // Required
	Levels levelSetter      // Optional: receives the document log level when one is set
}

// AppInitializer orders startup: the configuration document loads before auth begins.
type AppInitializer struct {
	config configLoader
	auth   authBootstrapper
	levels levelSetter
}

// NewAppInitializer constructs an AppInitializer. It panics when Config or Auth is nil.
func NewAppInitializer(opts AppInitializerOptions) *AppInitializer {
	if opts.Config == nil || opts.Auth == nil {
		panic("AppInitializer requires Config and Auth")
	}
	return &AppInitializer{config: opts.Config, auth: opts.Auth, levels: opts.Levels}
}

// Synchronize loads the configuration and then bootstraps auth.
// A configuration failure is returned and auth is never started.
func (a *AppInitializer) Synchronize(ctx context.Context) error {
	if err := a.config.Load(ctx); err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if a.levels != nil {
		if lvl, ok := a.config.Document().ConfiguredLevel(); ok {
			a.levels.SetLevel(lvl)
		}
	}
	if err := a.auth.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap auth: %w", err)
	}
	return nil
}
