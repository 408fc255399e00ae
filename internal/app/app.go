// Package app assembles the pieces every command needs: logger, optional
// store, attack tables and engine.
package app

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/hailam/athena/internal/config"
	"github.com/hailam/athena/internal/engine"
	"github.com/hailam/athena/internal/logging"
	"github.com/hailam/athena/internal/magic"
	"github.com/hailam/athena/internal/movegen"
	"github.com/hailam/athena/internal/storage"
)

type App struct {
	Config config.Config
	Log    zerolog.Logger
	Store  *storage.Store // nil when no store could be opened
	Gen    *movegen.Generator
	Engine *engine.Engine
}

// Options controls Setup.
type Options struct {
	// RequireStore fails Setup when the database cannot be opened instead of
	// running without one.
	RequireStore bool
	// InMemoryStore opens a throwaway database, for tests.
	InMemoryStore bool
}

// Setup builds the logger, opens the store, initializes the attack tables
// (through the store's magic cache when enabled) and creates the engine.
// A table generation failure wraps magic.ErrMagicGeneration.
func Setup(cfg config.Config, opts Options) (*App, error) {
	log, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Log: log}

	if opts.InMemoryStore {
		a.Store, err = storage.OpenInMemory()
	} else {
		a.Store, err = storage.Open(cfg.DataDir)
	}
	if err != nil {
		if opts.RequireStore {
			return nil, fmt.Errorf("open store: %w", err)
		}
		log.Warn().Err(err).Msg("running without store")
		a.Store = nil
	}

	var cache magic.Cache
	if a.Store != nil {
		cache = a.Store
	}
	tables, err := magic.Initialize(cfg.MagicOptions(cache, &a.Log))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Gen = movegen.New(tables)

	engOpts, err := cfg.EngineOptions(&a.Log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Engine = engine.New(a.Gen, engOpts)
	return a, nil
}

// Close releases the store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	err := a.Store.Close()
	a.Store = nil
	return err
}
