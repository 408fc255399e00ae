// Command athena-service serves the line protocol over TCP and, when
// configured, the JSON API over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/hailam/athena/internal/app"
	"github.com/hailam/athena/internal/config"
	"github.com/hailam/athena/internal/httpapi"
	"github.com/hailam/athena/internal/magic"
	"github.com/hailam/athena/internal/service"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	fs := flag.NewFlagSet("athena-service", flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if cfg.Service.Listen == "" && cfg.Service.HTTP == "" {
		fmt.Fprintln(os.Stderr, "nothing to serve: set -listen or -http")
		return 2
	}

	a, err := app.Setup(cfg, app.Options{RequireStore: true})
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		if errors.Is(err, magic.ErrMagicGeneration) {
			return 3
		}
		return 1
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Service.Listen != "" {
		srv := service.New(a.Engine, cfg.Budget(), a.Store, &a.Log)
		g.Go(func() error { return srv.ListenAndServe(ctx, cfg.Service.Listen) })
	}
	if cfg.Service.HTTP != "" {
		api := httpapi.New(a.Engine, cfg.Budget(), a.Store, &a.Log)
		g.Go(func() error { return api.ListenAndServe(ctx, cfg.Service.HTTP) })
	}

	a.Log.Info().
		Str("listen", cfg.Service.Listen).
		Str("http", cfg.Service.HTTP).
		Int("threads", cfg.Engine.Threads).
		Int("hash_mb", cfg.Engine.HashMB).
		Msg("athena service started")

	if err := g.Wait(); err != nil {
		a.Log.Error().Err(err).Msg("service failed")
		return 1
	}
	a.Log.Info().Msg("athena service stopped")
	return 0
}
