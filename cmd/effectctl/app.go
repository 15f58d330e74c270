package main

import (
	"context"

	"github.com/relicforge/relic-server-go/internal/catalog"
	"github.com/relicforge/relic-server-go/internal/config"
	"github.com/relicforge/relic-server-go/internal/logging"
	"github.com/relicforge/relic-server-go/internal/session"
	"github.com/relicforge/relic-server-go/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type globalOptions struct {
	configPath string
	verbose    bool
}

// app is one CLI invocation's view of the configured store.
type app struct {
	logger  *zap.Logger
	session *session.Session
}

func openApp(ctx context.Context, opts *globalOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if !opts.verbose {
		cfg.Logging.Level = "error"
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	defs, err := catalog.Default()
	if err != nil {
		return nil, err
	}
	extra, err := catalog.LoadPaths(cfg.Catalog.Paths)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}
	sess, err := session.Open(ctx, session.Options{
		Store:                  st,
		Logger:                 logger,
		Catalog:                append(defs, extra...),
		StrictAdapterDetection: cfg.Engine.StrictAdapterDetection,
		SheetType:              cfg.Engine.SheetType,
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return &app{logger: logger, session: sess}, nil
}

func (a *app) Close() error {
	defer a.logger.Sync()
	return a.session.Close()
}

// withApp opens the session for the duration of fn.
func withApp(cmd *cobra.Command, opts *globalOptions, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
