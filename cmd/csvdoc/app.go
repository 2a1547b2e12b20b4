package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	csvdoc "github.com/goliatone/go-csvdoc"
	"github.com/goliatone/go-csvdoc/internal/config"
	"github.com/goliatone/go-csvdoc/pkg/activity"
	"github.com/goliatone/go-csvdoc/pkg/activity/usersink"
)

// globalFlags are bound to the root command and form the strongest config
// layer.
type globalFlags struct {
	configPath  string
	document    string
	storeDriver string
	storePath   string
	logLevel    string
	logFormat   string
}

func (f globalFlags) overrides() config.Config {
	return config.Config{
		Document: f.document,
		Store:    config.StoreConfig{Driver: f.storeDriver, Path: f.storePath},
		Log:      config.LogConfig{Level: f.logLevel, Format: f.logFormat},
	}
}

// app is one opened document session.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	stores config.Stores
	engine *csvdoc.Engine
}

func openApp(ctx context.Context, cmd *cobra.Command, flags globalFlags) (*app, error) {
	cfg, err := config.Load(flags.configPath, flags.overrides())
	if err != nil {
		return nil, err
	}
	logger := cfg.Log.NewLogger(cmd.ErrOrStderr())

	stores, err := cfg.Store.Open(logger.With("component", "store"))
	if err != nil {
		return nil, err
	}

	seed, err := cfg.Seed.Option()
	if err != nil {
		return nil, errors.Join(err, stores.Close())
	}
	opts := append(cfg.EngineOptions(),
		seed,
		csvdoc.WithLogger(logger),
		csvdoc.WithStores(stores.Documents, stores.Schemas),
	)
	if cfg.Activity.Audit {
		opts = append(opts, csvdoc.WithActivityHooks(
			activity.Hooks{usersink.Hook{Sink: auditSink{logger: logger.With("component", "audit")}}},
			activity.Config{Channel: cfg.Activity.Channel, ActorID: cfg.Activity.ActorID},
		))
	}
	engine, err := csvdoc.New(opts...)
	if err != nil {
		return nil, errors.Join(err, stores.Close())
	}
	if err := engine.LoadDefault(ctx); err != nil {
		return nil, errors.Join(err, engine.Close(ctx), stores.Close())
	}
	return &app{cfg: cfg, logger: logger, stores: stores, engine: engine}, nil
}

// Close flushes both partitions and releases the store.
func (a *app) Close(ctx context.Context) error {
	return errors.Join(a.engine.Close(ctx), a.stores.Close())
}
