package main

import (
	"context"
	"time"

	"github.com/mirzaik-wcc/contractorlens/internal/cache"
	"github.com/mirzaik-wcc/contractorlens/internal/clock"
	"github.com/mirzaik-wcc/contractorlens/internal/config"
	"github.com/mirzaik-wcc/contractorlens/internal/costing"
	"github.com/mirzaik-wcc/contractorlens/internal/estimate"
	"github.com/mirzaik-wcc/contractorlens/internal/logger"
	"github.com/mirzaik-wcc/contractorlens/internal/migration"
	"github.com/mirzaik-wcc/contractorlens/internal/observability"
	"github.com/mirzaik-wcc/contractorlens/internal/reference"
	"github.com/mirzaik-wcc/contractorlens/pkg/db"
	"go.uber.org/fx"
)

const startTimeout = 30 * time.Second

// modules is the full dependency graph of the pricing engine.
func modules() fx.Option {
	return fx.Options(
		config.Module,
		logger.Module,
		observability.Module,
		clock.Module,
		db.Module,
		migration.Module,
		reference.Module,
		cache.Module,
		costing.Module,
		estimate.Module,
	)
}

// withApp starts the engine, runs fn against it and always stops it again.
// targets are filled with fx.Populate before start.
func withApp(ctx context.Context, fn func(context.Context) error, targets ...any) error {
	app := fx.New(
		modules(),
		fx.NopLogger,
		fx.Populate(targets...),
	)

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	runErr := fn(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), startTimeout)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}
