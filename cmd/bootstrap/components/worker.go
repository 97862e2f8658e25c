package components

import (
	"context"

	"placement-engine/internal/pkg/clock"
	"placement-engine/internal/pkg/config"
	"placement-engine/internal/worker"

	"go.uber.org/fx"
)

var WorkerModule = fx.Module("worker",
	fx.Provide(
		NewSweeper,
	),
	fx.Invoke(startSweeper),
)

func NewSweeper(cfg config.Config, lifecycle worker.Lifecycle, clk clock.Clock) *worker.Sweeper {
	return worker.NewSweeper(lifecycle, clk, worker.SweeperSettings{
		Interval:        cfg.Sweeper.Interval,
		CheckoutGrace:   cfg.Sweeper.CheckoutGrace,
		AssignmentGrace: cfg.Sweeper.AssignmentGrace,
		BatchSize:       cfg.Sweeper.BatchSize,
	})
}

func startSweeper(lc fx.Lifecycle, sweeper *worker.Sweeper) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			sweeper.Start(ctx)
			return nil
		},
		OnStop: func(_ context.Context) error {
			sweeper.Stop()
			return nil
		},
	})
}
