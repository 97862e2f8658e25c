package components

import (
	"context"

	"placement-engine/internal/domain/placement"
	"placement-engine/internal/infra/notify"
	"placement-engine/internal/metrics"
	"placement-engine/internal/pkg/clock"
	"placement-engine/internal/pkg/config"
	"placement-engine/internal/usecase"
	"placement-engine/internal/usecase/commands"
	"placement-engine/internal/usecase/queries"
	"placement-engine/internal/usecase/shared"
	"placement-engine/internal/worker"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseQueriesModule,
	usecaseValidatorsModule,
	usecaseCommandsModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
	fx.Annotate(
		NewPriceCalculator,
		fx.As(new(placement.PriceCalculator)),
	),
	func(cfg config.Config, clock clock.Clock, calc placement.PriceCalculator) *placement.Services {
		return &placement.Services{
			Clock:           clock,
			PriceCalculator: calc,
			Policy: placement.Policy{
				AllowedDurations: cfg.Allocation.AllowedDurations,
				Currency:         cfg.Allocation.Currency,
			},
		}
	},
	fx.Annotate(
		notify.NewOutbox,
		fx.As(new(commands.Notifier)),
	),
	fx.Annotate(
		metrics.NewRecorder,
		fx.As(new(commands.AllocationMetrics)),
	),
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		NewPaymentCoordinator,
		commands.NewWaitlistNotifier,
		NewAllocationService,
		fx.Annotate(
			func(s *commands.AllocationService) *commands.AllocationService { return s },
			fx.As(new(commands.AllocationCommands)),
			fx.As(new(worker.Lifecycle)),
		),
		fx.Annotate(
			func(c *commands.PaymentCoordinator) *commands.PaymentCoordinator { return c },
			fx.As(new(commands.SignatureVerifier)),
		),
	),
	fx.Invoke(ProvisionPools),
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		queries.NewPlacementQueries,
	),
)

var usecaseValidatorsModule = fx.Module("usecase/validators",
	fx.Provide(
		usecase.NewTokenValidator,
	),
)

func NewPriceCalculator(cfg config.Config) (*placement.DailyRatePriceCalculator, error) {
	banner, err := decimal.NewFromString(cfg.Pricing.BannerDailyRate)
	if err != nil {
		return nil, err
	}
	promotion, err := decimal.NewFromString(cfg.Pricing.PromotionDailyRate)
	if err != nil {
		return nil, err
	}
	return placement.NewDailyRatePriceCalculator(map[placement.Kind]decimal.Decimal{
		placement.KindBanner:    banner,
		placement.KindPromotion: promotion,
	}, cfg.Allocation.Currency), nil
}

func NewPaymentCoordinator(cfg config.Config, gateway commands.PaymentGateway, uow shared.UnitOfWork, clk clock.Clock) *commands.PaymentCoordinator {
	return commands.NewPaymentCoordinator(gateway, uow, clk, commands.PaymentSettings{
		MaxAttempts:   cfg.Payment.MaxAttempts,
		BaseBackoff:   cfg.Payment.BaseBackoff,
		WebhookSecret: cfg.Payment.WebhookSecret,
	})
}

func NewAllocationService(
	cfg config.Config,
	uow shared.UnitOfWork,
	payments *commands.PaymentCoordinator,
	waitlist *commands.WaitlistNotifier,
	catalog commands.OwnerCatalog,
	notifier commands.Notifier,
	recorder commands.AllocationMetrics,
	services *placement.Services,
) *commands.AllocationService {
	return commands.NewAllocationService(uow, payments, waitlist, catalog, notifier, recorder, services, commands.AllocationSettings{
		StaleRetries:   cfg.Allocation.StaleRetries,
		IdempotencyTTL: cfg.Allocation.IdempotencyTTL,
	})
}

// ProvisionPools applies the configured pool limits before the server accepts traffic.
func ProvisionPools(lc fx.Lifecycle, cfg config.Config, svc *commands.AllocationService) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			specs, err := cfg.Capacity.ParsePools()
			if err != nil {
				return err
			}
			defs := make([]commands.PoolDefinition, 0, len(specs))
			for _, s := range specs {
				defs = append(defs, commands.PoolDefinition{Kind: s.Kind, Scope: s.Scope, MaxActive: s.MaxActive})
			}
			return svc.ProvisionPools(ctx, defs)
		},
	})
}
