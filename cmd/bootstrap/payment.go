package bootstrap

import (
	"fmt"
	"log/slog"

	"placement-engine/internal/infra/gateway"
	"placement-engine/internal/pkg/config"
	"placement-engine/internal/usecase/commands"

	"go.uber.org/fx"
)

var PaymentModule = fx.Module("payment",
	fx.Provide(
		NewPaymentGateway,
	),
)

func NewPaymentGateway(cfg config.Config) (commands.PaymentGateway, error) {
	switch cfg.Payment.Driver {
	case "http":
		if cfg.Payment.BaseURL == "" {
			return nil, fmt.Errorf("PAYMENT_BASE_URL is required for the http payment driver")
		}
		return gateway.NewHTTPGateway(gateway.HTTPSettings{
			BaseURL:       cfg.Payment.BaseURL,
			APIKey:        cfg.Payment.APIKey,
			Timeout:       cfg.Payment.Timeout,
			RatePerSecond: cfg.Payment.RatePerSecond,
			Burst:         cfg.Payment.Burst,
		}), nil
	case "sandbox", "":
		slog.Warn("using sandbox payment gateway; intents are never settled by a real processor")
		return gateway.NewSandbox(), nil
	default:
		return nil, fmt.Errorf("unknown PAYMENT_DRIVER %q", cfg.Payment.Driver)
	}
}
