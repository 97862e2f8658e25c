package components

import (
	"placement-engine/internal/handler"
	"placement-engine/internal/handler/api"
	"placement-engine/internal/handler/middleware"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewPlacementHandler,
		api.NewAdminHandler,
		api.NewWebhookHandler,
		middleware.NewAuthMiddleware,
		func(p *api.PlacementHandler, a *api.AdminHandler, w *api.WebhookHandler) handler.Handlers {
			return handler.Handlers{Placement: p, Admin: a, Webhook: w}
		},
	),
	fx.Invoke(handler.NewRouter),
)
