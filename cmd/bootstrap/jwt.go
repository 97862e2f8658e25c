package bootstrap

import (
	"time"

	"placement-engine/internal/pkg/config"
	"placement-engine/internal/pkg/jwt"

	"go.uber.org/fx"
)

var JWTModule = fx.Module("jwt",
	fx.Provide(
		NewJWTService,
	),
)

// Tokens are minted elsewhere; the duration only applies to locally generated tokens.
const localTokenDuration = 15 * time.Minute

func NewJWTService(cfg config.Config) *jwt.Service {
	if cfg.JWT.Secret == "" {
		panic("JWT_SECRET must not be empty")
	}
	return jwt.NewService(cfg.JWT.Secret, localTokenDuration)
}
