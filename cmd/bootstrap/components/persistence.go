package components

import (
	"context"
	"fmt"
	"log/slog"

	"placement-engine/internal/infra/db"
	"placement-engine/internal/infra/memstore"
	"placement-engine/internal/infra/readstore"
	"placement-engine/internal/infra/repository"
	"placement-engine/internal/infra/uow"
	"placement-engine/internal/pkg/config"
	"placement-engine/internal/usecase/commands"
	"placement-engine/internal/usecase/queries"
	"placement-engine/internal/usecase/shared"

	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	fx.Provide(
		NewPersistence,
	),
)

// Persistence exposes one storage driver through the ports the use cases need.
type Persistence struct {
	fx.Out

	UnitOfWork   shared.UnitOfWork
	ReadStore    queries.PlacementReadStore
	OwnerCatalog commands.OwnerCatalog
}

func NewPersistence(lc fx.Lifecycle, cfg config.Config) (Persistence, error) {
	switch cfg.Storage.Driver {
	case "postgres", "":
		pool, cleanup, err := db.Connect(cfg.DB)
		if err != nil {
			return Persistence{}, err
		}
		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				if cleanup != nil {
					cleanup()
				}
				return nil
			},
		})
		return Persistence{
			UnitOfWork: uow.NewPostgresUoW(pool, uow.RetryPolicy{
				MaxAttempts: cfg.Allocation.ReserveMaxAttempts,
				BaseBackoff: cfg.Allocation.ReserveBaseBackoff,
				LockTimeout: cfg.Allocation.LockTimeout,
			}),
			ReadStore:    readstore.NewPlacementReadStore(pool),
			OwnerCatalog: repository.NewOwnerCatalog(pool),
		}, nil
	case "memory":
		slog.Warn("using in-memory storage; state is lost on restart and not shared between instances")
		store := memstore.New()
		return Persistence{
			UnitOfWork:   store,
			ReadStore:    store,
			OwnerCatalog: store,
		}, nil
	default:
		return Persistence{}, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Storage.Driver)
	}
}
