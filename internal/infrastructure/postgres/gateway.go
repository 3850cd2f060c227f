package postgres

import (
	"context"
	"fmt"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/bulk"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/dto"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/entity"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/repository"
)

var (
	_ bulk.Gateway            = (*Gateway)(nil)
	_ bulk.StateChangeApplier = (*Gateway)(nil)
)

// TxRunnerFunc firma de TxRunner.Run.
type TxRunnerFunc func(ctx context.Context, fn func(repository.InventoryItemRepository, repository.ActivityRepository) error) error

// Gateway almacén autoritativo de inventario cuando el servicio es dueño de la
// base de datos. Un cambio de estado y su actividad se escriben en la misma
// transacción.
type Gateway struct {
	items      repository.InventoryItemRepository
	activities repository.ActivityRepository
	tx         TxRunnerFunc
}

// NewGateway construye el gateway. tx puede ser nil (sin transacción por ítem).
func NewGateway(items repository.InventoryItemRepository, activities repository.ActivityRepository, tx TxRunnerFunc) *Gateway {
	return &Gateway{items: items, activities: activities, tx: tx}
}

// GetByID delega en el repositorio de ítems.
func (g *Gateway) GetByID(ctx context.Context, id int64) (*entity.InventoryItem, error) {
	return g.items.GetByID(ctx, id)
}

// GetByRFID delega en el repositorio de ítems.
func (g *Gateway) GetByRFID(ctx context.Context, rfid string) (*entity.InventoryItem, error) {
	return g.items.GetByRFID(ctx, rfid)
}

// UpdateState aplica el cambio de estado de un ítem.
func (g *Gateway) UpdateState(ctx context.Context, id int64, data dto.InventoryData) error {
	return updateState(ctx, g.items, id, data)
}

// CreateActivity registra la actividad.
func (g *Gateway) CreateActivity(ctx context.Context, a dto.ActivityData) error {
	return createActivity(ctx, g.activities, a)
}

// ApplyStateChange escribe estado y actividad de forma atómica.
func (g *Gateway) ApplyStateChange(ctx context.Context, it dto.StateChangeItem) error {
	if g.tx == nil {
		if err := g.UpdateState(ctx, it.ID, it.InventoryData); err != nil {
			return err
		}
		return g.CreateActivity(ctx, it.ActivityData)
	}
	return g.tx(ctx, func(items repository.InventoryItemRepository, acts repository.ActivityRepository) error {
		if err := updateState(ctx, items, it.ID, it.InventoryData); err != nil {
			return err
		}
		return createActivity(ctx, acts, it.ActivityData)
	})
}

func updateState(ctx context.Context, items repository.InventoryItemRepository, id int64, data dto.InventoryData) error {
	st, ok := entity.ParseState(data.State)
	if !ok {
		return fmt.Errorf("estado %q: %w", data.State, domain.ErrInvalidInput)
	}
	sub, ok := entity.ParseSubState(data.SubState)
	if !ok {
		return fmt.Errorf("sub-estado %q: %w", data.SubState, domain.ErrInvalidSubState)
	}
	return items.UpdateState(ctx, id, st, sub, data.Lot, data.ClearLot)
}

func createActivity(ctx context.Context, acts repository.ActivityRepository, a dto.ActivityData) error {
	st, ok := entity.ParseState(a.NewState)
	if !ok {
		return fmt.Errorf("estado %q: %w", a.NewState, domain.ErrInvalidInput)
	}
	sub, _ := entity.ParseSubState(a.NewSubState)
	return acts.Create(ctx, &entity.Activity{
		ItemID:      a.ItemID,
		UserID:      a.UserID,
		Description: a.Description,
		NewState:    st,
		NewSubState: sub,
	})
}
