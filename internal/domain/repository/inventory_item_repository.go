package repository

import (
	"context"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/entity"
)

// InventoryItemRepository define el puerto de lectura/escritura de ítems del flujo (DIP).
type InventoryItemRepository interface {
	Create(ctx context.Context, item *entity.InventoryItem) error
	// GetByID devuelve nil, nil si el ítem no existe.
	GetByID(ctx context.Context, id int64) (*entity.InventoryItem, error)
	GetByRFID(ctx context.Context, rfid string) (*entity.InventoryItem, error)
	// UpdateState cambia estado y sub-estado. lot != nil asigna lote; clearLot lo deja en NULL.
	// Devuelve domain.ErrItemNotFound si el ítem no existe.
	UpdateState(ctx context.Context, id int64, state entity.State, subState entity.SubState, lot *string, clearLot bool) error
}
