package bulk

import (
	"context"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/dto"
)

// Gateway acceso por ítem al almacén autoritativo de inventario (Postgres o backend REST).
type Gateway interface {
	UpdateState(ctx context.Context, id int64, data dto.InventoryData) error
	CreateActivity(ctx context.Context, activity dto.ActivityData) error
}

// BatchGateway gateway que además acepta un lote completo en una sola llamada.
// Si el gateway lo implementa, el ejecutor envía un request por lote.
type BatchGateway interface {
	Gateway
	BulkStateChange(ctx context.Context, items []dto.StateChangeItem) (dto.BulkOperationResult, error)
}

// UpdateBatcher gateway que acepta lotes de bulk-update.
type UpdateBatcher interface {
	BulkUpdate(ctx context.Context, items []dto.BulkUpdateItem) (dto.BulkOperationResult, error)
}

// ActivityBatcher gateway que acepta lotes de bulk-activities.
type ActivityBatcher interface {
	BulkActivities(ctx context.Context, items []dto.ActivityData) (dto.BulkOperationResult, error)
}

// StateChangeApplier gateway que escribe estado y actividad de un ítem de
// forma atómica. Si el gateway lo implementa, reemplaza las dos llamadas
// independientes.
type StateChangeApplier interface {
	ApplyStateChange(ctx context.Context, item dto.StateChangeItem) error
}
