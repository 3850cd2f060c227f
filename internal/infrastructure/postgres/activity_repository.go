package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/entity"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/repository"
)

var _ repository.ActivityRepository = (*ActivityRepo)(nil)

// ActivityRepo registro de actividades de operación sobre PostgreSQL.
type ActivityRepo struct {
	q Querier
}

func NewActivityRepository(q Querier) *ActivityRepo {
	return &ActivityRepo{q: q}
}

// Create inserta la actividad y asigna su ID.
func (r *ActivityRepo) Create(ctx context.Context, a *entity.Activity) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO actividades_operacion
			(inventario_id, usuario_id, descripcion, estado_nuevo, sub_estado_nuevo, fecha_actividad)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		a.ItemID, a.UserID, a.Description, string(a.NewState), string(a.NewSubState), a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrItemNotFound
		}
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}
