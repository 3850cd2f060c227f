package repository

import (
	"context"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/entity"
)

// ActivityRepository puerto del registro de actividades de operación.
type ActivityRepository interface {
	Create(ctx context.Context, activity *entity.Activity) error
}
