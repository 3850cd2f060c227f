package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/entity"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/repository"
)

var _ repository.InventoryItemRepository = (*InventoryItemRepo)(nil)

// InventoryItemRepo implementación del puerto InventoryItemRepository sobre PostgreSQL.
type InventoryItemRepo struct {
	q Querier
}

// NewInventoryItemRepository construye el adaptador (pool o transacción).
func NewInventoryItemRepository(q Querier) *InventoryItemRepo {
	return &InventoryItemRepo{q: q}
}

const selectItem = `
	SELECT id, nombre_unidad, rfid, categoria, estado, sub_estado, lote, es_sistema,
	       fecha_ingreso, ultima_actualizacion
	FROM inventario_credocubes`

// Create persiste un ítem nuevo y asigna su ID.
func (r *InventoryItemRepo) Create(ctx context.Context, it *entity.InventoryItem) error {
	now := time.Now().UTC()
	if it.CreatedAt.IsZero() {
		it.CreatedAt = now
	}
	it.UpdatedAt = now
	query := `
		INSERT INTO inventario_credocubes
			(nombre_unidad, rfid, categoria, estado, sub_estado, lote, es_sistema, fecha_ingreso, ultima_actualizacion)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		it.Name, it.RFID, string(it.Category), string(it.State), string(it.SubState),
		it.Lot, it.System, it.CreatedAt, it.UpdatedAt,
	).Scan(&it.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("rfid %s: %w", it.RFID, domain.ErrConflict)
		}
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// GetByID obtiene un ítem por ID.
func (r *InventoryItemRepo) GetByID(ctx context.Context, id int64) (*entity.InventoryItem, error) {
	return r.getOne(ctx, selectItem+` WHERE id = $1`, id)
}

// GetByRFID obtiene un ítem por su código RFID.
func (r *InventoryItemRepo) GetByRFID(ctx context.Context, rfid string) (*entity.InventoryItem, error) {
	return r.getOne(ctx, selectItem+` WHERE rfid = $1`, rfid)
}

func (r *InventoryItemRepo) getOne(ctx context.Context, query string, arg any) (*entity.InventoryItem, error) {
	var (
		it                        entity.InventoryItem
		category, state, subState string
	)
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&it.ID, &it.Name, &it.RFID, &category, &state, &subState, &it.Lot, &it.System,
		&it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	// Filas heredadas pueden traer estados sin tilde o en minúsculas.
	it.Category = entity.ParseCategory(category)
	if st, ok := entity.ParseState(state); ok {
		it.State = st
	} else {
		it.State = entity.State(state)
	}
	if sub, ok := entity.ParseSubState(subState); ok {
		it.SubState = sub
	} else {
		it.SubState = entity.SubState(subState)
	}
	return &it, nil
}

// UpdateState cambia estado y sub-estado; el lote cambia solo si se indica.
func (r *InventoryItemRepo) UpdateState(ctx context.Context, id int64, state entity.State, subState entity.SubState, lot *string, clearLot bool) error {
	query := `
		UPDATE inventario_credocubes
		SET estado = $2,
		    sub_estado = $3,
		    lote = CASE WHEN $5 THEN NULL WHEN $4::text IS NOT NULL THEN $4::text ELSE lote END,
		    ultima_actualizacion = $6
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query, id, string(state), string(subState), lot, clearLot, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update item state: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}
