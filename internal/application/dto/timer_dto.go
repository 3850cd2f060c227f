package dto

import (
	"encoding/json"
	"time"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/entity"
)

// CreateTimerRequest body de POST /api/timers.
type CreateTimerRequest struct {
	Label           string `json:"label"`
	OperationType   string `json:"operation_type"`
	DurationMinutes int    `json:"duration_minutes"`
}

// CreateTimerBatchRequest body de POST /api/timers/batch.
type CreateTimerBatchRequest struct {
	Labels          []string `json:"labels"`
	OperationType   string   `json:"operation_type"`
	DurationMinutes int      `json:"duration_minutes"`
}

// TimerDTO vista de un temporizador con el tiempo restante calculado en el servidor.
type TimerDTO struct {
	ID                     string    `json:"id"`
	Label                  string    `json:"label"`
	ItemID                 int64     `json:"item_id,omitempty"`
	OperationType          string    `json:"operation_type"`
	InitialDurationSeconds int64     `json:"initial_duration_seconds"`
	RemainingSeconds       int64     `json:"remaining_seconds"`
	EndsAt                 time.Time `json:"ends_at"`
	Active                 bool      `json:"active"`
	Completed              bool      `json:"completed"`
	CreatedAt              time.Time `json:"created_at"`
}

// NewTimerDTO proyecta la entidad en el instante now.
func NewTimerDTO(t entity.Timer, now time.Time) TimerDTO {
	return TimerDTO{
		ID:                     t.ID,
		Label:                  t.Label,
		ItemID:                 t.ItemID,
		OperationType:          string(t.OperationType),
		InitialDurationSeconds: t.InitialDurationSeconds,
		RemainingSeconds:       t.Remaining(now),
		EndsAt:                 t.EndsAt,
		Active:                 t.Active,
		Completed:              t.Completed,
		CreatedAt:              t.CreatedAt,
	}
}

// Entity reconstruye la entidad a partir de la vista recibida del servidor.
// En pausa, el restante congelado viaja en RemainingSeconds.
func (d TimerDTO) Entity() entity.Timer {
	t := entity.Timer{
		ID:                     d.ID,
		Label:                  d.Label,
		ItemID:                 d.ItemID,
		OperationType:          entity.OperationType(d.OperationType),
		InitialDurationSeconds: d.InitialDurationSeconds,
		EndsAt:                 d.EndsAt,
		Active:                 d.Active,
		Completed:              d.Completed,
		CreatedAt:              d.CreatedAt,
	}
	if !d.Active {
		t.PausedRemainingSeconds = d.RemainingSeconds
	}
	return t
}

// TimerBatchResponse respuesta de POST /api/timers/batch.
type TimerBatchResponse struct {
	BulkOperationResult
	Timers []TimerDTO `json:"timers"`
}

// Tipos de mensaje del canal de push /ws/timers.
const (
	MessageInventoryUpdate = "inventory_update"
	MessageTimerUpdate     = "timer_update"
)

// Acciones de timer_update.
const (
	TimerActionCreated   = "created"
	TimerActionUpdated   = "updated"
	TimerActionDeleted   = "deleted"
	TimerActionCompleted = "completed"
)

// PushMessage sobre del canal de push; Type es el discriminador.
type PushMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// TimerUpdatePayload payload de timer_update. En "deleted" solo viaja TimerID.
type TimerUpdatePayload struct {
	Action  string    `json:"action"`
	Timer   *TimerDTO `json:"timer,omitempty"`
	TimerID string    `json:"timer_id,omitempty"`
}

// InventoryUpdateItem nueva posición de un ítem.
type InventoryUpdateItem struct {
	ID       int64  `json:"id"`
	State    string `json:"estado"`
	SubState string `json:"sub_estado"`
}

// InventoryUpdatePayload payload de inventory_update.
type InventoryUpdatePayload struct {
	Items []InventoryUpdateItem `json:"items"`
}

// NewPushMessage empaqueta un payload con su tipo.
func NewPushMessage(typ string, payload any) (PushMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return PushMessage{}, err
	}
	return PushMessage{Type: typ, Payload: raw}, nil
}
