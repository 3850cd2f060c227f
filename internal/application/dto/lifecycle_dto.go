package dto

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain"
)

// InventoryData cambio de estado de un ítem (PATCH /api/inventory/inventario/{id}/estado).
// ClearLot se serializa como "lot": null; Lot != nil asigna un lote nuevo.
type InventoryData struct {
	State    string  `json:"estado"`
	SubState string  `json:"sub_estado"`
	Lot      *string `json:"lot,omitempty"`
	ClearLot bool    `json:"-"`
}

// MarshalJSON emite "lot": null cuando hay que limpiar el lote.
func (d InventoryData) MarshalJSON() ([]byte, error) {
	if d.ClearLot {
		return json.Marshal(struct {
			State    string  `json:"estado"`
			SubState string  `json:"sub_estado"`
			Lot      *string `json:"lot"`
		}{d.State, d.SubState, nil})
	}
	type plain InventoryData
	return json.Marshal(plain(d))
}

// UnmarshalJSON distingue "lot" ausente (sin cambio) de "lot": null (limpiar).
func (d *InventoryData) UnmarshalJSON(b []byte) error {
	var raw struct {
		State    string          `json:"estado"`
		SubState string          `json:"sub_estado"`
		Lot      json.RawMessage `json:"lot"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*d = InventoryData{State: raw.State, SubState: raw.SubState}
	switch {
	case len(raw.Lot) == 0:
	case bytes.Equal(bytes.TrimSpace(raw.Lot), []byte("null")):
		d.ClearLot = true
	default:
		var lot string
		if err := json.Unmarshal(raw.Lot, &lot); err != nil {
			return fmt.Errorf("lot: %w", err)
		}
		d.Lot = &lot
	}
	return nil
}

// ActivityData entrada del registro de actividades (POST /api/activities/actividades/).
type ActivityData struct {
	ItemID      int64  `json:"inventario_id"`
	UserID      string `json:"usuario_id"`
	Description string `json:"descripcion"`
	NewState    string `json:"estado_nuevo"`
	NewSubState string `json:"sub_estado_nuevo"`
}

// StateChangeItem elemento del body de POST /api/inventory/inventario/bulk-state-change.
type StateChangeItem struct {
	ID            int64         `json:"id"`
	InventoryData InventoryData `json:"inventory_data"`
	ActivityData  ActivityData  `json:"activity_data"`
}

// BulkUpdateItem elemento del body de POST /api/inventory/inventario/bulk-update.
type BulkUpdateItem struct {
	ID            int64         `json:"id"`
	InventoryData InventoryData `json:"inventory_data"`
}

// BulkOperationResult respuesta de toda operación masiva. Cada entrada de Errors
// corresponde a un único ítem ("item <id>: <motivo>").
type BulkOperationResult struct {
	Success   int      `json:"success"`
	Total     int      `json:"total"`
	Errors    []string `json:"errors"`
	FailedIDs []int64  `json:"failed_ids,omitempty"`
}

// Err clasifica el resultado: nil si todo salió bien, ErrPartialBatchFailure si
// hubo éxitos y fallos, ErrBulkOperationFailed si ningún ítem se aplicó.
func (r BulkOperationResult) Err() error {
	switch {
	case len(r.Errors) == 0 && r.Success == r.Total:
		return nil
	case r.Success == 0 && len(r.Errors) > 0:
		return domain.ErrBulkOperationFailed
	default:
		return domain.ErrPartialBatchFailure
	}
}

// Fail registra el fallo de un ítem.
func (r *BulkOperationResult) Fail(itemID int64, reason error) {
	r.Errors = append(r.Errors, fmt.Sprintf("item %d: %v", itemID, reason))
	r.FailedIDs = append(r.FailedIDs, itemID)
}

// Merge acumula otro resultado parcial.
func (r *BulkOperationResult) Merge(o BulkOperationResult) {
	r.Success += o.Success
	r.Total += o.Total
	r.Errors = append(r.Errors, o.Errors...)
	r.FailedIDs = append(r.FailedIDs, o.FailedIDs...)
}

// ItemUpdate cambio solicitado para un ítem dentro de una operación masiva.
// TargetSubState vacío = se asigna el de la tabla por defecto.
type ItemUpdate struct {
	ItemID         int64
	TargetState    string
	TargetSubState string
	Lot            *string
	Description    string
	UserID         string
}

// TransitionRequest body de POST /api/lifecycle/transitions.
// Los ítems pueden indicarse por id o por RFID escaneado.
type TransitionRequest struct {
	ItemIDs      []int64  `json:"item_ids"`
	RFIDs        []string `json:"rfids,omitempty"`
	State        string   `json:"estado"`
	SubState     string   `json:"sub_estado,omitempty"`
	Lot          *string  `json:"lot,omitempty"`
	Description  string   `json:"descripcion,omitempty"`
	TimerMinutes int      `json:"timer_minutes,omitempty"`
}

// ItemsActionRequest body de las acciones de devolución (regresar a operación / inspección).
type ItemsActionRequest struct {
	ItemIDs      []int64 `json:"item_ids"`
	TimerMinutes int     `json:"timer_minutes,omitempty"`
}

// TransitionResponse resultado de un cambio de etapa, incluidos los efectos en temporizadores.
type TransitionResponse struct {
	BulkOperationResult
	Warnings      []string `json:"warnings,omitempty"`
	TimersCreated int      `json:"timers_created"`
	TimersDeleted int      `json:"timers_deleted"`
	TimersMissing []int64  `json:"timers_missing,omitempty"`
}
