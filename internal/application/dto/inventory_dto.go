package dto

import (
	"time"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/entity"
)

// InventoryItemDTO respuesta de GET /api/inventory/inventario/{id}.
type InventoryItemDTO struct {
	ID        int64     `json:"id"`
	Name      string    `json:"nombre_unidad"`
	RFID      string    `json:"rfid"`
	Category  string    `json:"categoria"`
	State     string    `json:"estado"`
	SubState  string    `json:"sub_estado"`
	Lot       *string   `json:"lote"`
	System    bool      `json:"es_sistema,omitempty"`
	CreatedAt time.Time `json:"fecha_ingreso"`
	UpdatedAt time.Time `json:"ultima_actualizacion"`
}

// NewInventoryItemDTO proyecta la entidad al formato de la API.
func NewInventoryItemDTO(it *entity.InventoryItem) InventoryItemDTO {
	return InventoryItemDTO{
		ID:        it.ID,
		Name:      it.Name,
		RFID:      it.RFID,
		Category:  string(it.Category),
		State:     string(it.State),
		SubState:  string(it.SubState),
		Lot:       it.Lot,
		System:    it.System,
		CreatedAt: it.CreatedAt,
		UpdatedAt: it.UpdatedAt,
	}
}

// Entity reconstruye la entidad; estado y categoría se normalizan con los parsers de dominio.
func (d InventoryItemDTO) Entity() *entity.InventoryItem {
	st, _ := entity.ParseState(d.State)
	sub, _ := entity.ParseSubState(d.SubState)
	return &entity.InventoryItem{
		ID:        d.ID,
		Name:      d.Name,
		RFID:      d.RFID,
		Category:  entity.ParseCategory(d.Category),
		State:     st,
		SubState:  sub,
		Lot:       d.Lot,
		System:    d.System,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
