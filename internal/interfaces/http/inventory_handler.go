package http

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/bulk"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/dto"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/lifecycle"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain"
)

// InventoryStore almacén autoritativo visto desde la API (Postgres o backend REST).
type InventoryStore interface {
	lifecycle.ItemReader
	bulk.Gateway
}

// BulkRunner operaciones masivas expuestas tal cual por la API.
type BulkRunner interface {
	ExecuteStateChanges(ctx context.Context, items []dto.StateChangeItem) dto.BulkOperationResult
	ExecuteUpdates(ctx context.Context, items []dto.BulkUpdateItem) dto.BulkOperationResult
	ExecuteActivities(ctx context.Context, activities []dto.ActivityData) dto.BulkOperationResult
}

// InventoryHandler maneja la lectura y escritura directa de ítems (protegido).
// No aplica reglas de ciclo de vida: es la superficie del almacén.
type InventoryHandler struct {
	store InventoryStore
	bulk  BulkRunner
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(store InventoryStore, runner BulkRunner) *InventoryHandler {
	return &InventoryHandler{store: store, bulk: runner}
}

// GetByID godoc
// @Summary      Obtener ítem de inventario
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path      int  true  "ID del ítem"
// @Success      200  {object}  dto.InventoryItemDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/inventario/{id} [get]
func (h *InventoryHandler) GetByID(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id inválido"})
	}
	it, err := h.store.GetByID(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	if it == nil {
		return writeError(c, domain.ErrItemNotFound)
	}
	return c.JSON(dto.NewInventoryItemDTO(it))
}

// GetByRFID busca por código RFID normalizado.
func (h *InventoryHandler) GetByRFID(c *fiber.Ctx) error {
	code := lifecycle.NormalizeRFID(c.Params("rfid"))
	if code == "" {
		return writeError(c, domain.ErrInvalidInput)
	}
	it, err := h.store.GetByRFID(c.Context(), code)
	if err != nil {
		return writeError(c, err)
	}
	if it == nil {
		return writeError(c, domain.ErrItemNotFound)
	}
	return c.JSON(dto.NewInventoryItemDTO(it))
}

// UpdateState godoc
// @Summary      Cambiar estado de un ítem
// @Description  "lot": null limpia el lote; omitirlo lo deja igual.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Param        id    path  int                true  "ID del ítem"
// @Param        body  body  dto.InventoryData  true  "estado, sub_estado, lot"
// @Success      204
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/inventario/{id}/estado [patch]
func (h *InventoryHandler) UpdateState(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id inválido"})
	}
	var in dto.InventoryData
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	bulk.Normalize(&in)
	if in.State == "" {
		return writeError(c, domain.ErrInvalidInput)
	}
	if err := h.store.UpdateState(c.Context(), id, in); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// BulkStateChange godoc
// @Summary      Cambio de estado masivo con actividad
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      []dto.StateChangeItem  true  "ítems"
// @Success      200   {object}  dto.BulkOperationResult
// @Success      207   {object}  dto.BulkOperationResult
// @Failure      502   {object}  dto.BulkOperationResult
// @Router       /api/inventory/inventario/bulk-state-change [post]
func (h *InventoryHandler) BulkStateChange(c *fiber.Ctx) error {
	var in []dto.StateChangeItem
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	userID := GetUserID(c)
	for i := range in {
		if in[i].ActivityData.UserID == "" {
			in[i].ActivityData.UserID = userID
		}
	}
	res := h.bulk.ExecuteStateChanges(c.Context(), in)
	return c.Status(bulkStatus(res)).JSON(res)
}

// BulkUpdate actualiza estado sin registrar actividad.
func (h *InventoryHandler) BulkUpdate(c *fiber.Ctx) error {
	var in []dto.BulkUpdateItem
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	res := h.bulk.ExecuteUpdates(c.Context(), in)
	return c.Status(bulkStatus(res)).JSON(res)
}

// BulkActivities registra actividades en lote.
func (h *InventoryHandler) BulkActivities(c *fiber.Ctx) error {
	var in []dto.ActivityData
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	userID := GetUserID(c)
	for i := range in {
		if in[i].UserID == "" {
			in[i].UserID = userID
		}
	}
	res := h.bulk.ExecuteActivities(c.Context(), in)
	return c.Status(bulkStatus(res)).JSON(res)
}

// CreateActivity godoc
// @Summary      Registrar actividad
// @Tags         activities
// @Security     Bearer
// @Accept       json
// @Param        body  body  dto.ActivityData  true  "inventario_id, descripcion, estado_nuevo, sub_estado_nuevo"
// @Success      201
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/activities/actividades/ [post]
func (h *InventoryHandler) CreateActivity(c *fiber.Ctx) error {
	var in dto.ActivityData
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if in.ItemID <= 0 {
		return writeError(c, domain.ErrInvalidInput)
	}
	if in.UserID == "" {
		in.UserID = GetUserID(c)
	}
	if err := h.store.CreateActivity(c.Context(), in); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusCreated)
}
