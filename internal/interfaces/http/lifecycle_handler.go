package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/dto"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/lifecycle"
)

// LifecycleHandler cambios de etapa. Todas las acciones pasan por la cola de
// comandos de la empresa del token.
type LifecycleHandler struct {
	tenants *Tenants
}

// NewLifecycleHandler construye el handler.
func NewLifecycleHandler(tenants *Tenants) *LifecycleHandler {
	return &LifecycleHandler{tenants: tenants}
}

// Transition godoc
// @Summary      Mover ítems a una etapa
// @Description  Valida todos los ítems antes de escribir; un ítem ilegal rechaza el request completo.
// @Description  Los fallos de escritura por ítem devuelven 207 con el detalle en errors.
// @Tags         lifecycle
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.TransitionRequest  true  "item_ids o rfids, estado, sub_estado, timer_minutes"
// @Success      200   {object}  dto.TransitionResponse
// @Success      207   {object}  dto.TransitionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      502   {object}  dto.TransitionResponse
// @Router       /api/lifecycle/transitions [post]
func (h *LifecycleHandler) Transition(c *fiber.Ctx) error {
	var in dto.TransitionRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	return h.submit(c, func(userID string) lifecycle.Command {
		return lifecycle.MoveCommand{UserID: userID, Request: in}
	})
}

// ReturnToOperation regresa ítems de Devolución a Operación.
// @Router /api/lifecycle/return-to-operation [post]
func (h *LifecycleHandler) ReturnToOperation(c *fiber.Ctx) error {
	var in dto.ItemsActionRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	return h.submit(c, func(userID string) lifecycle.Command {
		return lifecycle.ReturnToOperationCommand{UserID: userID, Request: in}
	})
}

// SendToInspection pasa ítems de Devolución a Inspección.
// @Router /api/lifecycle/inspection [post]
func (h *LifecycleHandler) SendToInspection(c *fiber.Ctx) error {
	var in dto.ItemsActionRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	return h.submit(c, func(userID string) lifecycle.Command {
		return lifecycle.SendToInspectionCommand{UserID: userID, Request: in}
	})
}

func (h *LifecycleHandler) submit(c *fiber.Ctx, build func(userID string) lifecycle.Command) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	tn, err := h.tenants.Get(GetCompanyID(c))
	if err != nil {
		return unauthorized(c)
	}
	resp, err := tn.Dispatcher.Submit(c.UserContext(), build(userID))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(bulkStatus(resp.BulkOperationResult)).JSON(resp)
}
