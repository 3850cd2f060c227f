package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/dto"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/entity"
)

// TimerHandler registro de temporizadores de la empresa del token.
type TimerHandler struct {
	tenants *Tenants
}

// NewTimerHandler construye el handler.
func NewTimerHandler(tenants *Tenants) *TimerHandler {
	return &TimerHandler{tenants: tenants}
}

func (h *TimerHandler) tenant(c *fiber.Ctx) (*Tenant, bool) {
	tn, err := h.tenants.Get(GetCompanyID(c))
	if err != nil {
		return nil, false
	}
	return tn, true
}

// List godoc
// @Summary      Listar temporizadores
// @Description  El tiempo restante se calcula en el servidor al momento de responder.
// @Tags         timers
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.TimerDTO
// @Router       /api/timers [get]
func (h *TimerHandler) List(c *fiber.Ctx) error {
	tn, ok := h.tenant(c)
	if !ok {
		return unauthorized(c)
	}
	now := tn.Timers.Now()
	timers := tn.Timers.List()
	out := make([]dto.TimerDTO, 0, len(timers))
	for _, t := range timers {
		out = append(out, dto.NewTimerDTO(t, now))
	}
	return c.JSON(out)
}

// Create godoc
// @Summary      Crear temporizador
// @Description  Si ya existe uno activo con la misma etiqueta se devuelve ese (200).
// @Tags         timers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateTimerRequest  true  "label, operation_type, duration_minutes"
// @Success      201   {object}  dto.TimerDTO
// @Success      200   {object}  dto.TimerDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/timers [post]
func (h *TimerHandler) Create(c *fiber.Ctx) error {
	tn, ok := h.tenant(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.CreateTimerRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	t, created, err := tn.Timers.CreateTimer(c.UserContext(), in.Label, entity.OperationType(in.OperationType), in.DurationMinutes)
	if err != nil {
		return writeError(c, err)
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(dto.NewTimerDTO(t, tn.Timers.Now()))
}

// CreateBatch crea un temporizador independiente por etiqueta; 207 si alguna falla.
// @Router /api/timers/batch [post]
func (h *TimerHandler) CreateBatch(c *fiber.Ctx) error {
	tn, ok := h.tenant(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.CreateTimerBatchRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if len(in.Labels) == 0 {
		return writeError(c, domain.ErrInvalidInput)
	}
	timers, res := tn.Timers.CreateBatch(c.UserContext(), in.Labels, entity.OperationType(in.OperationType), in.DurationMinutes)
	now := tn.Timers.Now()
	out := dto.TimerBatchResponse{BulkOperationResult: res, Timers: make([]dto.TimerDTO, 0, len(timers))}
	for _, t := range timers {
		out.Timers = append(out.Timers, dto.NewTimerDTO(t, now))
	}
	status := bulkStatus(res)
	if status == fiber.StatusBadGateway {
		// Ningún temporizador creado por datos inválidos, no por la red.
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(out)
}

// Pause congela el tiempo restante.
func (h *TimerHandler) Pause(c *fiber.Ctx) error {
	tn, ok := h.tenant(c)
	if !ok {
		return unauthorized(c)
	}
	t, err := tn.Timers.Pause(c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewTimerDTO(t, tn.Timers.Now()))
}

// Resume reanuda desde el restante congelado.
func (h *TimerHandler) Resume(c *fiber.Ctx) error {
	tn, ok := h.tenant(c)
	if !ok {
		return unauthorized(c)
	}
	t, err := tn.Timers.Resume(c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewTimerDTO(t, tn.Timers.Now()))
}

// Delete elimina el temporizador. Idempotente: 204 aunque no exista.
func (h *TimerHandler) Delete(c *fiber.Ctx) error {
	tn, ok := h.tenant(c)
	if !ok {
		return unauthorized(c)
	}
	tn.Timers.Delete(c.Params("id"))
	return c.SendStatus(fiber.StatusNoContent)
}

// Push canal /ws/timers de la empresa del token.
func (h *TimerHandler) Push(c *fiber.Ctx) error {
	tn, ok := h.tenant(c)
	if !ok {
		return unauthorized(c)
	}
	return tn.push(c)
}
