package http

import (
	"github.com/gofiber/fiber/v2"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Store     InventoryStore
	Bulk      BulkRunner
	Tenants   *Tenants
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	timerHandler := NewTimerHandler(deps.Tenants)

	// Canal de push (token en header o en ?token=)
	app.Get("/ws/timers", AuthMiddleware(deps.JWTSecret), timerHandler.Push)

	// Rutas protegidas (requieren Bearer Token)
	protected := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	// Inventario: superficie directa del almacén
	inventoryHandler := NewInventoryHandler(deps.Store, deps.Bulk)
	inv := protected.Group("/inventory/inventario")
	inv.Get("/rfid/:rfid", inventoryHandler.GetByRFID)
	inv.Get("/:id", inventoryHandler.GetByID)
	inv.Patch("/:id/estado", inventoryHandler.UpdateState)
	inv.Post("/bulk-state-change", inventoryHandler.BulkStateChange)
	inv.Post("/bulk-update", inventoryHandler.BulkUpdate)
	inv.Post("/bulk-activities", inventoryHandler.BulkActivities)

	protected.Post("/activities/actividades/", inventoryHandler.CreateActivity)

	// Ciclo de vida
	lifecycleHandler := NewLifecycleHandler(deps.Tenants)
	lc := protected.Group("/lifecycle")
	lc.Post("/transitions", lifecycleHandler.Transition)
	lc.Post("/return-to-operation", lifecycleHandler.ReturnToOperation)
	lc.Post("/inspection", lifecycleHandler.SendToInspection)

	// Temporizadores
	timers := protected.Group("/timers")
	timers.Get("/", timerHandler.List)
	timers.Post("/", timerHandler.Create)
	timers.Post("/batch", timerHandler.CreateBatch)
	timers.Post("/:id/pause", timerHandler.Pause)
	timers.Post("/:id/resume", timerHandler.Resume)
	// Borrar temporizadores ajenos al flujo es tarea de supervisión.
	timers.Delete("/:id", RequireRole(RoleAdmin, RoleSupervisor), timerHandler.Delete)
}
