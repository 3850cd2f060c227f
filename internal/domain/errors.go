package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrUnauthorized = errors.New("no autorizado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// Ciclo de vida de inventario.
	ErrCategoryNotEligible  = errors.New("la categoría del ítem no permite esta etapa")
	ErrSystemGroupImmutable = errors.New("los grupos del sistema no se pueden mover ni eliminar")
	ErrInvalidTransition    = errors.New("transición de estado no permitida")
	ErrInvalidSubState      = errors.New("sub-estado no válido para el estado destino")
	ErrItemNotFound         = errors.New("ítem de inventario no encontrado")
	ErrDuplicateScan        = errors.New("código ya escaneado en este lote")
	ErrAlreadyInState       = errors.New("el ítem ya se encuentra en el estado destino")

	// Temporizadores.
	ErrInvalidDuration = errors.New("la duración debe ser mayor a cero")
	ErrTimerNotFound   = errors.New("temporizador no encontrado")

	// Operaciones masivas.
	ErrNetworkFailure       = errors.New("fallo de red con el backend")
	ErrPartialBatchFailure  = errors.New("operación masiva completada parcialmente")
	ErrBulkOperationFailed  = errors.New("operación masiva fallida")
	ErrDispatcherNotRunning = errors.New("el despachador de comandos no está activo")
)
