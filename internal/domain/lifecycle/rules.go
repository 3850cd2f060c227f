package lifecycle

import (
	"strings"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/entity"
)

// Position par (estado, sub-estado) de un ítem en el flujo.
type Position struct {
	State    entity.State
	SubState entity.SubState
}

// PositionOf devuelve la posición actual del ítem.
func PositionOf(item *entity.InventoryItem) Position {
	return Position{State: item.State, SubState: item.SubState}
}

// edges aristas permitidas entre etapas. Las aristas a la misma etapa
// corresponden a cambios de sub-estado. Las únicas aristas de regreso salen de
// Devolución: a Operación (el envío continúa con su temporizador) y a Inspección.
var edges = map[entity.State][]entity.State{
	entity.StateWarehouse:       {entity.StatePreConditioning},
	entity.StatePreConditioning: {entity.StatePreConditioning, entity.StateConditioning},
	entity.StateConditioning:    {entity.StateConditioning, entity.StateOperation},
	entity.StateOperation:       {entity.StateOperation, entity.StateReturn},
	entity.StateReturn:          {entity.StateReturn, entity.StateOperation, entity.StateInspection},
	entity.StateInspection:      {entity.StateInspection, entity.StateWarehouse},
}

var allowedSubStates = map[entity.State][]entity.SubState{
	entity.StateWarehouse:       {entity.SubStateAvailable},
	entity.StatePreConditioning: {entity.SubStateFreezing, entity.SubStateTempering},
	entity.StateConditioning:    {entity.SubStateAssembly, entity.SubStateInProcess},
	entity.StateOperation:       {entity.SubStateInTransit, entity.SubStateDelivered},
	entity.StateReturn:          {entity.SubStatePending, entity.SubStateReturned},
	entity.StateInspection:      {entity.SubStatePending},
}

// DefaultSubState sub-estado asignado cuando un movimiento no indica uno.
func DefaultSubState(s entity.State) entity.SubState {
	switch s {
	case entity.StateWarehouse:
		return entity.SubStateAvailable
	case entity.StatePreConditioning:
		return entity.SubStateFreezing
	case entity.StateConditioning:
		return entity.SubStateAssembly
	case entity.StateOperation:
		return entity.SubStateInTransit
	case entity.StateReturn, entity.StateInspection:
		return entity.SubStatePending
	}
	return ""
}

// Resolve completa el sub-estado vacío con el de la tabla por defecto.
func Resolve(p Position) Position {
	if p.SubState == "" {
		p.SubState = DefaultSubState(p.State)
	}
	return p
}

// ValidSubState indica si sub pertenece a la etapa s.
func ValidSubState(s entity.State, sub entity.SubState) bool {
	for _, allowed := range allowedSubStates[s] {
		if allowed == sub {
			return true
		}
	}
	return false
}

// CanTransition decide si el ítem puede pasar de from a to. No tiene efectos
// secundarios; el motivo del rechazo es uno de los errores de dominio.
func CanTransition(item *entity.InventoryItem, from, to Position) (bool, error) {
	if item == nil {
		return false, domain.ErrItemNotFound
	}
	if item.System {
		return false, domain.ErrSystemGroupImmutable
	}
	to = Resolve(to)
	if _, known := edges[to.State]; !known {
		return false, domain.ErrInvalidTransition
	}
	if to.State != entity.StateWarehouse && !item.Category.Eligible() {
		return false, domain.ErrCategoryNotEligible
	}
	if !ValidSubState(to.State, to.SubState) {
		return false, domain.ErrInvalidSubState
	}
	if from.State == to.State && from.SubState == to.SubState {
		return false, domain.ErrAlreadyInState
	}
	for _, next := range edges[from.State] {
		if next == to.State {
			return true, nil
		}
	}
	return false, domain.ErrInvalidTransition
}

// InferCategory deduce la categoría a partir del nombre libre de la unidad.
// Solo para ingesta de registros heredados; en tiempo de ejecución manda Category.
func InferCategory(name string) entity.Category {
	upper := strings.ToUpper(name)
	switch {
	case strings.Contains(upper, "TIC"):
		return entity.CategoryTIC
	case strings.Contains(upper, "VIP"):
		return entity.CategoryVIP
	case strings.Contains(upper, "CREDO"), strings.Contains(upper, "CUBE"):
		return entity.CategoryCube
	}
	return entity.CategoryUnknown
}
