package entity

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

// OperationType tipo de cuenta regresiva.
type OperationType string

const (
	OperationFreezing   OperationType = "congelamiento"
	OperationTempering  OperationType = "atemperamiento"
	OperationShipping   OperationType = "envio"
	OperationInspection OperationType = "inspeccion"
)

// Valid indica si el tipo de operación es conocido.
func (o OperationType) Valid() bool {
	switch o {
	case OperationFreezing, OperationTempering, OperationShipping, OperationInspection:
		return true
	}
	return false
}

// OwningStates etapas durante las cuales un temporizador de este tipo sigue vigente.
// El de envío sobrevive a Devolución para permitir "regresar a operación".
func (o OperationType) OwningStates() []State {
	switch o {
	case OperationFreezing, OperationTempering:
		return []State{StatePreConditioning}
	case OperationShipping:
		return []State{StateOperation, StateReturn}
	case OperationInspection:
		return []State{StateInspection}
	}
	return nil
}

// OwnedBy indica si el temporizador sigue vigente en la etapa dada.
func (o OperationType) OwnedBy(s State) bool {
	for _, st := range o.OwningStates() {
		if st == s {
			return true
		}
	}
	return false
}

// Timer cuenta regresiva atada a un ítem o a un grupo con nombre.
// EndsAt es la fuente de verdad; el tiempo restante siempre se deriva de él.
type Timer struct {
	ID                     string        `json:"id"`
	Label                  string        `json:"label"`
	ItemID                 int64         `json:"item_id,omitempty"`
	OperationType          OperationType `json:"operation_type"`
	InitialDurationSeconds int64         `json:"initial_duration_seconds"`
	EndsAt                 time.Time     `json:"ends_at"`
	Active                 bool          `json:"active"`
	Completed              bool          `json:"completed"`
	// PausedRemainingSeconds se registra al pausar y solo es válido con Active=false.
	PausedRemainingSeconds int64     `json:"paused_remaining_seconds,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
}

// Remaining segundos restantes en el instante now.
func (t *Timer) Remaining(now time.Time) int64 {
	if t.Completed {
		return 0
	}
	if !t.Active {
		return t.PausedRemainingSeconds
	}
	return RemainingUntil(t.EndsAt, now)
}

// RemainingUntil max(0, round((endsAt-now)/1s)).
func RemainingUntil(endsAt, now time.Time) int64 {
	secs := math.Round(endsAt.Sub(now).Seconds())
	if secs < 0 {
		return 0
	}
	return int64(secs)
}

var labelItemRe = regexp.MustCompile(`#(\d+)\b`)

// ItemLabel construye la etiqueta estándar de un temporizador atado a un ítem.
func ItemLabel(op OperationType, itemID int64, name string) string {
	if name == "" {
		return fmt.Sprintf("%s #%d", op, itemID)
	}
	return fmt.Sprintf("%s #%d %s", op, itemID, name)
}

// ItemIDFromLabel extrae el id de ítem codificado en la etiqueta ("#123").
func ItemIDFromLabel(label string) (int64, bool) {
	m := labelItemRe.FindStringSubmatch(label)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ArrivalEstimate fecha estimada de llegada pendiente de un ítem en envío.
type ArrivalEstimate struct {
	ItemID int64     `json:"item_id"`
	Label  string    `json:"label"`
	EndsAt time.Time `json:"ends_at"`
}
