package entity

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Category tipo físico de la unidad. Vacío = categoría desconocida (no apta para el flujo).
type Category string

const (
	CategoryUnknown Category = ""
	CategoryCube    Category = "Cube" // credocube
	CategoryVIP     Category = "VIP"
	CategoryTIC     Category = "TIC"
)

// Eligible indica si la categoría puede recorrer el flujo operativo.
func (c Category) Eligible() bool {
	switch c {
	case CategoryCube, CategoryVIP, CategoryTIC:
		return true
	}
	return false
}

// State etapa principal del flujo operativo.
type State string

const (
	StateWarehouse       State = "En bodega"
	StatePreConditioning State = "Pre-acondicionamiento"
	StateConditioning    State = "Acondicionamiento"
	StateOperation       State = "Operación"
	StateReturn          State = "Devolución"
	StateInspection      State = "Inspección"
)

// States devuelve las seis etapas en orden de flujo.
func States() []State {
	return []State{
		StateWarehouse, StatePreConditioning, StateConditioning,
		StateOperation, StateReturn, StateInspection,
	}
}

// SubState estado secundario, solo tiene sentido relativo a State.
type SubState string

const (
	SubStateAvailable SubState = "Disponible"
	SubStateFreezing  SubState = "Congelación"
	SubStateTempering SubState = "Atemperamiento"
	SubStateAssembly  SubState = "Ensamblaje"
	SubStateInProcess SubState = "En proceso"
	SubStateInTransit SubState = "En transito"
	SubStateDelivered SubState = "Entregado"
	SubStatePending   SubState = "Pendiente"
	SubStateReturned  SubState = "Devuelto"
)

func subStates() []SubState {
	return []SubState{
		SubStateAvailable, SubStateFreezing, SubStateTempering, SubStateAssembly,
		SubStateInProcess, SubStateInTransit, SubStateDelivered, SubStatePending,
		SubStateReturned,
	}
}

// InventoryItem unidad física registrada (credocube, VIP o TIC).
// System marca los pseudo-nodos de agrupación que no son ítems reales.
type InventoryItem struct {
	ID        int64
	Name      string
	RFID      string
	Category  Category
	State     State
	SubState  SubState
	Lot       *string
	System    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ParseState interpreta un estado tolerando mayúsculas y tildes ausentes ("Operacion").
func ParseState(s string) (State, bool) {
	key := foldKey(s)
	for _, st := range States() {
		if foldKey(string(st)) == key {
			return st, true
		}
	}
	return "", false
}

// ParseSubState interpreta un sub-estado con la misma tolerancia que ParseState.
func ParseSubState(s string) (SubState, bool) {
	key := foldKey(s)
	if key == "" {
		return "", true
	}
	for _, st := range subStates() {
		if foldKey(string(st)) == key {
			return st, true
		}
	}
	return "", false
}

// ParseCategory interpreta una categoría explícita ("cube", "credo", "vip", "tic").
func ParseCategory(s string) Category {
	switch foldKey(s) {
	case "cube", "credo", "credocube":
		return CategoryCube
	case "vip":
		return CategoryVIP
	case "tic":
		return CategoryTIC
	}
	return CategoryUnknown
}

// foldKey normaliza a minúsculas sin diacríticos ni espacios extremos.
func foldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
