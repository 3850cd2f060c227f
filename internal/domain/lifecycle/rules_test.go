package lifecycle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/entity"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/lifecycle"
)

func item(cat entity.Category, st entity.State, sub entity.SubState) *entity.InventoryItem {
	return &entity.InventoryItem{ID: 1, Name: "unidad", Category: cat, State: st, SubState: sub}
}

func pos(st entity.State, sub entity.SubState) lifecycle.Position {
	return lifecycle.Position{State: st, SubState: sub}
}

func TestCanTransition_FlujoCompleto(t *testing.T) {
	steps := []lifecycle.Position{
		pos(entity.StateWarehouse, entity.SubStateAvailable),
		pos(entity.StatePreConditioning, entity.SubStateFreezing),
		pos(entity.StatePreConditioning, entity.SubStateTempering),
		pos(entity.StateConditioning, entity.SubStateAssembly),
		pos(entity.StateConditioning, entity.SubStateInProcess),
		pos(entity.StateOperation, entity.SubStateInTransit),
		pos(entity.StateOperation, entity.SubStateDelivered),
		pos(entity.StateReturn, entity.SubStatePending),
		pos(entity.StateReturn, entity.SubStateReturned),
		pos(entity.StateInspection, entity.SubStatePending),
		pos(entity.StateWarehouse, entity.SubStateAvailable),
	}
	it := item(entity.CategoryTIC, steps[0].State, steps[0].SubState)
	for i := 1; i < len(steps); i++ {
		ok, err := lifecycle.CanTransition(it, steps[i-1], steps[i])
		require.NoError(t, err, "paso %d: %v -> %v", i, steps[i-1], steps[i])
		assert.True(t, ok)
	}
}

func TestCanTransition_RetornoAOperacionEsAristaDeRegreso(t *testing.T) {
	it := item(entity.CategoryCube, entity.StateReturn, entity.SubStatePending)
	ok, err := lifecycle.CanTransition(it, lifecycle.PositionOf(it), pos(entity.StateOperation, ""))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanTransition_SinOtrasAristasDeRegreso(t *testing.T) {
	cases := []struct {
		from lifecycle.Position
		to   entity.State
	}{
		{pos(entity.StateConditioning, entity.SubStateAssembly), entity.StatePreConditioning},
		{pos(entity.StateOperation, entity.SubStateInTransit), entity.StateConditioning},
		{pos(entity.StateInspection, entity.SubStatePending), entity.StateReturn},
		{pos(entity.StateWarehouse, entity.SubStateAvailable), entity.StateOperation},
		{pos(entity.StateOperation, entity.SubStateInTransit), entity.StateWarehouse},
		{pos(entity.StatePreConditioning, entity.SubStateFreezing), entity.StateWarehouse},
		{pos(entity.StateConditioning, entity.SubStateAssembly), entity.StateWarehouse},
	}
	for _, tc := range cases {
		it := item(entity.CategoryVIP, tc.from.State, tc.from.SubState)
		ok, err := lifecycle.CanTransition(it, tc.from, pos(tc.to, ""))
		assert.False(t, ok, "%v -> %v", tc.from.State, tc.to)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	}
}

func TestCanTransition_CategoriaNoElegible(t *testing.T) {
	for _, target := range entity.States() {
		if target == entity.StateWarehouse {
			continue
		}
		for _, from := range entity.States() {
			it := item(entity.CategoryUnknown, from, lifecycle.DefaultSubState(from))
			ok, err := lifecycle.CanTransition(it, lifecycle.PositionOf(it), pos(target, ""))
			assert.False(t, ok)
			assert.ErrorIs(t, err, domain.ErrCategoryNotEligible, "%v -> %v", from, target)
		}
	}
}

func TestCanTransition_GrupoDelSistemaInmutable(t *testing.T) {
	it := item(entity.CategoryTIC, entity.StateWarehouse, entity.SubStateAvailable)
	it.System = true
	ok, err := lifecycle.CanTransition(it, lifecycle.PositionOf(it), pos(entity.StatePreConditioning, ""))
	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrSystemGroupImmutable)
}

func TestCanTransition_SubEstadoInvalido(t *testing.T) {
	it := item(entity.CategoryTIC, entity.StateConditioning, entity.SubStateAssembly)
	_, err := lifecycle.CanTransition(it, lifecycle.PositionOf(it), pos(entity.StateOperation, entity.SubStateFreezing))
	assert.ErrorIs(t, err, domain.ErrInvalidSubState)
}

func TestCanTransition_MismoEstado(t *testing.T) {
	it := item(entity.CategoryTIC, entity.StateOperation, entity.SubStateInTransit)
	_, err := lifecycle.CanTransition(it, lifecycle.PositionOf(it), pos(entity.StateOperation, ""))
	assert.ErrorIs(t, err, domain.ErrAlreadyInState)
}

func TestDefaultSubState(t *testing.T) {
	assert.Equal(t, entity.SubStateAssembly, lifecycle.DefaultSubState(entity.StateConditioning))
	assert.Equal(t, entity.SubStateInTransit, lifecycle.DefaultSubState(entity.StateOperation))
	assert.Equal(t, entity.SubStateAvailable, lifecycle.DefaultSubState(entity.StateWarehouse))
}

func TestInferCategory(t *testing.T) {
	assert.Equal(t, entity.CategoryTIC, lifecycle.InferCategory("tic-0045"))
	assert.Equal(t, entity.CategoryCube, lifecycle.InferCategory("CREDOCUBE 12L"))
	assert.Equal(t, entity.CategoryVIP, lifecycle.InferCategory("Panel VIP 3"))
	assert.Equal(t, entity.CategoryUnknown, lifecycle.InferCategory("Caja genérica"))
}

func TestParseState_ToleraTildes(t *testing.T) {
	st, ok := entity.ParseState("operacion")
	require.True(t, ok)
	assert.Equal(t, entity.StateOperation, st)

	st, ok = entity.ParseState("INSPECCIÓN")
	require.True(t, ok)
	assert.Equal(t, entity.StateInspection, st)

	_, ok = entity.ParseState("almacén")
	assert.False(t, ok)
}
