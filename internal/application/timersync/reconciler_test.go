package timersync_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/dto"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/timer"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/timersync"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/entity"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/infrastructure/kvstore"
)

var t0 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

type snapshot struct {
	timers []dto.TimerDTO
	err    error
}

func (s *snapshot) ListTimers(context.Context) ([]dto.TimerDTO, error) { return s.timers, s.err }

func newEngine() *timer.Engine {
	return timer.NewEngine(kvstore.NewMemoryStore(), timer.Config{
		Namespace: "cli",
		Clock:     func() time.Time { return t0 },
	}, zerolog.Nop())
}

func remote(id, label string, op entity.OperationType, itemID int64, ends time.Duration) dto.TimerDTO {
	return dto.TimerDTO{
		ID:                     id,
		Label:                  label,
		ItemID:                 itemID,
		OperationType:          string(op),
		InitialDurationSeconds: int64(ends.Seconds()),
		RemainingSeconds:       int64(ends.Seconds()),
		EndsAt:                 t0.Add(ends),
		Active:                 true,
		CreatedAt:              t0,
	}
}

func timerMsg(t *testing.T, action string, d *dto.TimerDTO, id string) dto.PushMessage {
	msg, err := dto.NewPushMessage(dto.MessageTimerUpdate, dto.TimerUpdatePayload{Action: action, Timer: d, TimerID: id})
	require.NoError(t, err)
	return msg
}

func TestApply_CreadoYBorrado(t *testing.T) {
	eng := newEngine()
	r := timersync.NewReconciler(eng, &snapshot{}, zerolog.Nop())
	d := remote("srv-1", "envio #3 CUBE-3", entity.OperationShipping, 3, time.Hour)

	require.NoError(t, r.Apply(timerMsg(t, dto.TimerActionCreated, &d, "")))
	got, ok := eng.Get("srv-1")
	require.True(t, ok)
	assert.Equal(t, int64(3600), got.Remaining(t0))

	require.NoError(t, r.Apply(timerMsg(t, dto.TimerActionDeleted, nil, "srv-1")))
	_, ok = eng.Get("srv-1")
	assert.False(t, ok)
}

func TestApply_ServidorGanaSobreDuplicadoLocal(t *testing.T) {
	eng := newEngine()
	local, _, err := eng.CreateTimer(context.Background(), "envio #3 CUBE-3", entity.OperationShipping, 10)
	require.NoError(t, err)
	r := timersync.NewReconciler(eng, &snapshot{}, zerolog.Nop())
	d := remote("srv-1", "envio #3 CUBE-3", entity.OperationShipping, 3, time.Hour)

	require.NoError(t, r.Apply(timerMsg(t, dto.TimerActionUpdated, &d, "")))

	_, ok := eng.Get(local.ID)
	assert.False(t, ok)
	assert.Len(t, eng.List(), 1)
}

func TestApply_PausadoConservaRestante(t *testing.T) {
	eng := newEngine()
	r := timersync.NewReconciler(eng, &snapshot{}, zerolog.Nop())
	d := remote("srv-2", "congelamiento #4", entity.OperationFreezing, 4, time.Hour)
	d.Active = false
	d.RemainingSeconds = 1200

	require.NoError(t, r.Apply(timerMsg(t, dto.TimerActionUpdated, &d, "")))

	got, ok := eng.Get("srv-2")
	require.True(t, ok)
	assert.Equal(t, int64(1200), got.Remaining(t0.Add(time.Hour)))
}

func TestApply_InventarioLiberaTemporizadoresDeEtapa(t *testing.T) {
	eng := newEngine()
	r := timersync.NewReconciler(eng, &snapshot{}, zerolog.Nop())
	envio := remote("srv-1", "envio #3", entity.OperationShipping, 3, time.Hour)
	otro := remote("srv-2", "envio #4", entity.OperationShipping, 4, time.Hour)
	require.NoError(t, r.Apply(timerMsg(t, dto.TimerActionCreated, &envio, "")))
	require.NoError(t, r.Apply(timerMsg(t, dto.TimerActionCreated, &otro, "")))

	msg, err := dto.NewPushMessage(dto.MessageInventoryUpdate, dto.InventoryUpdatePayload{
		Items: []dto.InventoryUpdateItem{
			{ID: 3, State: "Inspeccion", SubState: "Pendiente"},
			{ID: 4, State: "Devolución", SubState: "Pendiente"},
		},
	})
	require.NoError(t, err)
	require.NoError(t, r.Apply(msg))

	_, ok := eng.Get("srv-1")
	assert.False(t, ok, "envio no pertenece a Inspección")
	_, ok = eng.Get("srv-2")
	assert.True(t, ok, "envio sigue vigente en Devolución")
}

func TestApply_TipoDesconocidoSeIgnora(t *testing.T) {
	r := timersync.NewReconciler(newEngine(), &snapshot{}, zerolog.Nop())
	assert.NoError(t, r.Apply(dto.PushMessage{Type: "ping", Payload: []byte(`{}`)}))
}

func TestApply_PayloadInvalido(t *testing.T) {
	r := timersync.NewReconciler(newEngine(), &snapshot{}, zerolog.Nop())

	assert.Error(t, r.Apply(dto.PushMessage{Type: dto.MessageTimerUpdate, Payload: []byte(`[`)}))
	err := r.Apply(timerMsg(t, dto.TimerActionCreated, nil, ""))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestResync_ReemplazaRegistro(t *testing.T) {
	eng := newEngine()
	_, _, err := eng.CreateTimer(context.Background(), "local", entity.OperationFreezing, 5)
	require.NoError(t, err)
	src := &snapshot{timers: []dto.TimerDTO{
		remote("srv-1", "envio #1", entity.OperationShipping, 1, time.Hour),
		remote("srv-2", "envio #2", entity.OperationShipping, 2, 2*time.Hour),
	}}
	r := timersync.NewReconciler(eng, src, zerolog.Nop())

	require.NoError(t, r.Resync(context.Background()))

	list := eng.List()
	require.Len(t, list, 2)
	assert.Equal(t, "srv-1", list[0].ID)
}

func TestResync_ErrorConservaRegistro(t *testing.T) {
	eng := newEngine()
	_, _, err := eng.CreateTimer(context.Background(), "local", entity.OperationFreezing, 5)
	require.NoError(t, err)
	r := timersync.NewReconciler(eng, &snapshot{err: errors.New("connection refused")}, zerolog.Nop())

	assert.Error(t, r.Resync(context.Background()))
	assert.Len(t, eng.List(), 1)
}
