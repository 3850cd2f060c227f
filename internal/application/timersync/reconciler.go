// Package timersync aplica en un registro local de temporizadores los
// mensajes del canal de push del servidor.
package timersync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/dto"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/timer"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/entity"
)

// SnapshotSource listado completo de temporizadores del servidor (GET /api/timers).
type SnapshotSource interface {
	ListTimers(ctx context.Context) ([]dto.TimerDTO, error)
}

// Reconciler mantiene el registro local alineado con el servidor. Los mensajes
// se aplican en orden de llegada y el último gana.
type Reconciler struct {
	engine *timer.Engine
	src    SnapshotSource
	log    zerolog.Logger
}

func NewReconciler(engine *timer.Engine, src SnapshotSource, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		engine: engine,
		src:    src,
		log:    log.With().Str("component", "timersync").Logger(),
	}
}

// Apply procesa un mensaje de push. Los tipos desconocidos se ignoran.
func (r *Reconciler) Apply(msg dto.PushMessage) error {
	switch msg.Type {
	case dto.MessageTimerUpdate:
		var p dto.TimerUpdatePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("timer_update: %w", err)
		}
		return r.applyTimer(p)
	case dto.MessageInventoryUpdate:
		var p dto.InventoryUpdatePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("inventory_update: %w", err)
		}
		r.applyInventory(p)
		return nil
	default:
		r.log.Debug().Str("type", msg.Type).Msg("mensaje ignorado")
		return nil
	}
}

func (r *Reconciler) applyTimer(p dto.TimerUpdatePayload) error {
	switch p.Action {
	case dto.TimerActionDeleted:
		id := p.TimerID
		if id == "" && p.Timer != nil {
			id = p.Timer.ID
		}
		if id == "" {
			return fmt.Errorf("timer_update deleted sin id: %w", domain.ErrInvalidInput)
		}
		r.engine.RemoveRemote(id)
	case dto.TimerActionCreated, dto.TimerActionUpdated, dto.TimerActionCompleted:
		if p.Timer == nil || p.Timer.ID == "" {
			return fmt.Errorf("timer_update %s sin temporizador: %w", p.Action, domain.ErrInvalidInput)
		}
		r.engine.ApplyRemote(p.Timer.Entity())
	default:
		r.log.Debug().Str("action", p.Action).Msg("acción de temporizador ignorada")
	}
	return nil
}

// applyInventory descarta los temporizadores cuya etapa dueña el ítem abandonó.
func (r *Reconciler) applyInventory(p dto.InventoryUpdatePayload) {
	for _, it := range p.Items {
		st, ok := entity.ParseState(it.State)
		if !ok {
			r.log.Warn().Int64("item_id", it.ID).Str("estado", it.State).Msg("estado desconocido en inventory_update")
			continue
		}
		id := it.ID
		n := r.engine.RemoveRemoteWhere(func(t entity.Timer) bool {
			return t.ItemID == id && !t.OperationType.OwnedBy(st)
		})
		if n > 0 {
			r.log.Debug().Int64("item_id", id).Int("removed", n).Msg("temporizadores liberados por cambio de etapa")
		}
	}
}

// Resync reemplaza el registro local por el listado completo del servidor.
// Se invoca en cada (re)conexión del canal.
func (r *Reconciler) Resync(ctx context.Context) error {
	list, err := r.src.ListTimers(ctx)
	if err != nil {
		return fmt.Errorf("resincronizar: %w", err)
	}
	timers := make([]entity.Timer, len(list))
	for i, d := range list {
		timers[i] = d.Entity()
	}
	r.engine.ReplaceAll(timers)
	r.log.Info().Int("timers", len(timers)).Msg("registro resincronizado")
	return nil
}
