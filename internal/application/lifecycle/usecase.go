package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/dto"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/timer"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/entity"
	rules "github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/lifecycle"
)

// DefaultShippingMinutes duración del temporizador de envío (96 h).
const DefaultShippingMinutes = 96 * 60

// ItemReader lectura de ítems desde el almacén autoritativo.
type ItemReader interface {
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id int64) (*entity.InventoryItem, error)
	GetByRFID(ctx context.Context, rfid string) (*entity.InventoryItem, error)
}

// BulkExecutor aplica los cambios de estado (ver bulk.Executor).
type BulkExecutor interface {
	Execute(ctx context.Context, updates []dto.ItemUpdate) dto.BulkOperationResult
}

// Notifier recibe las nuevas posiciones de los ítems movidos (p. ej. el hub de push).
type Notifier interface {
	InventoryChanged(items []dto.InventoryUpdateItem)
}

// Config parámetros del ciclo de vida.
type Config struct {
	ShippingMinutes int
}

// TransitionError rechazo de legalidad atribuido a un ítem; se produce antes de
// cualquier llamada de red.
type TransitionError struct {
	ItemID int64
	Err    error
}

func (e *TransitionError) Error() string { return fmt.Sprintf("item %d: %v", e.ItemID, e.Err) }

func (e *TransitionError) Unwrap() error { return e.Err }

// UseCase valida y ejecuta cambios de etapa para uno o muchos ítems. Siempre
// delega la escritura al ejecutor masivo, aun para un solo ítem.
type UseCase struct {
	items    ItemReader
	exec     BulkExecutor
	timers   *timer.Engine
	notifier Notifier
	cfg      Config
	log      zerolog.Logger
}

// NewUseCase construye el caso de uso. notifier puede ser nil.
func NewUseCase(items ItemReader, exec BulkExecutor, timers *timer.Engine, notifier Notifier, cfg Config, log zerolog.Logger) *UseCase {
	if cfg.ShippingMinutes <= 0 {
		cfg.ShippingMinutes = DefaultShippingMinutes
	}
	return &UseCase{
		items:    items,
		exec:     exec,
		timers:   timers,
		notifier: notifier,
		cfg:      cfg,
		log:      log.With().Str("component", "lifecycle").Logger(),
	}
}

// Transition mueve los ítems del request a la etapa indicada. Un error de
// legalidad en cualquier ítem rechaza el request completo sin escribir nada;
// los fallos de red por ítem quedan en la respuesta (éxito parcial).
func (uc *UseCase) Transition(ctx context.Context, userID string, req dto.TransitionRequest) (dto.TransitionResponse, error) {
	return uc.transition(ctx, userID, req, "")
}

// ReturnToOperation regresa ítems de Devolución a Operación conservando su
// temporizador de envío (o restaurándolo desde la llegada estimada).
func (uc *UseCase) ReturnToOperation(ctx context.Context, userID string, req dto.ItemsActionRequest) (dto.TransitionResponse, error) {
	return uc.transition(ctx, userID, dto.TransitionRequest{
		ItemIDs:      req.ItemIDs,
		State:        string(entity.StateOperation),
		SubState:     string(entity.SubStateInTransit),
		Description:  "Regreso a operación desde devolución",
		TimerMinutes: req.TimerMinutes,
	}, entity.StateReturn)
}

// SendToInspection pasa ítems de Devolución a Inspección cancelando su envío.
func (uc *UseCase) SendToInspection(ctx context.Context, userID string, req dto.ItemsActionRequest) (dto.TransitionResponse, error) {
	return uc.transition(ctx, userID, dto.TransitionRequest{
		ItemIDs:      req.ItemIDs,
		State:        string(entity.StateInspection),
		SubState:     string(entity.SubStatePending),
		Description:  "Envío a inspección desde devolución",
		TimerMinutes: req.TimerMinutes,
	}, entity.StateReturn)
}

type move struct {
	item *entity.InventoryItem
	from rules.Position
}

func (uc *UseCase) transition(ctx context.Context, userID string, req dto.TransitionRequest, requireFrom entity.State) (dto.TransitionResponse, error) {
	var resp dto.TransitionResponse
	resp.Errors = []string{}

	st, ok := entity.ParseState(req.State)
	if !ok {
		return resp, fmt.Errorf("estado %q: %w", req.State, domain.ErrInvalidInput)
	}
	sub, ok := entity.ParseSubState(req.SubState)
	if !ok {
		return resp, fmt.Errorf("sub-estado %q: %w", req.SubState, domain.ErrInvalidSubState)
	}
	if req.TimerMinutes < 0 {
		return resp, domain.ErrInvalidDuration
	}
	target := rules.Resolve(rules.Position{State: st, SubState: sub})

	items, warnings, err := uc.resolveItems(ctx, req)
	if err != nil {
		return resp, err
	}
	resp.Warnings = warnings
	if len(items) == 0 {
		return resp, fmt.Errorf("sin ítems: %w", domain.ErrInvalidInput)
	}

	// Legalidad de todos los ítems antes de cualquier escritura.
	moves := make([]move, 0, len(items))
	for _, it := range items {
		from := rules.PositionOf(it)
		if requireFrom != "" && from.State != requireFrom && !(from == target) {
			return resp, &TransitionError{ItemID: it.ID, Err: domain.ErrInvalidTransition}
		}
		if _, err := rules.CanTransition(it, from, target); err != nil {
			if errors.Is(err, domain.ErrAlreadyInState) {
				resp.Warnings = append(resp.Warnings, fmt.Sprintf("item %d: %v", it.ID, err))
				continue
			}
			return resp, &TransitionError{ItemID: it.ID, Err: err}
		}
		moves = append(moves, move{item: it, from: from})
	}
	if len(moves) == 0 {
		return resp, nil
	}

	updates := make([]dto.ItemUpdate, len(moves))
	for i, m := range moves {
		updates[i] = dto.ItemUpdate{
			ItemID:         m.item.ID,
			TargetState:    string(target.State),
			TargetSubState: string(target.SubState),
			Lot:            req.Lot,
			Description:    req.Description,
			UserID:         userID,
		}
	}
	resp.BulkOperationResult = uc.exec.Execute(ctx, updates)

	failed := make(map[int64]bool, len(resp.FailedIDs))
	for _, id := range resp.FailedIDs {
		failed[id] = true
	}
	var changed []dto.InventoryUpdateItem
	for _, m := range moves {
		if failed[m.item.ID] {
			continue
		}
		uc.applyTimerEffects(ctx, m, target, req.TimerMinutes, &resp)
		changed = append(changed, dto.InventoryUpdateItem{
			ID: m.item.ID, State: string(target.State), SubState: string(target.SubState),
		})
	}
	if uc.notifier != nil && len(changed) > 0 {
		uc.notifier.InventoryChanged(changed)
	}

	uc.log.Info().
		Str("estado", string(target.State)).
		Str("sub_estado", string(target.SubState)).
		Int("success", resp.Success).
		Int("total", resp.Total).
		Int("timers_created", resp.TimersCreated).
		Int("timers_deleted", resp.TimersDeleted).
		Msg("transición aplicada")
	return resp, nil
}

// resolveItems carga los ítems por id y por RFID. Repetidos se informan como
// advertencias; un ítem inexistente rechaza el request.
func (uc *UseCase) resolveItems(ctx context.Context, req dto.TransitionRequest) ([]*entity.InventoryItem, []string, error) {
	var (
		items    []*entity.InventoryItem
		warnings []string
		seen     = make(map[int64]bool)
	)
	add := func(it *entity.InventoryItem) {
		if seen[it.ID] {
			warnings = append(warnings, fmt.Sprintf("item %d: repetido en la selección", it.ID))
			return
		}
		seen[it.ID] = true
		items = append(items, it)
	}

	for _, id := range req.ItemIDs {
		it, err := uc.items.GetByID(ctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("leer ítem %d: %w", id, err)
		}
		if it == nil {
			return nil, nil, &TransitionError{ItemID: id, Err: domain.ErrItemNotFound}
		}
		add(it)
	}

	scan := NewScanSession()
	for _, raw := range req.RFIDs {
		code := NormalizeRFID(raw)
		if err := scan.Capture(code); err != nil {
			warnings = append(warnings, fmt.Sprintf("rfid %s: %v", code, err))
			continue
		}
		it, err := uc.items.GetByRFID(ctx, code)
		if err != nil {
			return nil, nil, fmt.Errorf("leer rfid %s: %w", code, err)
		}
		if it == nil {
			return nil, nil, fmt.Errorf("rfid %s: %w", code, domain.ErrItemNotFound)
		}
		add(it)
	}
	return items, warnings, nil
}

// applyTimerEffects efectos declarados de la transición sobre los temporizadores.
func (uc *UseCase) applyTimerEffects(ctx context.Context, m move, to rules.Position, minutes int, resp *dto.TransitionResponse) {
	id := m.item.ID
	from := m.from

	resp.TimersDeleted += uc.timers.ReleaseItem(id, to.State)
	if from.State == entity.StatePreConditioning && to.State == entity.StatePreConditioning && from.SubState != to.SubState {
		resp.TimersDeleted += uc.timers.CancelItem(id, preconditioningOp(from.SubState))
	}
	if entity.OperationShipping.OwnedBy(from.State) && !entity.OperationShipping.OwnedBy(to.State) {
		if err := uc.timers.ForgetETA(id); err != nil {
			uc.log.Warn().Err(err).Int64("item_id", id).Msg("eliminar llegada estimada")
		}
	}

	switch to.State {
	case entity.StatePreConditioning:
		if minutes > 0 {
			uc.startTimer(ctx, m.item, preconditioningOp(to.SubState), minutes, resp)
		}
	case entity.StateOperation:
		switch from.State {
		case entity.StateReturn:
			label := entity.ItemLabel(entity.OperationShipping, id, m.item.Name)
			t, restored, err := uc.timers.RestoreIfMissing(ctx, id, label, nil)
			switch {
			case err != nil:
				uc.log.Error().Err(err).Int64("item_id", id).Msg("restaurar temporizador de envío")
				resp.TimersMissing = append(resp.TimersMissing, id)
			case restored:
				resp.TimersCreated++
			case t.ID == "":
				resp.TimersMissing = append(resp.TimersMissing, id)
			}
		case entity.StateConditioning:
			if minutes <= 0 {
				minutes = uc.cfg.ShippingMinutes
			}
			t, created := uc.startTimer(ctx, m.item, entity.OperationShipping, minutes, resp)
			if created {
				if err := uc.timers.RecordETA(id, t.Label, t.EndsAt); err != nil {
					uc.log.Warn().Err(err).Int64("item_id", id).Msg("guardar llegada estimada")
				}
			}
		}
	case entity.StateInspection:
		if minutes > 0 && from.State != entity.StateInspection {
			uc.startTimer(ctx, m.item, entity.OperationInspection, minutes, resp)
		}
	}
}

func (uc *UseCase) startTimer(ctx context.Context, it *entity.InventoryItem, op entity.OperationType, minutes int, resp *dto.TransitionResponse) (entity.Timer, bool) {
	t, created, err := uc.timers.CreateTimer(ctx, entity.ItemLabel(op, it.ID, it.Name), op, minutes)
	if err != nil {
		uc.log.Error().Err(err).Int64("item_id", it.ID).Str("op", string(op)).Msg("crear temporizador")
		return entity.Timer{}, false
	}
	if created {
		resp.TimersCreated++
	}
	return t, created
}

func preconditioningOp(sub entity.SubState) entity.OperationType {
	if sub == entity.SubStateTempering {
		return entity.OperationTempering
	}
	return entity.OperationFreezing
}
