package timer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/dto"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/entity"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/repository"
)

// DefaultTickInterval intervalo del ciclo de recálculo.
const DefaultTickInterval = time.Second

// Event cambio local del registro, difundido por el Publisher.
type Event struct {
	Action string // dto.TimerActionCreated, ...
	Timer  entity.Timer
}

// Publisher recibe los eventos del motor (p. ej. el hub del canal de push).
// Publish no debe bloquear.
type Publisher interface {
	Publish(evt Event)
}

// ETASource fuente de llegadas estimadas usada por RestoreIfMissing.
type ETASource interface {
	ETA(itemID int64) (entity.ArrivalEstimate, bool, error)
}

// Config configuración del motor.
type Config struct {
	// Namespace prefijo de las claves persistidas (por empresa/sesión).
	Namespace    string
	TickInterval time.Duration
	// Clock reloj inyectable; nil = time.Now.
	Clock func() time.Time
}

// Engine registro único de temporizadores. Toda mutación se serializa con mu
// frente a las lecturas del ciclo de tick.
type Engine struct {
	mu     sync.RWMutex
	timers map[string]*entity.Timer

	store repository.KVStore
	ns    string
	tick  time.Duration
	now   func() time.Time
	log   zerolog.Logger

	pubMu sync.RWMutex
	pub   Publisher

	// Eventos pendientes en orden de mutación. Se encolan con mu tomado y los
	// entrega un único goroutine a la vez (draining).
	qMu      sync.Mutex
	queue    []Event
	draining bool
}

// NewEngine construye el motor sobre un almacén clave-valor.
func NewEngine(store repository.KVStore, cfg Config, log zerolog.Logger) *Engine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	ns := strings.Trim(cfg.Namespace, "/")
	if ns == "" {
		ns = "default"
	}
	return &Engine{
		timers: make(map[string]*entity.Timer),
		store:  store,
		ns:     ns,
		tick:   cfg.TickInterval,
		now:    cfg.Clock,
		log:    log.With().Str("component", "timer").Str("namespace", ns).Logger(),
	}
}

// SetPublisher registra el destino de los eventos locales.
func (e *Engine) SetPublisher(p Publisher) {
	e.pubMu.Lock()
	e.pub = p
	e.pubMu.Unlock()
}

// Now reloj del motor.
func (e *Engine) Now() time.Time { return e.now() }

// Load restaura el registro persistido y completa los que vencieron mientras no había tick.
func (e *Engine) Load(ctx context.Context) error {
	timers, err := loadTimers(e.store, e.timersKey())
	if err != nil {
		return fmt.Errorf("cargar temporizadores: %w", err)
	}
	e.mu.Lock()
	e.timers = make(map[string]*entity.Timer, len(timers))
	for i := range timers {
		t := timers[i]
		e.timers[t.ID] = &t
	}
	e.mu.Unlock()
	e.log.Info().Int("timers", len(timers)).Msg("temporizadores restaurados")
	e.Tick(e.now())
	return ctx.Err()
}

// List devuelve una copia del registro ordenada por vencimiento.
func (e *Engine) List() []entity.Timer {
	e.mu.RLock()
	out := make([]entity.Timer, 0, len(e.timers))
	for _, t := range e.timers {
		out = append(out, *t)
	}
	e.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].EndsAt.Equal(out[j].EndsAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].EndsAt.Before(out[j].EndsAt)
	})
	return out
}

// Get devuelve el temporizador por id.
func (e *Engine) Get(id string) (entity.Timer, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.timers[id]
	if !ok {
		return entity.Timer{}, false
	}
	return *t, true
}

// CreateTimer crea una cuenta regresiva de durationMinutes. Si ya hay uno activo
// sin completar con la misma etiqueta (o el mismo ítem y tipo), lo devuelve sin
// crear otro; created indica si se creó uno nuevo.
func (e *Engine) CreateTimer(ctx context.Context, label string, op entity.OperationType, durationMinutes int) (t entity.Timer, created bool, err error) {
	if durationMinutes <= 0 {
		return entity.Timer{}, false, domain.ErrInvalidDuration
	}
	if err := ctx.Err(); err != nil {
		return entity.Timer{}, false, err
	}
	now := e.now()
	return e.create(label, op, now.Add(time.Duration(durationMinutes)*time.Minute), now)
}

// CreateBatch crea un temporizador independiente por etiqueta. No es todo o nada:
// los fallos se informan por etiqueta como en las operaciones masivas.
func (e *Engine) CreateBatch(ctx context.Context, labels []string, op entity.OperationType, durationMinutes int) ([]entity.Timer, dto.BulkOperationResult) {
	res := dto.BulkOperationResult{Total: len(labels), Errors: []string{}}
	out := make([]entity.Timer, 0, len(labels))
	for _, label := range labels {
		t, _, err := e.CreateTimer(ctx, label, op, durationMinutes)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", label, err))
			if id, ok := entity.ItemIDFromLabel(label); ok {
				res.FailedIDs = append(res.FailedIDs, id)
			}
			continue
		}
		res.Success++
		out = append(out, t)
	}
	return out, res
}

func (e *Engine) create(label string, op entity.OperationType, endsAt, now time.Time) (entity.Timer, bool, error) {
	label = strings.TrimSpace(label)
	if label == "" || !op.Valid() {
		return entity.Timer{}, false, domain.ErrInvalidInput
	}
	itemID, _ := entity.ItemIDFromLabel(label)

	e.mu.Lock()
	if existing := e.findActiveLocked(label, itemID, op); existing != nil {
		t := *existing
		e.mu.Unlock()
		return t, false, nil
	}
	t := &entity.Timer{
		ID:                     uuid.New().String(),
		Label:                  label,
		ItemID:                 itemID,
		OperationType:          op,
		InitialDurationSeconds: entity.RemainingUntil(endsAt, now),
		EndsAt:                 endsAt,
		Active:                 true,
		CreatedAt:              now,
	}
	e.timers[t.ID] = t
	e.persistLocked()
	snapshot := *t
	e.enqueueLocked(Event{Action: dto.TimerActionCreated, Timer: snapshot})
	e.mu.Unlock()

	e.log.Debug().Str("timer_id", t.ID).Str("label", label).Str("op", string(op)).Time("ends_at", endsAt).Msg("temporizador creado")
	e.flush()
	return snapshot, true, nil
}

// findActiveLocked busca un temporizador sin completar con la misma etiqueta o,
// si la etiqueta codifica un ítem, con el mismo ítem y tipo de operación. Uno en
// pausa cuenta: sigue siendo la cuenta regresiva del ítem.
func (e *Engine) findActiveLocked(label string, itemID int64, op entity.OperationType) *entity.Timer {
	for _, t := range e.timers {
		if t.Completed {
			continue
		}
		if label != "" && t.Label == label {
			return t
		}
		if itemID != 0 && t.ItemID == itemID && t.OperationType == op {
			return t
		}
	}
	return nil
}

// ActiveForItem devuelve el temporizador sin completar (corriendo o en pausa)
// del ítem para el tipo dado. Usa el mismo criterio que CreateTimer.
func (e *Engine) ActiveForItem(itemID int64, op entity.OperationType) (entity.Timer, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if t := e.findActiveLocked("", itemID, op); t != nil {
		return *t, true
	}
	return entity.Timer{}, false
}

// Pause congela el tiempo restante. Sin efecto si ya está en pausa o completado.
func (e *Engine) Pause(id string) (entity.Timer, error) {
	now := e.now()
	e.mu.Lock()
	t, ok := e.timers[id]
	if !ok {
		e.mu.Unlock()
		return entity.Timer{}, domain.ErrTimerNotFound
	}
	if !t.Active || t.Completed {
		snapshot := *t
		e.mu.Unlock()
		return snapshot, nil
	}
	t.PausedRemainingSeconds = t.Remaining(now)
	t.Active = false
	e.persistLocked()
	snapshot := *t
	e.enqueueLocked(Event{Action: dto.TimerActionUpdated, Timer: snapshot})
	e.mu.Unlock()

	e.flush()
	return snapshot, nil
}

// Resume recalcula EndsAt = now + restante congelado y reanuda la cuenta.
func (e *Engine) Resume(id string) (entity.Timer, error) {
	now := e.now()
	e.mu.Lock()
	t, ok := e.timers[id]
	if !ok {
		e.mu.Unlock()
		return entity.Timer{}, domain.ErrTimerNotFound
	}
	if t.Active || t.Completed {
		snapshot := *t
		e.mu.Unlock()
		return snapshot, nil
	}
	t.EndsAt = now.Add(time.Duration(t.PausedRemainingSeconds) * time.Second)
	t.PausedRemainingSeconds = 0
	t.Active = true
	e.persistLocked()
	snapshot := *t
	e.enqueueLocked(Event{Action: dto.TimerActionUpdated, Timer: snapshot})
	e.mu.Unlock()

	e.flush()
	return snapshot, nil
}

// Delete elimina el temporizador de inmediato. Idempotente.
func (e *Engine) Delete(id string) {
	e.mu.Lock()
	t, ok := e.timers[id]
	if !ok {
		e.mu.Unlock()
		return
	}
	delete(e.timers, id)
	e.persistLocked()
	e.enqueueLocked(Event{Action: dto.TimerActionDeleted, Timer: *t})
	e.mu.Unlock()

	e.flush()
}

// ReleaseItem elimina los temporizadores del ítem que dejan de tener vigencia en la etapa state.
func (e *Engine) ReleaseItem(itemID int64, state entity.State) int {
	return e.deleteWhere(func(t *entity.Timer) bool {
		return t.ItemID == itemID && !t.OperationType.OwnedBy(state)
	})
}

// CancelItem elimina los temporizadores del ítem de los tipos indicados.
func (e *Engine) CancelItem(itemID int64, ops ...entity.OperationType) int {
	return e.deleteWhere(func(t *entity.Timer) bool {
		if t.ItemID != itemID {
			return false
		}
		for _, op := range ops {
			if t.OperationType == op {
				return true
			}
		}
		return false
	})
}

func (e *Engine) deleteWhere(match func(*entity.Timer) bool) int {
	e.mu.Lock()
	var removed []entity.Timer
	for id, t := range e.timers {
		if match(t) {
			removed = append(removed, *t)
			delete(e.timers, id)
		}
	}
	if len(removed) > 0 {
		e.persistLocked()
	}
	for _, t := range removed {
		e.enqueueLocked(Event{Action: dto.TimerActionDeleted, Timer: t})
	}
	e.mu.Unlock()

	e.flush()
	return len(removed)
}

// RecordETA guarda la llegada estimada del ítem para restaurar su temporizador de envío.
func (e *Engine) RecordETA(itemID int64, label string, endsAt time.Time) error {
	return saveETA(e.store, e.etaKey(itemID), entity.ArrivalEstimate{ItemID: itemID, Label: label, EndsAt: endsAt})
}

// ETA implementa ETASource sobre el almacén del motor.
func (e *Engine) ETA(itemID int64) (entity.ArrivalEstimate, bool, error) {
	return loadETA(e.store, e.etaKey(itemID))
}

// ForgetETA elimina la llegada estimada del ítem.
func (e *Engine) ForgetETA(itemID int64) error {
	err := e.store.Delete(e.etaKey(itemID))
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

// RestoreIfMissing recrea el temporizador de envío del ítem a partir de su
// llegada estimada cuando no existe uno activo. Nunca resucita un plazo vencido.
// restored=false con error nil significa que no había nada que restaurar.
func (e *Engine) RestoreIfMissing(ctx context.Context, itemID int64, label string, src ETASource) (t entity.Timer, restored bool, err error) {
	if existing, ok := e.ActiveForItem(itemID, entity.OperationShipping); ok {
		return existing, false, nil
	}
	if err := ctx.Err(); err != nil {
		return entity.Timer{}, false, err
	}
	if src == nil {
		src = e
	}
	eta, ok, err := src.ETA(itemID)
	if err != nil {
		return entity.Timer{}, false, fmt.Errorf("leer llegada estimada: %w", err)
	}
	if !ok {
		e.log.Warn().Int64("item_id", itemID).Msg("sin llegada estimada; el ítem queda sin temporizador")
		return entity.Timer{}, false, nil
	}
	now := e.now()
	if !eta.EndsAt.After(now) {
		e.log.Info().Int64("item_id", itemID).Time("ends_at", eta.EndsAt).Msg("llegada estimada vencida; no se restaura")
		return entity.Timer{}, false, nil
	}
	if label == "" {
		label = eta.Label
	}
	if label == "" {
		label = entity.ItemLabel(entity.OperationShipping, itemID, "")
	}
	t, created, err := e.create(label, entity.OperationShipping, eta.EndsAt, now)
	if err != nil {
		return entity.Timer{}, false, err
	}
	return t, created, nil
}

// Tick recalcula el registro en now y marca como completados, una sola vez,
// los que llegaron a cero. Solo persiste cuando algún temporizador se completa.
func (e *Engine) Tick(now time.Time) []entity.Timer {
	var done []entity.Timer
	e.mu.Lock()
	for _, t := range e.timers {
		if t.Completed || !t.Active {
			continue
		}
		if t.Remaining(now) == 0 {
			t.Completed = true
			t.Active = false
			done = append(done, *t)
		}
	}
	if len(done) > 0 {
		e.persistLocked()
	}
	for _, t := range done {
		e.enqueueLocked(Event{Action: dto.TimerActionCompleted, Timer: t})
	}
	e.mu.Unlock()

	for _, t := range done {
		e.log.Info().Str("timer_id", t.ID).Str("label", t.Label).Str("op", string(t.OperationType)).Msg("temporizador completado")
	}
	e.flush()
	return done
}

// Run ejecuta el ciclo de tick hasta que ctx termine. Un único ticker atiende a
// todos los temporizadores.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick(e.now())
		}
	}
}

// ApplyRemote inserta o reemplaza un temporizador recibido del servidor; sus
// valores siempre prevalecen sobre los locales. No se re-difunde.
func (e *Engine) ApplyRemote(t entity.Timer) {
	e.mu.Lock()
	for id, local := range e.timers {
		// Un duplicado creado localmente para la misma etiqueta cede ante el servidor.
		if id != t.ID && local.Label == t.Label && !local.Completed {
			delete(e.timers, id)
		}
	}
	cp := t
	e.timers[t.ID] = &cp
	e.persistLocked()
	e.mu.Unlock()
}

// RemoveRemote elimina un temporizador borrado en el servidor.
func (e *Engine) RemoveRemote(id string) {
	e.mu.Lock()
	if _, ok := e.timers[id]; ok {
		delete(e.timers, id)
		e.persistLocked()
	}
	e.mu.Unlock()
}

// RemoveRemoteWhere elimina, sin difundir, los temporizadores que cumplan match.
func (e *Engine) RemoveRemoteWhere(match func(entity.Timer) bool) int {
	e.mu.Lock()
	n := 0
	for id, t := range e.timers {
		if match(*t) {
			delete(e.timers, id)
			n++
		}
	}
	if n > 0 {
		e.persistLocked()
	}
	e.mu.Unlock()
	return n
}

// ReplaceAll sustituye el registro completo (resincronización tras reconexión).
func (e *Engine) ReplaceAll(timers []entity.Timer) {
	e.mu.Lock()
	e.timers = make(map[string]*entity.Timer, len(timers))
	for i := range timers {
		t := timers[i]
		e.timers[t.ID] = &t
	}
	e.persistLocked()
	e.mu.Unlock()
}

// enqueueLocked registra el evento con mu tomado, de modo que el orden de la
// cola es el orden en que se aplicaron las mutaciones.
func (e *Engine) enqueueLocked(evt Event) {
	e.qMu.Lock()
	e.queue = append(e.queue, evt)
	e.qMu.Unlock()
}

// flush entrega la cola al Publisher. Si otro goroutine ya la está vaciando,
// vuelve de inmediato: ese goroutine entregará también los eventos recién
// encolados. Un Publisher que muta el motor desde Publish no se bloquea.
func (e *Engine) flush() {
	e.qMu.Lock()
	if e.draining {
		e.qMu.Unlock()
		return
	}
	e.draining = true
	for len(e.queue) > 0 {
		evt := e.queue[0]
		e.queue[0] = Event{}
		e.queue = e.queue[1:]
		e.qMu.Unlock()

		e.pubMu.RLock()
		p := e.pub
		e.pubMu.RUnlock()
		if p != nil {
			p.Publish(evt)
		}

		e.qMu.Lock()
	}
	e.draining = false
	e.qMu.Unlock()
}

func (e *Engine) persistLocked() {
	list := make([]entity.Timer, 0, len(e.timers))
	for _, t := range e.timers {
		list = append(list, *t)
	}
	if err := saveTimers(e.store, e.timersKey(), list); err != nil {
		// El registro en memoria sigue siendo válido; solo se pierde la restauración.
		e.log.Error().Err(err).Msg("persistir temporizadores")
	}
}

func (e *Engine) timersKey() string { return e.ns + "/timers" }

func (e *Engine) etaKey(itemID int64) string { return fmt.Sprintf("%s/eta/%d", e.ns, itemID) }
