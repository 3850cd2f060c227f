package bulk

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/dto"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/entity"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/lifecycle"
)

const (
	DefaultBatchSize   = 50
	DefaultParallelism = 5
)

// Config tamaño máximo de lote y número de lotes concurrentes.
type Config struct {
	BatchSize   int
	Parallelism int
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Parallelism <= 0 {
		c.Parallelism = DefaultParallelism
	}
	return c
}

// Executor aplica cambios de estado + actividad a N ítems en lotes con
// paralelismo acotado. El fallo de un ítem nunca bloquea a los demás.
type Executor struct {
	gw  Gateway
	cfg Config
	log zerolog.Logger
}

// NewExecutor construye el ejecutor.
func NewExecutor(gw Gateway, cfg Config, log zerolog.Logger) *Executor {
	return &Executor{
		gw:  gw,
		cfg: cfg.withDefaults(),
		log: log.With().Str("component", "bulk").Logger(),
	}
}

// Execute convierte cada ItemUpdate en un cambio de estado con su actividad y lo
// aplica. successCount < total es un éxito parcial, no un fallo.
func (e *Executor) Execute(ctx context.Context, updates []dto.ItemUpdate) dto.BulkOperationResult {
	var rejected dto.BulkOperationResult
	items := make([]dto.StateChangeItem, 0, len(updates))
	for _, u := range updates {
		item, err := Prepare(u)
		if err != nil {
			rejected.Fail(u.ItemID, err)
			continue
		}
		items = append(items, item)
	}
	res := e.ExecuteStateChanges(ctx, items)
	res.Merge(rejected)
	res.Total = len(updates)
	return res
}

// ExecuteStateChanges aplica cambios ya armados (body de bulk-state-change).
func (e *Executor) ExecuteStateChanges(ctx context.Context, items []dto.StateChangeItem) dto.BulkOperationResult {
	for i := range items {
		Normalize(&items[i].InventoryData)
		if items[i].ActivityData.ItemID == 0 {
			items[i].ActivityData.ItemID = items[i].ID
		}
	}
	return dispatch(ctx, e, items, func(it dto.StateChangeItem) int64 { return it.ID }, e.stateChangeBatch)
}

// ExecuteUpdates aplica solo el cambio de inventario (body de bulk-update).
func (e *Executor) ExecuteUpdates(ctx context.Context, items []dto.BulkUpdateItem) dto.BulkOperationResult {
	for i := range items {
		Normalize(&items[i].InventoryData)
	}
	idOf := func(it dto.BulkUpdateItem) int64 { return it.ID }
	return dispatch(ctx, e, items, idOf,
		func(ctx context.Context, batch []dto.BulkUpdateItem) dto.BulkOperationResult {
			if ub, ok := e.gw.(UpdateBatcher); ok {
				return remote(ctx, e, batch, idOf, ub.BulkUpdate)
			}
			return perItem(ctx, batch, idOf,
				func(ctx context.Context, it dto.BulkUpdateItem) error {
					return e.gw.UpdateState(ctx, it.ID, it.InventoryData)
				})
		})
}

// ExecuteActivities registra solo actividades (body de bulk-activities).
func (e *Executor) ExecuteActivities(ctx context.Context, activities []dto.ActivityData) dto.BulkOperationResult {
	idOf := func(a dto.ActivityData) int64 { return a.ItemID }
	return dispatch(ctx, e, activities, idOf,
		func(ctx context.Context, batch []dto.ActivityData) dto.BulkOperationResult {
			if ab, ok := e.gw.(ActivityBatcher); ok {
				return remote(ctx, e, batch, idOf, ab.BulkActivities)
			}
			return perItem(ctx, batch, idOf, e.gw.CreateActivity)
		})
}

// Prepare resuelve estado/sub-estado y arma el cambio con su actividad.
func Prepare(u dto.ItemUpdate) (dto.StateChangeItem, error) {
	st, ok := entity.ParseState(u.TargetState)
	if !ok {
		return dto.StateChangeItem{}, fmt.Errorf("estado %q: %w", u.TargetState, domain.ErrInvalidInput)
	}
	sub, ok := entity.ParseSubState(u.TargetSubState)
	if !ok {
		return dto.StateChangeItem{}, fmt.Errorf("sub-estado %q: %w", u.TargetSubState, domain.ErrInvalidSubState)
	}
	data := dto.InventoryData{State: string(st), SubState: string(sub), Lot: u.Lot}
	Normalize(&data)
	desc := u.Description
	if desc == "" {
		desc = fmt.Sprintf("Cambio de estado a %s (%s)", data.State, data.SubState)
	}
	return dto.StateChangeItem{
		ID:            u.ItemID,
		InventoryData: data,
		ActivityData: dto.ActivityData{
			ItemID:      u.ItemID,
			UserID:      u.UserID,
			Description: desc,
			NewState:    data.State,
			NewSubState: data.SubState,
		},
	}, nil
}

// Normalize asigna el sub-estado por defecto y limpia el lote al volver a bodega.
func Normalize(d *dto.InventoryData) {
	st, ok := entity.ParseState(d.State)
	if !ok {
		return
	}
	d.State = string(st)
	if d.SubState == "" {
		d.SubState = string(lifecycle.DefaultSubState(st))
	}
	if st == entity.StateWarehouse {
		d.Lot = nil
		d.ClearLot = true
	}
}

func (e *Executor) stateChangeBatch(ctx context.Context, batch []dto.StateChangeItem) dto.BulkOperationResult {
	idOf := func(it dto.StateChangeItem) int64 { return it.ID }
	if bg, ok := e.gw.(BatchGateway); ok {
		return remote(ctx, e, batch, idOf, bg.BulkStateChange)
	}
	if ap, ok := e.gw.(StateChangeApplier); ok {
		return perItem(ctx, batch, idOf, ap.ApplyStateChange)
	}
	return perItem(ctx, batch, idOf,
		func(ctx context.Context, it dto.StateChangeItem) error {
			// PATCH de inventario y POST de actividad son independientes.
			var g errgroup.Group
			g.Go(func() error { return e.gw.UpdateState(ctx, it.ID, it.InventoryData) })
			g.Go(func() error { return e.gw.CreateActivity(ctx, it.ActivityData) })
			return g.Wait()
		})
}

// remote envía el lote en una sola llamada. Si la llamada falla, cada ítem
// del lote queda fallido con el mismo motivo.
func remote[T any](
	ctx context.Context,
	e *Executor,
	batch []T,
	idOf func(T) int64,
	call func(context.Context, []T) (dto.BulkOperationResult, error),
) dto.BulkOperationResult {
	res, err := call(ctx, batch)
	if err != nil {
		e.log.Warn().Err(err).Int("items", len(batch)).Msg("lote rechazado por el backend")
		if !errors.Is(err, domain.ErrNetworkFailure) {
			err = fmt.Errorf("%w: %v", domain.ErrNetworkFailure, err)
		}
		var failed dto.BulkOperationResult
		for _, it := range batch {
			failed.Fail(idOf(it), err)
		}
		failed.Total = len(batch)
		return failed
	}
	res.Total = len(batch)
	if len(res.FailedIDs) == 0 {
		res.FailedIDs = idsFromErrors(res.Errors)
	}
	return res
}

var errItemRe = regexp.MustCompile(`^item (\d+):`)

func idsFromErrors(errs []string) []int64 {
	var ids []int64
	for _, msg := range errs {
		m := errItemRe.FindStringSubmatch(msg)
		if m == nil {
			continue
		}
		if id, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// dispatch parte items en lotes y los lanza con a lo sumo Parallelism en vuelo.
// Un lote ya iniciado no se cancela; si ctx termina, los lotes pendientes no se
// inician y sus ítems se reportan como fallidos.
func dispatch[T any](
	ctx context.Context,
	e *Executor,
	items []T,
	idOf func(T) int64,
	run func(context.Context, []T) dto.BulkOperationResult,
) dto.BulkOperationResult {
	batches := Chunk(items, e.cfg.BatchSize)
	results := make([]dto.BulkOperationResult, len(batches))
	inflight := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(e.cfg.Parallelism)
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			for _, it := range batch {
				results[i].Fail(idOf(it), err)
			}
			results[i].Total = len(batch)
			continue
		}
		i, batch := i, batch
		g.Go(func() error {
			results[i] = run(inflight, batch)
			return nil
		})
	}
	_ = g.Wait()

	out := dto.BulkOperationResult{Errors: []string{}}
	for _, r := range results {
		out.Merge(r)
	}
	out.Total = len(items)
	if out.Success < out.Total {
		e.log.Warn().Int("success", out.Success).Int("total", out.Total).Msg("operación masiva con fallos")
	}
	return out
}

// perItem ejecuta fn para cada ítem del lote en paralelo y atribuye los fallos.
func perItem[T any](ctx context.Context, batch []T, idOf func(T) int64, fn func(context.Context, T) error) dto.BulkOperationResult {
	errs := make([]error, len(batch))
	var g errgroup.Group
	for i, it := range batch {
		i, it := i, it
		g.Go(func() error {
			errs[i] = fn(ctx, it)
			return nil
		})
	}
	_ = g.Wait()

	res := dto.BulkOperationResult{Total: len(batch)}
	for i, err := range errs {
		if err != nil {
			res.Fail(idOf(batch[i]), err)
			continue
		}
		res.Success++
	}
	return res
}

// Chunk parte s en lotes de a lo sumo size elementos.
func Chunk[T any](s []T, size int) [][]T {
	if size <= 0 {
		size = DefaultBatchSize
	}
	out := make([][]T, 0, (len(s)+size-1)/size)
	for start := 0; start < len(s); start += size {
		end := min(start+size, len(s))
		out = append(out, s[start:end])
	}
	return out
}
