package lifecycle

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/dto"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain"
)

// Command acción del ciclo de vida encolada en el Dispatcher.
type Command interface {
	Name() string
	apply(ctx context.Context, uc *UseCase) (dto.TransitionResponse, error)
}

// MoveCommand cambio de etapa genérico.
type MoveCommand struct {
	UserID  string
	Request dto.TransitionRequest
}

func (MoveCommand) Name() string { return "move" }

func (c MoveCommand) apply(ctx context.Context, uc *UseCase) (dto.TransitionResponse, error) {
	return uc.Transition(ctx, c.UserID, c.Request)
}

// ReturnToOperationCommand regreso de Devolución a Operación.
type ReturnToOperationCommand struct {
	UserID  string
	Request dto.ItemsActionRequest
}

func (ReturnToOperationCommand) Name() string { return "return_to_operation" }

func (c ReturnToOperationCommand) apply(ctx context.Context, uc *UseCase) (dto.TransitionResponse, error) {
	return uc.ReturnToOperation(ctx, c.UserID, c.Request)
}

// SendToInspectionCommand paso de Devolución a Inspección.
type SendToInspectionCommand struct {
	UserID  string
	Request dto.ItemsActionRequest
}

func (SendToInspectionCommand) Name() string { return "send_to_inspection" }

func (c SendToInspectionCommand) apply(ctx context.Context, uc *UseCase) (dto.TransitionResponse, error) {
	return uc.SendToInspection(ctx, c.UserID, c.Request)
}

type result struct {
	resp dto.TransitionResponse
	err  error
}

type envelope struct {
	ctx   context.Context
	cmd   Command
	reply chan result
}

// Dispatcher cola tipada de comandos consumida por un único worker; las
// acciones sobre el ciclo de vida se aplican una a la vez en orden de llegada.
type Dispatcher struct {
	uc      *UseCase
	queue   chan envelope
	running atomic.Bool
	log     zerolog.Logger
}

// NewDispatcher crea el dispatcher con una cola de capacidad buffer.
func NewDispatcher(uc *UseCase, buffer int, log zerolog.Logger) *Dispatcher {
	if buffer < 0 {
		buffer = 0
	}
	return &Dispatcher{
		uc:    uc,
		queue: make(chan envelope, buffer),
		log:   log.With().Str("component", "dispatcher").Logger(),
	}
}

// Run consume la cola hasta que ctx termine.
func (d *Dispatcher) Run(ctx context.Context) {
	d.running.Store(true)
	defer d.running.Store(false)
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-d.queue:
			d.handle(env)
		}
	}
}

// Start marca el dispatcher como activo antes de lanzar Run en una goroutine,
// de modo que un Submit inmediato no vea la cola inactiva.
func (d *Dispatcher) Start(ctx context.Context) {
	d.running.Store(true)
	go d.Run(ctx)
}

func (d *Dispatcher) handle(env envelope) {
	if err := env.ctx.Err(); err != nil {
		env.reply <- result{err: err}
		return
	}
	resp, err := env.cmd.apply(env.ctx, d.uc)
	if err != nil {
		d.log.Warn().Err(err).Str("command", env.cmd.Name()).Msg("comando rechazado")
	} else {
		d.log.Debug().Str("command", env.cmd.Name()).Int("success", resp.Success).Int("total", resp.Total).Msg("comando aplicado")
	}
	env.reply <- result{resp: resp, err: err}
}

// Submit encola cmd y espera su resultado.
func (d *Dispatcher) Submit(ctx context.Context, cmd Command) (dto.TransitionResponse, error) {
	if !d.running.Load() {
		return dto.TransitionResponse{}, domain.ErrDispatcherNotRunning
	}
	env := envelope{ctx: ctx, cmd: cmd, reply: make(chan result, 1)}
	select {
	case d.queue <- env:
	case <-ctx.Done():
		return dto.TransitionResponse{}, fmt.Errorf("encolar %s: %w", cmd.Name(), ctx.Err())
	}
	select {
	case r := <-env.reply:
		return r.resp, r.err
	case <-ctx.Done():
		return dto.TransitionResponse{}, fmt.Errorf("esperar %s: %w", cmd.Name(), ctx.Err())
	}
}
