package http

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/bulk"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/lifecycle"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/timer"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/repository"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/infrastructure/ws"
)

// Tenant motor de temporizadores, canal de push y cola de comandos de una empresa.
type Tenant struct {
	CompanyID  string
	Timers     *timer.Engine
	Hub        *ws.Hub
	Lifecycle  *lifecycle.UseCase
	Dispatcher *lifecycle.Dispatcher

	push fiber.Handler
}

// TenantFactory construye el Tenant de una empresa. Las goroutines que arranque
// deben terminar cuando ctx se cancele.
type TenantFactory func(ctx context.Context, companyID string) (*Tenant, error)

// TenantDeps dependencias compartidas entre empresas.
type TenantDeps struct {
	Store     repository.KVStore
	Items     lifecycle.ItemReader
	Executor  *bulk.Executor
	Timers    timer.Config
	Lifecycle lifecycle.Config
	// QueueSize capacidad de la cola del despachador.
	QueueSize int
	Log       zerolog.Logger
}

// NewTenantFactory arma cada empresa sobre el almacén compartido, con el
// registro de temporizadores aislado por el company_id como namespace.
func NewTenantFactory(deps TenantDeps) TenantFactory {
	return func(ctx context.Context, companyID string) (*Tenant, error) {
		log := deps.Log.With().Str("company_id", companyID).Logger()

		tcfg := deps.Timers
		tcfg.Namespace = companyID
		engine := timer.NewEngine(deps.Store, tcfg, log)
		if err := engine.Load(ctx); err != nil {
			return nil, err
		}
		hub := ws.NewHub(ws.DefaultClientBuffer, engine.Now, log)
		engine.SetPublisher(hub)

		uc := lifecycle.NewUseCase(deps.Items, deps.Executor, engine, hub, deps.Lifecycle, log)
		dispatcher := lifecycle.NewDispatcher(uc, deps.QueueSize, log)

		go engine.Run(ctx)
		dispatcher.Start(ctx)

		return &Tenant{
			CompanyID:  companyID,
			Timers:     engine,
			Hub:        hub,
			Lifecycle:  uc,
			Dispatcher: dispatcher,
			push:       hub.Handler(),
		}, nil
	}
}

// Tenants registro perezoso de empresas. Cada empresa se construye la primera
// vez que un token suyo llega a la API.
type Tenants struct {
	ctx     context.Context
	factory TenantFactory
	log     zerolog.Logger

	mu   sync.Mutex
	byID map[string]*Tenant
}

// NewTenants crea el registro. ctx acota la vida de todas las empresas.
func NewTenants(ctx context.Context, factory TenantFactory, log zerolog.Logger) *Tenants {
	return &Tenants{
		ctx:     ctx,
		factory: factory,
		log:     log.With().Str("component", "tenants").Logger(),
		byID:    make(map[string]*Tenant),
	}
}

// Get devuelve la empresa, creándola si aún no existe.
func (t *Tenants) Get(companyID string) (*Tenant, error) {
	companyID = strings.TrimSpace(companyID)
	if companyID == "" || strings.ContainsAny(companyID, "/\\") {
		return nil, fmt.Errorf("company_id %q inválido", companyID)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if tn, ok := t.byID[companyID]; ok {
		return tn, nil
	}
	tn, err := t.factory(t.ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("inicializar empresa %s: %w", companyID, err)
	}
	t.byID[companyID] = tn
	t.log.Info().Str("company_id", companyID).Msg("empresa inicializada")
	return tn, nil
}

// Len número de empresas activas.
func (t *Tenants) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID)
}
