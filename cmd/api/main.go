package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/bulk"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/lifecycle"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/timer"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/repository"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/infrastructure/backend"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/infrastructure/kvstore"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/infrastructure/postgres"
	httpRouter "github.com/JoseeGarciaa/kryotecsense-sub001/internal/interfaces/http"
	"github.com/JoseeGarciaa/kryotecsense-sub001/pkg/config"
	"github.com/JoseeGarciaa/kryotecsense-sub001/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	if cfg.JWT.Secret == "" {
		panic("JWT_SECRET es obligatorio")
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("backend", cfg.Backend.Mode).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	// ctx acota la vida de los motores de temporizadores y las colas de comandos.
	ctx, cancelTenants := context.WithCancel(context.Background())
	defer cancelTenants()

	var inventoryStore httpRouter.InventoryStore
	switch cfg.Backend.Mode {
	case config.BackendREST:
		inventoryStore = backend.NewClient(cfg.Backend.URL, cfg.Backend.Token, cfg.Backend.Timeout)
		log.Info().Str("url", cfg.Backend.URL).Msg("almacén de inventario remoto")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB, int32(max(25, cfg.Bulk.Parallelism*5)))
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if cfg.DB.AutoMigrate {
			if err := postgres.EnsureSchema(ctx, pool); err != nil {
				log.Fatal().Err(err).Msg("crear esquema")
			}
		}
		txRunner := postgres.NewTxRunner(pool)
		inventoryStore = postgres.NewGateway(
			postgres.NewInventoryItemRepository(pool),
			postgres.NewActivityRepository(pool),
			txRunner.Run,
		)
	}

	var kv repository.KVStore
	switch cfg.Store.Driver {
	case config.StoreMemory:
		kv = kvstore.NewMemoryStore()
		log.Warn().Msg("temporizadores en memoria: se pierden al reiniciar")
	default:
		kv = kvstore.NewDiskvStore(cfg.Store.Path)
	}

	executor := bulk.NewExecutor(inventoryStore, bulk.Config{
		BatchSize:   cfg.Bulk.BatchSize,
		Parallelism: cfg.Bulk.Parallelism,
	}, log.Zerolog())

	tenants := httpRouter.NewTenants(ctx, httpRouter.NewTenantFactory(httpRouter.TenantDeps{
		Store:     kv,
		Items:     inventoryStore,
		Executor:  executor,
		Timers:    timer.Config{TickInterval: cfg.Timers.Tick},
		Lifecycle: lifecycle.Config{ShippingMinutes: cfg.Timers.ShippingMinutes},
		QueueSize: 64,
		Log:       log.Zerolog(),
	}), log.Zerolog())

	// Sin Read/WriteTimeout: las conexiones de /ws/timers permanecen abiertas.
	app := fiber.New(fiber.Config{
		AppName:     cfg.App.Name,
		IdleTimeout: time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		Store:     inventoryStore,
		Bulk:      executor,
		Tenants:   tenants,
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	cancelTenants()

	log.Info().Int("empresas", tenants.Len()).Msg("aplicación detenida")
}
