package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/dto"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/timer"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/timersync"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/repository"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/infrastructure/kvstore"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/infrastructure/ws"
	"github.com/JoseeGarciaa/kryotecsense-sub001/pkg/config"
)

func newTimersCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timers",
		Short: "Temporizadores de la empresa del token",
	}
	cmd.AddCommand(newTimersListCommand(ctx))
	cmd.AddCommand(newTimersCreateCommand(ctx))
	cmd.AddCommand(newTimersPauseCommand(ctx))
	cmd.AddCommand(newTimersResumeCommand(ctx))
	cmd.AddCommand(newTimersDeleteCommand(ctx))
	cmd.AddCommand(newTimersWatchCommand(ctx))
	return cmd
}

func newTimersListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Listar temporizadores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			timers, err := client.ListTimers(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.flags.json {
				return writeJSON(cmd, timers)
			}
			renderTimers(cmd.OutOrStdout(), timers)
			return nil
		},
	}
}

func newTimersCreateCommand(ctx *commandContext) *cobra.Command {
	var (
		op      string
		minutes int
	)

	cmd := &cobra.Command{
		Use:   "create label",
		Short: "Crear un temporizador libre",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			t, err := client.CreateTimer(cmd.Context(), dto.CreateTimerRequest{
				Label:           args[0],
				OperationType:   op,
				DurationMinutes: minutes,
			})
			if err != nil {
				return err
			}
			return printTimer(cmd, ctx, t)
		},
	}

	cmd.Flags().StringVar(&op, "op", "congelamiento", "Tipo de operación (congelamiento, atemperamiento, envio, inspeccion)")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "Duración en minutos")
	return cmd
}

func newTimersPauseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pause id",
		Short: "Pausar un temporizador",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			t, err := client.PauseTimer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printTimer(cmd, ctx, t)
		},
	}
}

func newTimersResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume id",
		Short: "Reanudar un temporizador",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			t, err := client.ResumeTimer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printTimer(cmd, ctx, t)
		},
	}
}

func newTimersDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete id",
		Short: "Eliminar un temporizador (admin o supervisor)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.DeleteTimer(cmd.Context(), args[0]); err != nil {
				return err
			}
			if !ctx.flags.json {
				fmt.Fprintf(cmd.OutOrStdout(), "Temporizador %s eliminado\n", args[0])
			}
			return nil
		},
	}
}

func printTimer(cmd *cobra.Command, ctx *commandContext, t dto.TimerDTO) error {
	if ctx.flags.json {
		return writeJSON(cmd, t)
	}
	renderTimers(cmd.OutOrStdout(), []dto.TimerDTO{t})
	return nil
}

// newTimersWatchCommand mantiene una réplica local del registro alimentada por
// /ws/timers y la redibuja cada --every. La réplica avanza con su propio tick,
// de modo que la cuenta regresiva sigue aunque el canal se caiga.
func newTimersWatchCommand(ctx *commandContext) *cobra.Command {
	var (
		every time.Duration
		once  bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Seguir los temporizadores en vivo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			log := ctx.logger()

			engine := timer.NewEngine(watchStore(cfg.Store), timer.Config{
				Namespace:    cfg.Store.Namespace,
				TickInterval: cfg.Timers.Tick,
			}, log)
			if err := engine.Load(cmd.Context()); err != nil {
				return err
			}
			rec := timersync.NewReconciler(engine, client, log)

			if once {
				if err := rec.Resync(cmd.Context()); err != nil {
					return err
				}
				return draw(cmd, ctx, engine)
			}

			connected := make(chan struct{}, 1)
			wsClient := ws.NewClient(client.WebSocketURL(), rec, ws.ClientConfig{
				Token: client.Token(),
				OnConnect: func() {
					select {
					case connected <- struct{}{}:
					default:
					}
				},
			}, log)

			g, gctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				engine.Run(gctx)
				return nil
			})
			g.Go(func() error {
				return wsClient.Run(gctx)
			})
			g.Go(func() error {
				ticker := time.NewTicker(every)
				defer ticker.Stop()
				for {
					select {
					case <-gctx.Done():
						return nil
					case <-connected:
					case <-ticker.C:
					}
					if err := draw(cmd, ctx, engine); err != nil {
						return err
					}
				}
			})

			err = g.Wait()
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().DurationVar(&every, "every", 5*time.Second, "Intervalo de refresco")
	cmd.Flags().BoolVar(&once, "once", false, "Sincronizar, imprimir y salir")
	return cmd
}

// watchStore la réplica solo persiste en disco si STORE_DRIVER lo pide.
func watchStore(cfg config.StoreConfig) repository.KVStore {
	if strings.EqualFold(cfg.Driver, config.StoreDiskv) {
		return kvstore.NewDiskvStore(cfg.Path)
	}
	return kvstore.NewMemoryStore()
}

func draw(cmd *cobra.Command, ctx *commandContext, engine *timer.Engine) error {
	timers := localTimers(engine.List(), engine.Now())
	if ctx.flags.json {
		return writeJSON(cmd, timers)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", engine.Now().Format("15:04:05"))
	renderTimers(cmd.OutOrStdout(), timers)
	return nil
}
