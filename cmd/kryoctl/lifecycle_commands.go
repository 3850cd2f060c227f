package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/dto"
)

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("id inválido: %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// finishTransition imprime la respuesta y devuelve error si algún ítem falló.
func finishTransition(cmd *cobra.Command, ctx *commandContext, resp dto.TransitionResponse) error {
	if ctx.flags.json {
		if err := writeJSON(cmd, resp); err != nil {
			return err
		}
	} else {
		renderTransition(cmd.OutOrStdout(), resp)
	}
	return resp.Err()
}

func newMoveCommand(ctx *commandContext) *cobra.Command {
	var (
		state    string
		subState string
		lot      string
		desc     string
		minutes  int
		rfids    []string
	)

	cmd := &cobra.Command{
		Use:   "move [id...]",
		Short: "Mover ítems a otra etapa",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if len(ids) == 0 && len(rfids) == 0 {
				return fmt.Errorf("indique ids o --rfid")
			}
			if state == "" {
				return fmt.Errorf("--state es obligatorio")
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}

			req := dto.TransitionRequest{
				ItemIDs:      ids,
				RFIDs:        rfids,
				State:        state,
				SubState:     subState,
				Description:  desc,
				TimerMinutes: minutes,
			}
			if cmd.Flags().Changed("lot") {
				req.Lot = &lot
			}
			resp, err := client.Transition(cmd.Context(), req)
			if err != nil {
				return err
			}
			return finishTransition(cmd, ctx, resp)
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "Estado destino (Pre-acondicionamiento, Acondicionamiento, Operación, Devolución, Inspección, En bodega)")
	cmd.Flags().StringVar(&subState, "sub-state", "", "Sub-estado destino (por defecto el de la etapa)")
	cmd.Flags().StringVar(&lot, "lot", "", "Lote a asignar")
	cmd.Flags().StringVar(&desc, "desc", "", "Descripción de la actividad")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "Minutos del temporizador de la etapa")
	cmd.Flags().StringSliceVar(&rfids, "rfid", nil, "RFIDs escaneados")
	return cmd
}

func newReturnCommand(ctx *commandContext) *cobra.Command {
	var minutes int

	cmd := &cobra.Command{
		Use:   "return id...",
		Short: "Regresar ítems de Devolución a Operación",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := client.ReturnToOperation(cmd.Context(), dto.ItemsActionRequest{ItemIDs: ids, TimerMinutes: minutes})
			if err != nil {
				return err
			}
			return finishTransition(cmd, ctx, resp)
		},
	}

	cmd.Flags().IntVar(&minutes, "minutes", 0, "Minutos del envío si no hay llegada estimada guardada")
	return cmd
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var minutes int

	cmd := &cobra.Command{
		Use:   "inspect id...",
		Short: "Enviar ítems de Devolución a Inspección",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := client.SendToInspection(cmd.Context(), dto.ItemsActionRequest{ItemIDs: ids, TimerMinutes: minutes})
			if err != nil {
				return err
			}
			return finishTransition(cmd, ctx, resp)
		},
	}

	cmd.Flags().IntVar(&minutes, "minutes", 0, "Minutos del temporizador de inspección")
	return cmd
}
