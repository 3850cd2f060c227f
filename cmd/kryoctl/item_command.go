package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/entity"
)

func newItemCommand(ctx *commandContext) *cobra.Command {
	var rfid string

	cmd := &cobra.Command{
		Use:   "item [id]",
		Short: "Mostrar un ítem por id o por RFID",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			var it *entity.InventoryItem
			switch {
			case rfid != "":
				it, err = client.GetByRFID(cmd.Context(), rfid)
			case len(args) == 1:
				id, perr := strconv.ParseInt(args[0], 10, 64)
				if perr != nil || id <= 0 {
					return fmt.Errorf("id inválido: %q", args[0])
				}
				it, err = client.GetByID(cmd.Context(), id)
			default:
				return fmt.Errorf("indique un id o --rfid")
			}
			if err != nil {
				return err
			}
			if it == nil {
				return domain.ErrItemNotFound
			}

			if ctx.flags.json {
				return writeJSON(cmd, it)
			}
			renderItem(cmd.OutOrStdout(), it)
			return nil
		},
	}

	cmd.Flags().StringVar(&rfid, "rfid", "", "Buscar por RFID escaneado")
	return cmd
}
