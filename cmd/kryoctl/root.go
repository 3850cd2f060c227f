package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var flags globalFlags

	ctx := newCommandContext(&flags)

	rootCmd := &cobra.Command{
		Use:           "kryoctl",
		Short:         "Operación del flujo de credocubes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.url, "url", "", "URL base de la API (por defecto BACKEND_URL)")
	rootCmd.PersistentFlags().StringVar(&flags.token, "token", "", "Bearer token (por defecto BACKEND_TOKEN)")
	rootCmd.PersistentFlags().BoolVar(&flags.json, "json", false, "Salida en JSON")

	rootCmd.AddCommand(newItemCommand(ctx))
	rootCmd.AddCommand(newMoveCommand(ctx))
	rootCmd.AddCommand(newReturnCommand(ctx))
	rootCmd.AddCommand(newInspectCommand(ctx))
	rootCmd.AddCommand(newTimersCommand(ctx))
	rootCmd.AddCommand(newTokenCommand(ctx))

	return rootCmd
}
