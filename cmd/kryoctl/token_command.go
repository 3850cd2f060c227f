package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JoseeGarciaa/kryotecsense-sub001/pkg/jwt"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var (
		userID    string
		companyID string
		role      string
		ttl       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Firmar un token de acceso con JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if userID == "" || companyID == "" {
				return fmt.Errorf("--user y --company son obligatorios")
			}
			if ttl <= 0 {
				ttl = time.Duration(cfg.JWT.Expiration) * time.Minute
			}
			token, err := jwt.Generate(cfg.JWT.Secret, userID, companyID, role, cfg.JWT.Issuer, ttl)
			if err != nil {
				return err
			}
			if ctx.flags.json {
				return writeJSON(cmd, map[string]string{"token": token})
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Usuario")
	cmd.Flags().StringVar(&companyID, "company", "", "Empresa")
	cmd.Flags().StringVar(&role, "role", "operador", "Rol (admin, supervisor, operador)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Vigencia (por defecto JWT_EXPIRATION_MINUTES)")
	return cmd
}
