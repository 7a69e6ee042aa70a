package main

import (
	"encoding/json"
	"time"

	"usersvc/internal/services"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// tokenReport is the verify-token output.
type tokenReport struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	TokenID   string    `json:"jti,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp"`
}

// NewVerifyTokenCmd creates the verify-token subcommand.
func NewVerifyTokenCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-token TOKEN",
		Short: "Verify a session token with the configured secret and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd, v)
			if err != nil {
				return err
			}

			claims, err := services.NewTokenService(cfg.JWTSecret, cfg.JWTExpiresIn).Verify(args[0])
			if err != nil {
				return err
			}

			report := tokenReport{
				Subject: claims.Subject,
				Email:   claims.Email,
				Name:    claims.Name,
				TokenID: claims.ID,
			}
			if claims.IssuedAt != nil {
				report.IssuedAt = claims.IssuedAt.Time.UTC()
			}
			if claims.ExpiresAt != nil {
				report.ExpiresAt = claims.ExpiresAt.Time.UTC()
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}
