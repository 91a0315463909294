package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/binarypay/internal/auth"
)

// NewTokenCommand creates the token command, which signs an operator JWT.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var operator string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operator token for the mutating RPCs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rootOpts.Config
			if cfg.Auth.JWTSecret == "" {
				return NewExitError(ExitCommandError, "JWT secret is not configured (set JWT_SECRET or auth.jwt_secret)")
			}
			token, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).Generate(operator)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to sign token", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&operator, "operator", "", "operator name embedded in the token (required)")
	_ = cmd.MarkFlagRequired("operator")

	return cmd
}
