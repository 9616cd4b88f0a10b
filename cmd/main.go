package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GPS-Demos/suny-ther-assist/internal/auth"
	"github.com/GPS-Demos/suny-ther-assist/internal/config"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ther-assist",
	Short: "Real-time therapy session transcription and analysis service",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults to $CONFIG_FILE)")
	rootCmd.AddCommand(
		serveCmd(),
		tokenCmd(),
		versionCmd(),
	)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func tokenCmd() *cobra.Command {
	var userID, role string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the transcription socket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if !cfg.Auth.Enabled() {
				return fmt.Errorf("JWT_SECRET is not configured, authentication is disabled")
			}

			verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
			if err != nil {
				return err
			}
			token, err := verifier.GenerateToken(userID, role)
			if err != nil {
				return fmt.Errorf("failed to generate token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "local-client", "user id carried in the token")
	cmd.Flags().StringVar(&role, "role", "clinician", "role carried in the token")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
