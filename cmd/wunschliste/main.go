package main

import (
	"log/slog"
	"os"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/wunschliste/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "wunschliste",
		Short:         "Shared wishlist backed by Firestore with a local JSON file fallback",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to the settings/secrets file")

	rootCmd.AddCommand(
		newServeCmd(&configPath),
		newStatusCmd(&configPath),
		newListCmd(&configPath),
		newCredentialsCmd(),
	)

	return rootCmd
}
