package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	httphandler "github.com/ericfisherdev/wunschliste/internal/adapter/driving/http"
	"github.com/ericfisherdev/wunschliste/internal/application"
	"github.com/ericfisherdev/wunschliste/internal/config"
)

func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Run the storage selection and report which backend would be used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, closeLog, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer closeLog()

			provider, err := selectStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer provider.Close()

			sel := provider.Selection()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "backend:           %s\n", sel.Backend)
			if sel.IsFallback() {
				fmt.Fprintf(out, "fallback reason:   %s\n", sel.FallbackReason)
			}
			source := cfg.CredentialSource
			if source == config.SourceNone {
				source = "none"
			}
			fmt.Fprintf(out, "credential source: %s\n", source)
			return nil
		},
	}
}

func newListCmd(configPath *string) *cobra.Command {
	var owner string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print wishes from the selected backend as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, closeLog, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer closeLog()

			provider, err := selectStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer provider.Close()

			wishes, err := application.NewWishService(provider, provider).List(cmd.Context(), owner)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "    ")
			enc.SetEscapeHTML(false)
			return enc.Encode(httphandler.NewWishResponses(wishes))
		},
	}
	listCmd.Flags().StringVar(&owner, "owner", "", "only list wishes of this user")

	return listCmd
}

func newCredentialsCmd() *cobra.Command {
	credentialsCmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage Firebase credentials stored in the OS keyring",
	}

	credentialsCmd.AddCommand(newCredentialsSetCmd(), newCredentialsDeleteCmd())
	return credentialsCmd
}

func newCredentialsSetCmd() *cobra.Command {
	var file string

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Store a service account key file in the OS keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := readCredentialsFile(file, cmd.InOrStdin())
			if err != nil {
				return err
			}

			creds, err := config.ParseServiceAccountJSON(data)
			if err != nil {
				return err
			}
			if err := config.SaveKeyringCredentials(creds); err != nil {
				return fmt.Errorf("saving credentials: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "credentials for project %q stored in keyring\n", creds.ProjectID)
			return nil
		},
	}
	setCmd.Flags().StringVar(&file, "file", "", `service account JSON file ("-" reads stdin)`)
	_ = setCmd.MarkFlagRequired("file")

	return setCmd
}

func newCredentialsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove stored credentials from the OS keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.DeleteKeyringCredentials(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "credentials removed from keyring")
			return nil
		},
	}
}

func readCredentialsFile(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading credentials from stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}
	return data, nil
}
