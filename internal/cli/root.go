// Package cli is the command line of the invoice stock service: the HTTP
// server plus offline parsing, ledger maintenance and admin commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/facturaIA/invoice-stock-service/api"
	"github.com/facturaIA/invoice-stock-service/internal/config"
	"github.com/facturaIA/invoice-stock-service/internal/logger"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "invoice-stock",
	Short: "Invoice interpretation and stock ledger service",
	Long: `invoice-stock reads Turkish supplier and customer invoices (text, PDF or
image), interprets them into structured drafts, and applies approved invoices
to a per-product stock ledger.

Run "serve" for the HTTP API, or use the maintenance commands directly
against the configured database.`,
	Version:       api.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			loaded.Log.Level = level
		}
		if err := logger.Setup(logger.Config(loaded.Log)); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cfg = loaded
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "config.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level")
}

// printJSON writes v as indented JSON
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
