package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/facturaIA/invoice-stock-service/internal/logger"
)

var approveCmd = &cobra.Command{
	Use:   "approve [invoice-id]",
	Short: "Approve a pending invoice and apply it to stock",
	Args:  cobra.ExactArgs(1),
	RunE:  runApprove,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [invoice-id]",
	Short: "Delete an invoice, reversing its stock movements if it was approved",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(deleteCmd)
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}

func runApprove(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("approve")
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.invoices.Approve(ctx, id, nil)
	if err != nil {
		return err
	}
	for _, skipped := range result.Stock.Skipped {
		log.Warn().Int("item", skipped.Index).Str("name", skipped.Name).Msg(skipped.Reason)
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func runDelete(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("delete")
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	reversed, err := a.invoices.Delete(ctx, id)
	if err != nil {
		return err
	}
	log.Info().Uint("invoice_id", id).Int("reversed", reversed).Msg("invoice deleted")
	fmt.Fprintf(cmd.OutOrStdout(), "invoice %d deleted, %d movement(s) reversed\n", id, reversed)
	return nil
}
