package cli

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/facturaIA/invoice-stock-service/internal/logger"
	"github.com/facturaIA/invoice-stock-service/internal/stock"
)

var stockCmd = &cobra.Command{
	Use:   "stock",
	Short: "Inspect and maintain the stock ledger",
}

var stockMovementsCmd = &cobra.Command{
	Use:   "movements",
	Short: "List stock movements, newest first",
	Args:  cobra.NoArgs,
	RunE:  runStockMovements,
}

var stockRepairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Recompute stock from the movement history",
	Long: `Replay the movements of one product (--product) or of every product and
overwrite the stored stock where it drifted.`,
	Args: cobra.NoArgs,
	RunE: runStockRepair,
}

var stockAdjustCmd = &cobra.Command{
	Use:   "adjust",
	Short: "Set a product's stock through an adjustment movement",
	Example: `  # Record a stock count
  invoice-stock stock adjust --product 12 --to 40 --note "yil sonu sayim"`,
	Args: cobra.NoArgs,
	RunE: runStockAdjust,
}

var stockExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stock movements to an XLSX workbook",
	Args:  cobra.NoArgs,
	RunE:  runStockExport,
}

func init() {
	rootCmd.AddCommand(stockCmd)
	stockCmd.AddCommand(stockMovementsCmd, stockRepairCmd, stockAdjustCmd, stockExportCmd)

	stockMovementsCmd.Flags().Uint("product", 0, "Only movements of this product ID")
	stockRepairCmd.Flags().Uint("product", 0, "Repair only this product ID")

	stockAdjustCmd.Flags().Uint("product", 0, "Product ID")
	stockAdjustCmd.Flags().String("to", "", "New stock quantity")
	stockAdjustCmd.Flags().String("note", "", "Reason for the adjustment")
	stockAdjustCmd.MarkFlagRequired("product")
	stockAdjustCmd.MarkFlagRequired("to")

	stockExportCmd.Flags().Uint("product", 0, "Only movements of this product ID")
	stockExportCmd.Flags().StringP("out", "o", "stok-hareketleri.xlsx", "Output file path")
}

// productFlag returns the --product flag, nil when unset
func productFlag(cmd *cobra.Command) *uint {
	id, _ := cmd.Flags().GetUint("product")
	if id == 0 {
		return nil
	}
	return &id
}

func runStockMovements(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("stock")
	ctx, cancel := signalContext(log)
	defer cancel()

	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	movements, err := a.ledger.ListMovements(ctx, productFlag(cmd))
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), movements)
}

func runStockRepair(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("stock")
	ctx, cancel := signalContext(log)
	defer cancel()

	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	var results []stock.RepairResult
	if id := productFlag(cmd); id != nil {
		res, err := a.ledger.Repair(ctx, *id)
		if err != nil {
			return err
		}
		results = append(results, *res)
	} else {
		results, err = a.ledger.RepairAll(ctx)
		if err != nil {
			return err
		}
	}

	changed := 0
	for _, res := range results {
		if res.Changed {
			changed++
			fmt.Fprintf(cmd.OutOrStdout(), "%-6d %-40s %s -> %s\n", res.ProductID, res.Name, res.Stored, res.Replayed)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d product(s) checked, %d repaired\n", len(results), changed)
	return nil
}

func runStockAdjust(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("stock")
	productID, _ := cmd.Flags().GetUint("product")
	to, _ := cmd.Flags().GetString("to")
	note, _ := cmd.Flags().GetString("note")

	newStock, err := decimal.NewFromString(to)
	if err != nil {
		return fmt.Errorf("invalid quantity %q: %w", to, err)
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	mv, err := a.ledger.Adjust(ctx, productID, newStock, note)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), mv)
}

func runStockExport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("stock")
	out, _ := cmd.Flags().GetString("out")

	ctx, cancel := signalContext(log)
	defer cancel()

	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	movements, err := a.ledger.ListMovements(ctx, productFlag(cmd))
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", out, err)
	}
	if err := stock.ExportXLSX(f, movements); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	log.Info().Str("file", out).Int("movements", len(movements)).Msg("movements exported")
	return nil
}
