package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/facturaIA/invoice-stock-service/internal/logger"
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Manage the product catalog",
}

var productsImportCmd = &cobra.Command{
	Use:   "import [xlsx-file]",
	Short: "Import products from a workbook",
	Long: `Resolve every row of the first sheet into a product. The columns are
name, code, unit and minimum stock, and the first row is a header. Existing
products are matched, not duplicated.`,
	Args: cobra.ExactArgs(1),
	RunE: runProductsImport,
}

var productsMergeCmd = &cobra.Command{
	Use:   "merge-duplicates",
	Short: "Merge products whose names are near-identical",
	Args:  cobra.NoArgs,
	RunE:  runProductsMerge,
}

func init() {
	rootCmd.AddCommand(productsCmd)
	productsCmd.AddCommand(productsImportCmd, productsMergeCmd)

	productsMergeCmd.Flags().Bool("dry-run", false, "Only list the groups that would be merged")
}

func runProductsImport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("products")

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer f.Close()

	ctx, cancel := signalContext(log)
	defer cancel()

	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.resolver.ImportXLSX(ctx, f)
	if err != nil {
		return err
	}
	log.Info().
		Int("rows", result.Rows).
		Int("resolved", result.Resolved).
		Int("skipped", result.Skipped).
		Msg("products imported")
	return printJSON(cmd.OutOrStdout(), result)
}

func runProductsMerge(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("products")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	ctx, cancel := signalContext(log)
	defer cancel()

	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if dryRun {
		groups, err := a.resolver.PreviewDuplicates(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), groups)
	}

	result, err := a.resolver.MergeDuplicates(ctx)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}
