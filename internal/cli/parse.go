package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/facturaIA/invoice-stock-service/internal/logger"
	"github.com/facturaIA/invoice-stock-service/internal/models"
	"github.com/facturaIA/invoice-stock-service/internal/parser"
	"github.com/facturaIA/invoice-stock-service/internal/services"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Interpret an invoice file and print the draft as JSON",
	Long: `Read a text, PDF or image invoice, interpret it and print the resulting
draft with its consistency report. Nothing is stored.

Images and scanned PDFs need the configured OCR engine.`,
	Example: `  # Interpret a text invoice
  invoice-stock parse fatura.txt

  # Force the direction and show the keyword scores
  invoice-stock parse fatura.pdf --type sale --explain`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

// ParseOutput is what parse prints
type ParseOutput struct {
	Invoice    *models.Invoice            `json:"invoice"`
	Validation *services.ValidationResult `json:"validation"`
	Scores     *parser.DirectionScores    `json:"directionScores,omitempty"`
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().String("type", "", "Direction hint: purchase, sale, purchase-return, sale-return or 1-4")
	parseCmd.Flags().Bool("explain", false, "Include the direction keyword scores")
}

func runParse(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("parse")
	hint, _ := cmd.Flags().GetString("type")
	explain, _ := cmd.Flags().GetBool("explain")

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	vocab, err := loadVocabulary()
	if err != nil {
		return err
	}

	ctx := context.Background()
	reader, _ := newReader(ctx, log)
	text, err := reader.ExtractText(ctx, data, filepath.Base(path))
	if err != nil {
		return err
	}

	interpreter := parser.NewInterpreter(vocab)
	inv := interpreter.Interpret(text, filepath.Base(path), hint)
	out := ParseOutput{
		Invoice:    inv,
		Validation: services.NewConsistencyValidator().Validate(inv),
	}
	if explain {
		scores := interpreter.Directions().Scores(text)
		out.Scores = &scores
	}

	log.Debug().
		Str("file", path).
		Str("direction", string(inv.Direction)).
		Int("items", len(inv.Items)).
		Int("confidence", inv.Confidence).
		Msg("invoice interpreted")
	return printJSON(cmd.OutOrStdout(), out)
}
