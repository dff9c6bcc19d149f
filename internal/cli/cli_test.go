package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/facturaIA/invoice-stock-service/internal/models"
)

// run executes the root command with args against a scratch sqlite database
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	err := rootCmd.Execute()
	return out.String(), err
}

func scratchEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "stock.db"))
	t.Setenv("DATABASE_URL", "")
	t.Setenv("OCR_ENGINE", "tesseract")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_OUTPUT", "stderr")
}

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		axis, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, axis, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "urunler.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	return path
}

func TestParseCommand(t *testing.T) {
	scratchEnv(t)
	path := filepath.Join(t.TempDir(), "fatura.txt")
	text := "SATIŞ FATURASI\nFatura No: S-77\n1 BRIO TANK 2 adet 100,00 200,00\nGenel Toplam: 200,00 TL"
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	out, err := run(t, "parse", path, "--explain")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var got ParseOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got.Invoice.Direction != models.DirectionSale || got.Invoice.InvoiceNumber != "S-77" {
		t.Errorf("invoice = %+v", got.Invoice)
	}
	if got.Scores == nil || got.Scores.Sale == 0 {
		t.Errorf("scores = %+v", got.Scores)
	}
	if got.Validation == nil {
		t.Error("missing validation")
	}

	if _, err := run(t, "parse", filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestMaintenanceCommands(t *testing.T) {
	scratchEnv(t)

	if _, err := run(t, "migrate"); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	book := writeWorkbook(t, [][]interface{}{
		{"Ürün", "Kod", "Birim", "Min. Stok"},
		{"Galvaniz Boru", "GB-1", "mt", "25"},
	})
	out, err := run(t, "products", "import", book)
	if err != nil {
		t.Fatalf("products import: %v", err)
	}
	if !strings.Contains(out, `"resolved": 1`) {
		t.Errorf("import output = %s", out)
	}

	if _, err := run(t, "stock", "adjust", "--product", "1", "--to", "40", "--note", "sayim"); err != nil {
		t.Fatalf("stock adjust: %v", err)
	}

	out, err = run(t, "stock", "movements", "--product", "1")
	if err != nil {
		t.Fatalf("stock movements: %v", err)
	}
	var movements []models.StockMovement
	if err := json.Unmarshal([]byte(out), &movements); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(movements) != 1 || movements[0].Kind != models.MovementAdjustment {
		t.Errorf("movements = %+v", movements)
	}

	out, err = run(t, "stock", "repair")
	if err != nil {
		t.Fatalf("stock repair: %v", err)
	}
	if !strings.Contains(out, "1 product(s) checked, 0 repaired") {
		t.Errorf("repair output = %q", out)
	}

	xlsx := filepath.Join(t.TempDir(), "hareketler.xlsx")
	if _, err := run(t, "stock", "export", "--out", xlsx); err != nil {
		t.Fatalf("stock export: %v", err)
	}
	if info, err := os.Stat(xlsx); err != nil || info.Size() == 0 {
		t.Errorf("export file: %v", err)
	}

	out, err = run(t, "user", "create", "--email", "depo@brio.com.tr", "--password", "correct-horse")
	if err != nil {
		t.Fatalf("user create: %v", err)
	}
	if !strings.Contains(out, "operator") {
		t.Errorf("user create output = %q", out)
	}

	if _, err := run(t, "approve", "0"); err == nil {
		t.Error("approve accepted id 0")
	}
}
