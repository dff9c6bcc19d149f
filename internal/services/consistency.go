package services

import (
	"fmt"
	"time"

	"github.com/facturaIA/invoice-stock-service/internal/models"
	"github.com/shopspring/decimal"
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field    string           `json:"field"`
	Code     string           `json:"code"`
	Expected *decimal.Decimal `json:"expected,omitempty"`
	Actual   *decimal.Decimal `json:"actual,omitempty"`
	Message  string           `json:"message,omitempty"`
}

// ValidationWarning represents a non-critical issue
type ValidationWarning struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ComputedValues holds calculated/expected values
type ComputedValues struct {
	ItemsTotal     decimal.Decimal  `json:"itemsTotal"`
	NetAmount      decimal.Decimal  `json:"netAmount"`
	VATRate        *decimal.Decimal `json:"vatRate,omitempty"`
	ExpectedVAT    *decimal.Decimal `json:"expectedVat,omitempty"`
	ItemsWithVAT   decimal.Decimal  `json:"itemsWithVat"`
	TotalMatchesBy string           `json:"totalMatchesBy,omitempty"`
}

// ValidationResult is the outcome of the consistency checks. An invoice that
// fails them is still stored for review; the result only feeds the logs.
type ValidationResult struct {
	Valid       bool                `json:"valid"`
	NeedsReview bool                `json:"needsReview"`
	Errors      []ValidationError   `json:"errors"`
	Warnings    []ValidationWarning `json:"warnings"`
	Computed    ComputedValues      `json:"computed"`
}

// vatRates are the Turkish KDV rates in use
var vatRates = []decimal.Decimal{
	decimal.NewFromInt(0),
	decimal.NewFromInt(1),
	decimal.NewFromInt(8),
	decimal.NewFromInt(10),
	decimal.NewFromInt(18),
	decimal.NewFromInt(20),
}

var (
	hundred = decimal.NewFromInt(100)
	cent    = decimal.RequireFromString("0.01")
)

// ConsistencyValidator cross-checks the amounts of an interpreted invoice
type ConsistencyValidator struct {
	tolerance decimal.Decimal // relative tolerance (0.05 = 5%)
	now       func() time.Time
}

// NewConsistencyValidator creates a new validator with default 5% tolerance
func NewConsistencyValidator() *ConsistencyValidator {
	return &ConsistencyValidator{
		tolerance: decimal.RequireFromString("0.05"),
		now:       time.Now,
	}
}

// Validate performs all cross-validations on invoice data
func (v *ConsistencyValidator) Validate(inv *models.Invoice) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ValidationError{},
		Warnings: []ValidationWarning{},
	}

	itemsTotal := decimal.Zero
	for _, it := range inv.Items {
		itemsTotal = itemsTotal.Add(it.TotalPrice)
	}
	result.Computed.ItemsTotal = itemsTotal
	result.Computed.ItemsWithVAT = itemsTotal
	result.Computed.NetAmount = inv.TotalAmount
	if inv.VATAmount != nil {
		result.Computed.ItemsWithVAT = itemsTotal.Add(*inv.VATAmount)
		result.Computed.NetAmount = inv.TotalAmount.Sub(*inv.VATAmount)
	}

	// 1. Items
	v.validateItems(inv, result)

	// 2. Total vs items
	v.validateTotal(inv, result)

	// 3. VAT vs net amount
	v.validateVAT(inv, result)

	// 4. Dates
	v.validateDate(inv, result)

	result.Valid = len(result.Errors) == 0
	result.NeedsReview = !result.Valid || len(result.Warnings) > 0
	return result
}

// validateItems checks every line multiplies out and uses a known VAT rate
func (v *ConsistencyValidator) validateItems(inv *models.Invoice, result *ValidationResult) {
	if len(inv.Items) == 0 {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "items",
			Code:    "no_items",
			Message: "no line items were recognised",
		})
		return
	}

	for i, it := range inv.Items {
		field := fmt.Sprintf("items[%d]", i)
		expected := it.Quantity.Mul(it.UnitPrice)
		if !v.within(it.TotalPrice, expected, it.TotalPrice) {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Field: field,
				Code:  "item_total_mismatch",
				Message: fmt.Sprintf("%s: %s × %s = %s, line total is %s",
					it.ProductName, it.Quantity, it.UnitPrice, expected.StringFixed(2), it.TotalPrice.StringFixed(2)),
			})
		}
		if it.VATRate != nil && !knownVATRate(*it.VATRate) {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Field:   field,
				Code:    "vat_rate_unknown",
				Message: fmt.Sprintf("%s: VAT rate %%%s is not a KDV rate", it.ProductName, it.VATRate.String()),
			})
		}
	}
}

// validateTotal checks the total matches the item sum, gross or net of VAT
func (v *ConsistencyValidator) validateTotal(inv *models.Invoice, result *ValidationResult) {
	if !inv.TotalAmount.IsPositive() || len(inv.Items) == 0 {
		return
	}

	c := &result.Computed
	switch {
	case v.within(inv.TotalAmount, c.ItemsTotal, inv.TotalAmount):
		c.TotalMatchesBy = "items"
	case inv.VATAmount != nil && v.within(inv.TotalAmount, c.ItemsWithVAT, inv.TotalAmount):
		c.TotalMatchesBy = "items+vat"
	default:
		expected := c.ItemsTotal.Round(2)
		actual := inv.TotalAmount.Round(2)
		result.Errors = append(result.Errors, ValidationError{
			Field:    "totalAmount",
			Code:     "total_mismatch",
			Expected: &expected,
			Actual:   &actual,
			Message:  "total does not match the sum of the line items",
		})
	}
}

// validateVAT checks VAT is one of the KDV rates of the net amount
func (v *ConsistencyValidator) validateVAT(inv *models.Invoice, result *ValidationResult) {
	if inv.VATAmount == nil || !inv.VATAmount.IsPositive() || !inv.TotalAmount.IsPositive() {
		return
	}
	vat := *inv.VATAmount

	if vat.GreaterThanOrEqual(inv.TotalAmount) {
		actual := vat.Round(2)
		result.Errors = append(result.Errors, ValidationError{
			Field:   "vatAmount",
			Code:    "vat_exceeds_total",
			Actual:  &actual,
			Message: "VAT is not smaller than the total",
		})
		return
	}

	net := result.Computed.NetAmount
	rate := vat.Div(net).Mul(hundred)
	nearest := vatRates[0]
	for _, r := range vatRates[1:] {
		if r.Sub(rate).Abs().LessThan(nearest.Sub(rate).Abs()) {
			nearest = r
		}
	}
	expected := net.Mul(nearest).Div(hundred).Round(2)
	result.Computed.VATRate = &nearest
	result.Computed.ExpectedVAT = &expected

	if !v.within(vat, expected, expected) {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "vatAmount",
			Code:    "vat_rate_unusual",
			Message: fmt.Sprintf("VAT is %s%% of the net amount, nearest KDV rate is %%%s", rate.StringFixed(2), nearest),
		})
	}
}

// validateDate flags invoice dates in the future or implausibly old
func (v *ConsistencyValidator) validateDate(inv *models.Invoice, result *ValidationResult) {
	if !inv.HasDate() {
		return
	}
	now := v.now()
	if inv.InvoiceDate.After(now.Add(24 * time.Hour)) {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "invoiceDate",
			Code:    "future_date",
			Message: fmt.Sprintf("invoice date %s is in the future", inv.InvoiceDate.Format("2006-01-02")),
		})
	}
	if inv.InvoiceDate.Year() < 2000 {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "invoiceDate",
			Code:    "date_too_old",
			Message: fmt.Sprintf("invoice date %s is before 2000", inv.InvoiceDate.Format("2006-01-02")),
		})
	}
}

// within reports |actual-expected| <= max(base×tolerance, 0.01)
func (v *ConsistencyValidator) within(actual, expected, base decimal.Decimal) bool {
	allowed := base.Abs().Mul(v.tolerance)
	if allowed.LessThan(cent) {
		allowed = cent
	}
	return actual.Sub(expected).Abs().LessThanOrEqual(allowed)
}

func knownVATRate(r decimal.Decimal) bool {
	for _, known := range vatRates {
		if known.Equal(r) {
			return true
		}
	}
	return false
}
