package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction tells which way goods flow for an invoice
type Direction string

const (
	DirectionPurchase       Direction = "Purchase"
	DirectionSale           Direction = "Sale"
	DirectionPurchaseReturn Direction = "PurchaseReturn"
	DirectionSaleReturn     Direction = "SaleReturn"
)

// Directions lists the canonical directions in their legacy numeric order (1-4)
var Directions = []Direction{
	DirectionPurchase,
	DirectionSale,
	DirectionPurchaseReturn,
	DirectionSaleReturn,
}

// Sign returns +1 when the direction adds stock and -1 when it removes it
func (d Direction) Sign() int {
	switch d {
	case DirectionPurchase, DirectionSaleReturn:
		return 1
	case DirectionSale, DirectionPurchaseReturn:
		return -1
	default:
		return 0
	}
}

// Valid reports whether d is a canonical direction
func (d Direction) Valid() bool {
	return d.Sign() != 0
}

// ParseDirection matches a caller supplied hint against the canonical directions.
// Case and separators are ignored ("purchase_return", "Sale-Return"), and the
// numeric codes 1-4 are accepted as well.
func ParseDirection(hint string) (Direction, bool) {
	h := strings.ToLower(strings.TrimSpace(hint))
	if h == "" {
		return "", false
	}
	h = strings.NewReplacer("_", "", "-", "", " ", "").Replace(h)

	for i, d := range Directions {
		if h == strings.ToLower(string(d)) || h == string(rune('1'+i)) {
			return d, true
		}
	}
	return "", false
}

// Status is the review lifecycle of an invoice
type Status string

const (
	StatusPendingReview Status = "PendingReview"
	StatusApproved      Status = "Approved"
	StatusFailed        Status = "Failed"
)

// DefaultUnit is used when a line item or product carries no unit
const DefaultUnit = "adet"

// Invoice is an interpreted invoice document. It is created as a draft in
// PendingReview and only approval or deletion change it afterwards.
type Invoice struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	FileName      string           `gorm:"size:500" json:"fileName"`
	Direction     Direction        `gorm:"size:32;index" json:"direction"`
	ProcessedDate time.Time        `gorm:"index" json:"processedDate"`
	InvoiceNumber string           `gorm:"size:100;index" json:"invoiceNumber,omitempty"`
	InvoiceDate   *time.Time       `json:"invoiceDate,omitempty"`
	SupplierName  string           `gorm:"size:500" json:"supplierName,omitempty"`
	CustomerName  string           `gorm:"size:500" json:"customerName,omitempty"`
	TotalAmount   decimal.Decimal  `gorm:"type:decimal(18,4)" json:"totalAmount"`
	VATAmount     *decimal.Decimal `gorm:"type:decimal(18,4)" json:"vatAmount,omitempty"`
	Status        Status           `gorm:"size:32;index" json:"status"`
	Confidence    int              `json:"confidence"`
	ErrorMessage  string           `gorm:"size:2000" json:"errorMessage,omitempty"`
	RawText       string           `gorm:"type:text" json:"rawText,omitempty"`
	DocumentPath  string           `gorm:"size:500" json:"documentPath,omitempty"`

	Items []InvoiceItem   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
	Logs  []ProcessingLog `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"logs,omitempty"`
}

// HasNumber, HasDate and HasSupplier are the presence checks used for scoring
func (inv *Invoice) HasNumber() bool   { return strings.TrimSpace(inv.InvoiceNumber) != "" }
func (inv *Invoice) HasDate() bool     { return inv.InvoiceDate != nil && !inv.InvoiceDate.IsZero() }
func (inv *Invoice) HasSupplier() bool { return strings.TrimSpace(inv.SupplierName) != "" }

// InvoiceItem is a single line of an invoice
type InvoiceItem struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	InvoiceID   uint             `gorm:"index;not null" json:"invoiceId"`
	ProductID   *uint            `gorm:"index" json:"productId,omitempty"`
	ProductName string           `gorm:"size:500" json:"productName"`
	ProductCode string           `gorm:"size:100" json:"productCode,omitempty"`
	Quantity    decimal.Decimal  `gorm:"type:decimal(18,4)" json:"quantity"`
	Unit        string           `gorm:"size:50" json:"unit"`
	UnitPrice   decimal.Decimal  `gorm:"type:decimal(18,4)" json:"unitPrice"`
	TotalPrice  decimal.Decimal  `gorm:"type:decimal(18,4)" json:"totalPrice"`
	VATRate     *decimal.Decimal `gorm:"type:decimal(5,2)" json:"vatRate,omitempty"`
	Confidence  int              `json:"confidence"`
}

// Valid reports whether the item can move stock
func (it *InvoiceItem) Valid() bool {
	return strings.TrimSpace(it.ProductName) != "" &&
		it.Quantity.IsPositive() &&
		it.UnitPrice.IsPositive() &&
		it.TotalPrice.IsPositive()
}
