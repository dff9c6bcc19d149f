package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry whose stock is maintained by the ledger
type Product struct {
	ID                uint             `gorm:"primaryKey" json:"id"`
	Name              string           `gorm:"size:500;not null" json:"name"`
	NameKey           string           `gorm:"size:500;uniqueIndex;not null" json:"-"`
	Code              *string          `gorm:"size:100;uniqueIndex" json:"code,omitempty"`
	Description       string           `gorm:"size:1000" json:"description,omitempty"`
	Category          string           `gorm:"size:200" json:"category,omitempty"`
	DefaultUnit       string           `gorm:"size:50" json:"defaultUnit"`
	CurrentStock      decimal.Decimal  `gorm:"type:decimal(18,4)" json:"currentStock"`
	MinimumStock      decimal.Decimal  `gorm:"type:decimal(18,4)" json:"minimumStock"`
	LastPurchasePrice *decimal.Decimal `gorm:"type:decimal(18,4)" json:"lastPurchasePrice,omitempty"`
	LastUpdated       time.Time        `json:"lastUpdated"`
	CreatedAt         time.Time        `json:"createdAt"`
}

// CodeValue returns the product code or "" when none is set
func (p *Product) CodeValue() string {
	if p.Code == nil {
		return ""
	}
	return *p.Code
}

// LowStock reports whether the product is at or below its minimum
func (p *Product) LowStock() bool {
	return p.CurrentStock.LessThanOrEqual(p.MinimumStock)
}

// MovementKind mirrors Direction and adds manual adjustments
type MovementKind string

const (
	MovementPurchase       MovementKind = "Purchase"
	MovementSale           MovementKind = "Sale"
	MovementPurchaseReturn MovementKind = "PurchaseReturn"
	MovementSaleReturn     MovementKind = "SaleReturn"
	MovementAdjustment     MovementKind = "Adjustment"
)

// MovementKindFor maps an invoice direction to its movement kind
func MovementKindFor(d Direction) MovementKind {
	switch d {
	case DirectionPurchase:
		return MovementPurchase
	case DirectionSale:
		return MovementSale
	case DirectionPurchaseReturn:
		return MovementPurchaseReturn
	case DirectionSaleReturn:
		return MovementSaleReturn
	default:
		return MovementAdjustment
	}
}

// Delta returns the signed stock change a movement of this kind represents.
// Adjustment quantities are stored already signed.
func (k MovementKind) Delta(qty decimal.Decimal) decimal.Decimal {
	switch k {
	case MovementPurchase, MovementSaleReturn, MovementAdjustment:
		return qty
	case MovementSale, MovementPurchaseReturn:
		return qty.Neg()
	default:
		return decimal.Zero
	}
}

// StockMovement is an append-only record of one stock change
type StockMovement struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ProductID     uint            `gorm:"index;not null" json:"productId"`
	InvoiceID     *uint           `gorm:"index" json:"invoiceId,omitempty"`
	Kind          MovementKind    `gorm:"size:32" json:"kind"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,4)" json:"quantity"`
	PreviousStock decimal.Decimal `gorm:"type:decimal(18,4)" json:"previousStock"`
	NewStock      decimal.Decimal `gorm:"type:decimal(18,4)" json:"newStock"`
	MovementDate  time.Time       `gorm:"index" json:"movementDate"`
	Description   string          `gorm:"size:1000" json:"description,omitempty"`

	Product *Product `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"product,omitempty"`
}
