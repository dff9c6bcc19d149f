package models

import "time"

// LogLevel of a processing log entry
type LogLevel string

const (
	LogInfo    LogLevel = "Info"
	LogWarning LogLevel = "Warning"
	LogError   LogLevel = "Error"
)

// ProcessingLog keeps what happened to an invoice while it was parsed and approved
type ProcessingLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	InvoiceID uint      `gorm:"index;not null" json:"invoiceId"`
	Level     LogLevel  `gorm:"size:16" json:"level"`
	Message   string    `gorm:"size:1000" json:"message"`
	Details   string    `gorm:"type:text" json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// User is an operator allowed to log into the API
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Email        string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	Role         string     `gorm:"size:32" json:"role"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
}

// All returns every model for migrations
func All() []interface{} {
	return []interface{}{
		&Invoice{},
		&InvoiceItem{},
		&ProcessingLog{},
		&Product{},
		&StockMovement{},
		&User{},
	}
}
