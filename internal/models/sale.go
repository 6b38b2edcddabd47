package models

import (
	"time"

	"github.com/google/uuid"
)

type Sale struct {
	BaseModel
	SaleNumber   string        `gorm:"uniqueIndex" json:"sale_number"`
	CashierID    uuid.UUID     `gorm:"type:uuid;index" json:"cashier_id"`
	Cashier      *User         `gorm:"foreignKey:CashierID" json:"cashier,omitempty"`
	CustomerID   *uuid.UUID    `gorm:"type:uuid;index" json:"customer_id"`
	Customer     *Customer     `json:"customer,omitempty"`
	Status       string        `json:"status"`
	PlacedAt     time.Time     `json:"placed_at"`
	TotalAmount  float64       `json:"total_amount"`
	Currency     string        `json:"currency"`
	Items        []SaleItem    `json:"items,omitempty"`
	Payments     []SalePayment `json:"payments,omitempty"`
	ERPSaleID    string        `json:"erp_sale_id"`
	ERPSyncedAt  *time.Time    `json:"erp_synced_at"`
	ERPSyncError string        `json:"erp_sync_error"`
}

type SaleItem struct {
	BaseModel
	SaleID      uuid.UUID  `gorm:"type:uuid;index" json:"sale_id"`
	ProductID   *uuid.UUID `gorm:"type:uuid" json:"product_id"`
	ProductName string     `json:"product_name"`
	Quantity    int        `json:"quantity"`
	UnitPrice   float64    `json:"unit_price"`
	LineTotal   float64    `json:"line_total"`
}

// SalePayment records one settled payment against a sale. For cash the
// tendered amount and computed change are kept so the register can be
// reconciled later; for other methods both are zero.
type SalePayment struct {
	BaseModel
	SaleID    uuid.UUID `gorm:"type:uuid;index" json:"sale_id"`
	Method    string    `json:"method"` // cash|card|transfer|voucher|other
	Amount    float64   `json:"amount"`
	Tendered  float64   `json:"tendered"`
	Change    float64   `json:"change"`
	Reference string    `json:"reference"`
}

// HeldOrder is a paused cart snapshot. It is immutable once created; resuming
// it restores the items into a live cart and deletes the record.
type HeldOrder struct {
	BaseModel
	CashierID  uuid.UUID       `gorm:"type:uuid;index" json:"cashier_id"`
	CustomerID *uuid.UUID      `gorm:"type:uuid" json:"customer_id"`
	Customer   *Customer       `json:"customer,omitempty"`
	Note       string          `json:"note"`
	Items      []HeldOrderItem `json:"items,omitempty"`
}

type HeldOrderItem struct {
	BaseModel
	HeldOrderID  uuid.UUID `gorm:"type:uuid;index" json:"held_order_id"`
	ProductID    uuid.UUID `gorm:"type:uuid" json:"product_id"`
	ProductName  string    `json:"product_name"`
	UnitPrice    float64   `json:"unit_price"`
	Quantity     int       `json:"quantity"`
	StockCeiling int       `json:"stock_ceiling"`
}
