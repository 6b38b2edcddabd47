package models

import "github.com/google/uuid"

type Product struct {
	BaseModel
	Name       string     `json:"name"`
	SKU        string     `gorm:"uniqueIndex" json:"sku"`
	Barcode    string     `gorm:"index" json:"barcode"`
	Price      float64    `json:"price"`
	Currency   string     `json:"currency"`
	Stock      int        `json:"stock"`
	IsActive   bool       `json:"is_active"`
	BrandID    *uuid.UUID `gorm:"type:uuid" json:"brand_id"`
	Brand      *Brand     `json:"brand,omitempty"`
	CategoryID *uuid.UUID `gorm:"type:uuid" json:"category_id"`
	Category   *Category  `json:"category,omitempty"`
	ERPID      string     `gorm:"index" json:"erp_id"`
}

// StockMovement records every change to a product's stock level, one row per
// delta, so stock history can be queried without reconstructing it from sales.
type StockMovement struct {
	BaseModel
	ProductID      uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
	Delta          int       `json:"delta"`
	ResultingStock int       `json:"resulting_stock"`
	Reason         string    `json:"reason"` // sale|erp_sync|adjustment
	Reference      string    `json:"reference"`
}
