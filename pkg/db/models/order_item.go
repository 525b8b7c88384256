package models

import "time"

// OrderItem is an immutable snapshot of price and quantity at the moment of
// purchase, decoupled from later price or variant changes.
type OrderItem struct {
	ID              uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrderID         uint      `gorm:"column:order_id;not null;index" json:"order_id"`
	VariantID       uint      `gorm:"column:variant_id;not null" json:"variant_id"`
	Quantity        int       `gorm:"column:quantity;not null" json:"quantity"`
	PriceAtPurchase float64   `gorm:"column:price_at_purchase;not null" json:"price_at_purchase"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
