package models

import "time"

// ProductVariant is a purchasable size/color configuration carrying its own
// stock count and price delta. Stock is mutated only by order creation
// (decrement) and order cancellation (increment) and never goes negative.
type ProductVariant struct {
	ID              uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ProductID       uint      `gorm:"column:product_id;not null;index" json:"product_id"`
	Size            string    `gorm:"column:size;not null" json:"size"`
	Color           string    `gorm:"column:color;not null" json:"color"`
	Stock           int       `gorm:"column:stock;not null;default:0" json:"stock"`
	AdditionalPrice float64   `gorm:"column:additional_price;not null;default:0" json:"additional_price"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
