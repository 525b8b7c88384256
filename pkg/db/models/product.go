package models

import "time"

// Product is the catalog entry variants hang off.
type Product struct {
	ID              uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name            string    `gorm:"column:name;not null" json:"name"`
	Description     string    `gorm:"column:description" json:"description"`
	Price           float64   `gorm:"column:price;not null" json:"price"`
	DiscountPercent float64   `gorm:"column:discount_percent;not null;default:0" json:"discount_percent"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Variants []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
	Media    []ProductMedia   `gorm:"foreignKey:ProductID" json:"media,omitempty"`
}
