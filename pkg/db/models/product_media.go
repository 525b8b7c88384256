package models

import "time"

// ProductMedia stores catalog imagery; the primary image feeds try-on jobs.
type ProductMedia struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ProductID uint      `gorm:"column:product_id;not null;index" json:"product_id"`
	URL       string    `gorm:"column:url;not null" json:"url"`
	IsPrimary bool      `gorm:"column:is_primary;not null;default:false" json:"is_primary"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
