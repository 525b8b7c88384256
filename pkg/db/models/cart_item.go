package models

import "time"

// CartItem is an ephemeral line in a user's cart, unique per user+variant.
// Quantity is bounded to 1..10; rows are deleted on order creation or
// explicit removal.
type CartItem struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"column:user_id;not null;uniqueIndex:idx_cart_user_variant" json:"user_id"`
	VariantID uint      `gorm:"column:variant_id;not null;uniqueIndex:idx_cart_user_variant" json:"variant_id"`
	Quantity  int       `gorm:"column:quantity;not null" json:"quantity"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
