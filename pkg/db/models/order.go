package models

import (
	"time"

	"github.com/nikhilmehra04/stylehub-backend/pkg/enums"
)

// Order is created once from a non-empty cart snapshot. TotalAmount is
// computed at creation and never recomputed; status moves along
// pending -> paid -> shipped -> delivered with cancelled reachable from
// pending and paid only.
type Order struct {
	ID                uint              `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID            uint              `gorm:"column:user_id;not null;index" json:"user_id"`
	TotalAmount       float64           `gorm:"column:total_amount;not null" json:"total_amount"`
	Status            enums.OrderStatus `gorm:"column:status;not null;default:'pending'" json:"status"`
	PaymentID         *uint             `gorm:"column:payment_id" json:"payment_id,omitempty"`
	ShippingAddressID uint              `gorm:"column:shipping_address_id;not null" json:"shipping_address_id"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Items           []OrderItem  `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Payment         *Payment     `gorm:"foreignKey:OrderID" json:"payment,omitempty"`
	ShippingAddress *UserAddress `gorm:"foreignKey:ShippingAddressID" json:"shipping_address,omitempty"`
}
