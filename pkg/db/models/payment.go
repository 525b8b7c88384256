package models

import (
	"time"

	"github.com/nikhilmehra04/stylehub-backend/pkg/enums"
)

// Payment is the single active payment record for an order. The method may
// be rewritten until the payment completes; TransactionReference holds the
// external payment-intent id for card payments.
type Payment struct {
	ID                   uint                `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrderID              uint                `gorm:"column:order_id;not null;index" json:"order_id"`
	Method               enums.PaymentMethod `gorm:"column:method;not null" json:"method"`
	Status               enums.PaymentStatus `gorm:"column:status;not null;default:'pending'" json:"status"`
	TransactionReference *string             `gorm:"column:transaction_reference" json:"transaction_reference,omitempty"`
	PaidAt               *time.Time          `gorm:"column:paid_at" json:"paid_at,omitempty"`
	CreatedAt            time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
