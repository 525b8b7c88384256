package payments

import (
	"context"

	"github.com/nikhilmehra04/stylehub-backend/pkg/db/models"
	"github.com/nikhilmehra04/stylehub-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository exposes payment persistence plus the order rows payments act on.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrderForUser(ctx context.Context, userID, orderID uint) (*models.Order, error)
	FindByOrder(ctx context.Context, orderID uint) (*models.Payment, error)
	Save(ctx context.Context, payment *models.Payment) error
	AttachToOrder(ctx context.Context, orderID, paymentID uint) error
	MarkOrderPaid(ctx context.Context, orderID uint) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payment repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrderForUser(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		First(&order, "id = ? AND user_id = ?", orderID, userID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByOrder(ctx context.Context, orderID uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		First(&payment, "order_id = ?", orderID).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) Save(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

func (r *repository) AttachToOrder(ctx context.Context, orderID, paymentID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("payment_id", paymentID).Error
}

// MarkOrderPaid flips a pending order to paid in one guarded statement.
func (r *repository) MarkOrderPaid(ctx context.Context, orderID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusPending).
		Update("status", enums.OrderStatusPaid)
	return res.RowsAffected, res.Error
}
