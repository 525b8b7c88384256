package orders

import (
	"context"

	"github.com/nikhilmehra04/stylehub-backend/pkg/db/models"
	"github.com/nikhilmehra04/stylehub-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository exposes order persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, orderID uint) (*models.Order, error)
	FindByIDForUser(ctx context.Context, userID, orderID uint) (*models.Order, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Order, error)
	TransitionStatus(ctx context.Context, orderID uint, from []enums.OrderStatus, to enums.OrderStatus) (int64, error)
	AddressBelongsToUser(ctx context.Context, userID, addressID uint) (bool, error)
	CreatePayment(ctx context.Context, payment *models.Payment) error
	LinkPayment(ctx context.Context, orderID, paymentID uint) error
	MarkPaymentFailed(ctx context.Context, orderID uint) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an order repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", orderID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDForUser loads the full detail view: lines, payment record and
// shipping destination.
func (r *repository) FindByIDForUser(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payment").
		Preload("ShippingAddress").
		First(&order, "id = ? AND user_id = ?", orderID, userID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uint) ([]models.Order, error) {
	var list []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// TransitionStatus flips the order status only when the current status is in
// the allowed set, in one guarded statement. Zero affected rows means the
// order was missing or in a disallowed state.
func (r *repository) TransitionStatus(ctx context.Context, orderID uint, from []enums.OrderStatus, to enums.OrderStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN ?", orderID, from).
		Update("status", to)
	return res.RowsAffected, res.Error
}

func (r *repository) AddressBelongsToUser(ctx context.Context, userID, addressID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserAddress{}).
		Where("id = ? AND user_id = ?", addressID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) LinkPayment(ctx context.Context, orderID, paymentID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("payment_id", paymentID).Error
}

// MarkPaymentFailed fails any payment on the order that has not completed.
func (r *repository) MarkPaymentFailed(ctx context.Context, orderID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ? AND status <> ?", orderID, enums.PaymentStatusCompleted).
		Update("status", enums.PaymentStatusFailed).Error
}
