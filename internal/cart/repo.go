package cart

import (
	"context"

	"github.com/nikhilmehra04/stylehub-backend/pkg/db/models"
	"gorm.io/gorm"
)

// PricedLine is a cart line joined with its variant and product pricing
// inputs, as read from the store in one query.
type PricedLine struct {
	VariantID       uint    `gorm:"column:variant_id"`
	Quantity        int     `gorm:"column:quantity"`
	Stock           int     `gorm:"column:stock"`
	AdditionalPrice float64 `gorm:"column:additional_price"`
	ProductPrice    float64 `gorm:"column:product_price"`
	DiscountPercent float64 `gorm:"column:discount_percent"`
	ProductID       uint    `gorm:"column:product_id"`
	ProductName     string  `gorm:"column:product_name"`
	Size            string  `gorm:"column:size"`
	Color           string  `gorm:"column:color"`
}

// Repository exposes cart persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListPricedLines(ctx context.Context, userID uint) ([]PricedLine, error)
	FindLine(ctx context.Context, userID, variantID uint) (*models.CartItem, error)
	SaveLine(ctx context.Context, item *models.CartItem) error
	DeleteLine(ctx context.Context, userID, variantID uint) (int64, error)
	Clear(ctx context.Context, userID uint) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListPricedLines(ctx context.Context, userID uint) ([]PricedLine, error) {
	var lines []PricedLine
	err := r.db.WithContext(ctx).
		Table("cart_items AS c").
		Select(`c.variant_id, c.quantity, pv.stock, pv.additional_price, pv.size, pv.color,
			p.id AS product_id, p.price AS product_price, p.discount_percent, p.name AS product_name`).
		Joins("JOIN product_variants pv ON pv.id = c.variant_id").
		Joins("JOIN products p ON p.id = pv.product_id").
		Where("c.user_id = ?", userID).
		Order("c.created_at ASC").
		Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repository) FindLine(ctx context.Context, userID, variantID uint) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND variant_id = ?", userID, variantID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) SaveLine(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repository) DeleteLine(ctx context.Context, userID, variantID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND variant_id = ?", userID, variantID).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

func (r *repository) Clear(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).Error
}
