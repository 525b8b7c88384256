package wishlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/nikhilmehra04/stylehub-backend/pkg/db"
	"github.com/nikhilmehra04/stylehub-backend/pkg/db/models"
	pkgerrors "github.com/nikhilmehra04/stylehub-backend/pkg/errors"
	"gorm.io/gorm"
)

// Entry is a saved product with enough catalog context to render.
type Entry struct {
	ID           uint    `gorm:"column:id" json:"id"`
	ProductID    uint    `gorm:"column:product_id" json:"product_id"`
	ProductName  string  `gorm:"column:product_name" json:"product_name"`
	Price        float64 `gorm:"column:price" json:"price"`
	DiscountPct  float64 `gorm:"column:discount_percent" json:"discount_percent"`
	PrimaryImage string  `gorm:"column:primary_image" json:"primary_image"`
}

// Service manages a user's saved products.
type Service interface {
	List(ctx context.Context, userID uint) ([]Entry, error)
	Add(ctx context.Context, userID, productID uint) (*models.WishlistItem, error)
	Remove(ctx context.Context, userID, productID uint) error
}

type service struct {
	db *gorm.DB
}

// NewService wires the wishlist service.
func NewService(conn *gorm.DB) (Service, error) {
	if conn == nil {
		return nil, fmt.Errorf("wishlist: db is required")
	}
	return &service{db: conn}, nil
}

func (s *service) List(ctx context.Context, userID uint) ([]Entry, error) {
	var entries []Entry
	err := s.db.WithContext(ctx).
		Table("wishlist_items AS w").
		Select(`w.id, w.product_id, p.name AS product_name, p.price, p.discount_percent,
			COALESCE(pm.url, '') AS primary_image`).
		Joins("JOIN products p ON p.id = w.product_id").
		Joins("LEFT JOIN product_media pm ON pm.product_id = p.id AND pm.is_primary = ?", true).
		Where("w.user_id = ?", userID).
		Order("w.created_at DESC").
		Scan(&entries).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist")
	}
	return entries, nil
}

func (s *service) Add(ctx context.Context, userID, productID uint) (*models.WishlistItem, error) {
	var exists int64
	err := s.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Count(&exists).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product")
	}
	if exists == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	item := &models.WishlistItem{UserID: userID, ProductID: productID}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already in wishlist")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist wishlist item")
	}
	return item, nil
}

func (s *service) Remove(ctx context.Context, userID, productID uint) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.WishlistItem{})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not in wishlist")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "remove wishlist item")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not in wishlist")
	}
	return nil
}
