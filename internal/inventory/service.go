package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/nikhilmehra04/stylehub-backend/pkg/db/models"
	pkgerrors "github.com/nikhilmehra04/stylehub-backend/pkg/errors"
	"gorm.io/gorm"
)

// Ledger guards per-variant stock. Reserve is a single conditional
// decrement so two concurrent reservations can never both pass a check
// that was valid for only one of them.
type Ledger interface {
	CheckAvailable(ctx context.Context, tx *gorm.DB, variantID uint, quantity int) (bool, error)
	Reserve(ctx context.Context, tx *gorm.DB, variantID uint, quantity int) error
	Release(ctx context.Context, tx *gorm.DB, variantID uint, quantity int) error
}

type ledger struct {
	db *gorm.DB
}

// NewLedger builds the stock ledger bound to the provided DB.
func NewLedger(db *gorm.DB) Ledger {
	return &ledger{db: db}
}

func (l *ledger) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return l.db
}

func (l *ledger) CheckAvailable(ctx context.Context, tx *gorm.DB, variantID uint, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var variant models.ProductVariant
	err := l.conn(tx).WithContext(ctx).
		Select("id", "stock").
		Where("id = ?", variantID).
		First(&variant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("variant %d not found", variantID))
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant stock")
	}
	return variant.Stock >= quantity, nil
}

// Reserve decrements stock for the variant, guarded by stock >= quantity in
// the same statement. Zero affected rows means either the variant is gone
// or the guard rejected the decrement.
func (l *ledger) Reserve(ctx context.Context, tx *gorm.DB, variantID uint, quantity int) error {
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := l.conn(tx).WithContext(ctx).Exec(`
		UPDATE product_variants
		SET stock = stock - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock >= ?
	`, quantity, variantID, quantity)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve stock")
	}
	if res.RowsAffected == 0 {
		exists, err := l.variantExists(ctx, tx, variantID)
		if err != nil {
			return err
		}
		if !exists {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("variant %d not found", variantID))
		}
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("insufficient stock for variant %d", variantID)).
			WithDetails(map[string]any{"variant_id": variantID, "requested": quantity})
	}
	return nil
}

// Release returns stock unconditionally; it is only reachable through the
// order cancellation transition, which fires at most once per order.
func (l *ledger) Release(ctx context.Context, tx *gorm.DB, variantID uint, quantity int) error {
	if quantity <= 0 {
		return nil
	}

	res := l.conn(tx).WithContext(ctx).Exec(`
		UPDATE product_variants
		SET stock = stock + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, quantity, variantID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release stock")
	}
	return nil
}

func (l *ledger) variantExists(ctx context.Context, tx *gorm.DB, variantID uint) (bool, error) {
	var count int64
	err := l.conn(tx).WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ?", variantID).
		Count(&count).Error
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check variant existence")
	}
	return count > 0, nil
}
