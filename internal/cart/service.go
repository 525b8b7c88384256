package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/nikhilmehra04/stylehub-backend/internal/inventory"
	"github.com/nikhilmehra04/stylehub-backend/pkg/db/models"
	pkgerrors "github.com/nikhilmehra04/stylehub-backend/pkg/errors"
	"github.com/nikhilmehra04/stylehub-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	minLineQuantity = 1
	maxLineQuantity = 10
)

// SnapshotLine is one priced cart line frozen at snapshot time.
type SnapshotLine struct {
	VariantID   uint    `json:"variant_id"`
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"`
	Size        string  `json:"size"`
	Color       string  `json:"color"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
}

// Snapshot is the priced cart contents read in one pass, with stock
// verified per line. It is the sole input to order creation.
type Snapshot struct {
	Lines []SnapshotLine `json:"lines"`
	Total float64        `json:"total"`
}

// Service exposes cart reads and mutations plus the checkout snapshot.
type Service interface {
	Snapshot(ctx context.Context, tx *gorm.DB, userID uint) (*Snapshot, error)
	List(ctx context.Context, userID uint) (*Snapshot, error)
	AddItem(ctx context.Context, userID, variantID uint, quantity int) (*models.CartItem, error)
	UpdateItem(ctx context.Context, userID, variantID uint, quantity int) (*models.CartItem, error)
	RemoveItem(ctx context.Context, userID, variantID uint) error
	Clear(ctx context.Context, userID uint) error
}

type service struct {
	repo   Repository
	ledger inventory.Ledger
	log    *logger.Logger
}

// NewService wires the cart service.
func NewService(repo Repository, ledger inventory.Ledger, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart: repository is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("cart: inventory ledger is required")
	}
	if log == nil {
		return nil, fmt.Errorf("cart: logger is required")
	}
	return &service{repo: repo, ledger: ledger, log: log}, nil
}

// Snapshot prices every cart line and verifies stock per line. Any line
// exceeding available stock fails the whole snapshot; partial carts are
// never priced.
func (s *service) Snapshot(ctx context.Context, tx *gorm.DB, userID uint) (*Snapshot, error) {
	lines, err := s.repo.WithTx(tx).ListPricedLines(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart lines")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cannot act on an empty cart")
	}

	var short []map[string]any
	snap := &Snapshot{Lines: make([]SnapshotLine, 0, len(lines))}
	total := decimal.Zero
	for _, line := range lines {
		if line.Quantity > line.Stock {
			short = append(short, map[string]any{
				"variant_id": line.VariantID,
				"requested":  line.Quantity,
				"available":  line.Stock,
			})
			continue
		}
		unit := unitPrice(line.ProductPrice, line.AdditionalPrice, line.DiscountPercent)
		lineTotal := unit.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		total = total.Add(lineTotal)
		snap.Lines = append(snap.Lines, SnapshotLine{
			VariantID:   line.VariantID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Size:        line.Size,
			Color:       line.Color,
			Quantity:    line.Quantity,
			UnitPrice:   unit.InexactFloat64(),
			LineTotal:   lineTotal.InexactFloat64(),
		})
	}
	if len(short) > 0 {
		s.log.Warn(s.log.WithFields(ctx, map[string]any{
			"user_id": userID,
			"lines":   len(short),
		}), "cart snapshot rejected, lines exceed stock")
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "one or more cart lines exceed available stock").
			WithDetails(map[string]any{"lines": short})
	}

	snap.Total = total.Round(2).InexactFloat64()
	return snap, nil
}

// List is the read-only cart view. An empty cart is a valid empty
// snapshot here, unlike checkout.
func (s *service) List(ctx context.Context, userID uint) (*Snapshot, error) {
	snap, err := s.Snapshot(ctx, nil, userID)
	if err == nil {
		return snap, nil
	}
	typed := pkgerrors.As(err)
	if typed != nil && typed.Code() == pkgerrors.CodeEmptyCart {
		return &Snapshot{Lines: []SnapshotLine{}, Total: 0}, nil
	}
	if typed != nil && typed.Code() == pkgerrors.CodeInsufficientStock {
		// The view still renders when stock drifted below the cart
		// quantity; only checkout refuses such carts.
		return s.listUnchecked(ctx, userID)
	}
	return nil, err
}

func (s *service) listUnchecked(ctx context.Context, userID uint) (*Snapshot, error) {
	lines, err := s.repo.ListPricedLines(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart lines")
	}
	snap := &Snapshot{Lines: make([]SnapshotLine, 0, len(lines))}
	total := decimal.Zero
	for _, line := range lines {
		unit := unitPrice(line.ProductPrice, line.AdditionalPrice, line.DiscountPercent)
		lineTotal := unit.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		total = total.Add(lineTotal)
		snap.Lines = append(snap.Lines, SnapshotLine{
			VariantID:   line.VariantID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Size:        line.Size,
			Color:       line.Color,
			Quantity:    line.Quantity,
			UnitPrice:   unit.InexactFloat64(),
			LineTotal:   lineTotal.InexactFloat64(),
		})
	}
	snap.Total = total.Round(2).InexactFloat64()
	return snap, nil
}

// AddItem upserts a cart line. Adding an existing variant accumulates
// quantity, still bounded to the per-line maximum.
func (s *service) AddItem(ctx context.Context, userID, variantID uint, quantity int) (*models.CartItem, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}

	item, err := s.repo.FindLine(ctx, userID, variantID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
	}

	target := quantity
	if item != nil {
		target = item.Quantity + quantity
	}
	if target > maxLineQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("cart line quantity cannot exceed %d", maxLineQuantity))
	}

	ok, err := s.ledger.CheckAvailable(ctx, nil, variantID, target)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock,
			fmt.Sprintf("insufficient stock for variant %d", variantID)).
			WithDetails(map[string]any{"variant_id": variantID, "requested": target})
	}

	if item == nil {
		item = &models.CartItem{UserID: userID, VariantID: variantID}
	}
	item.Quantity = target
	if err := s.repo.SaveLine(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart line")
	}
	return item, nil
}

// UpdateItem replaces the line quantity outright.
func (s *service) UpdateItem(ctx context.Context, userID, variantID uint, quantity int) (*models.CartItem, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}

	item, err := s.repo.FindLine(ctx, userID, variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
	}

	ok, err := s.ledger.CheckAvailable(ctx, nil, variantID, quantity)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock,
			fmt.Sprintf("insufficient stock for variant %d", variantID)).
			WithDetails(map[string]any{"variant_id": variantID, "requested": quantity})
	}

	item.Quantity = quantity
	if err := s.repo.SaveLine(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart line")
	}
	return item, nil
}

func (s *service) RemoveItem(ctx context.Context, userID, variantID uint) error {
	affected, err := s.repo.DeleteLine(ctx, userID, variantID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return nil
}

func (s *service) Clear(ctx context.Context, userID uint) error {
	if err := s.repo.Clear(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func validateQuantity(quantity int) error {
	if quantity < minLineQuantity || quantity > maxLineQuantity {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("quantity must be between %d and %d", minLineQuantity, maxLineQuantity))
	}
	return nil
}

// unitPrice applies the variant surcharge and product discount:
// (price + additional) * (1 - discount/100), rounded to cents.
func unitPrice(productPrice, additionalPrice, discountPercent float64) decimal.Decimal {
	base := decimal.NewFromFloat(productPrice).Add(decimal.NewFromFloat(additionalPrice))
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(discountPercent).Div(decimal.NewFromInt(100)))
	return base.Mul(factor).Round(2)
}
