package cart

import (
	"context"
	"io"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/nikhilmehra04/stylehub-backend/internal/inventory"
	"github.com/nikhilmehra04/stylehub-backend/pkg/db/models"
	pkgerrors "github.com/nikhilmehra04/stylehub-backend/pkg/errors"
	"github.com/nikhilmehra04/stylehub-backend/pkg/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.ProductVariant{}, &models.CartItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	log := logger.New(logger.Options{ServiceName: "cart-test", Output: io.Discard})
	svc, err := NewService(NewRepository(db), inventory.NewLedger(db), log)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func seedProduct(t *testing.T, db *gorm.DB, price, discount float64) uint {
	t.Helper()
	product := models.Product{Name: "tee", Price: price, DiscountPercent: discount}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product.ID
}

func seedVariant(t *testing.T, db *gorm.DB, productID uint, stock int, additional float64) uint {
	t.Helper()
	variant := models.ProductVariant{ProductID: productID, Size: "M", Color: "black", Stock: stock, AdditionalPrice: additional}
	if err := db.Create(&variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	return variant.ID
}

func seedCartLine(t *testing.T, db *gorm.DB, userID, variantID uint, quantity int) {
	t.Helper()
	if err := db.Create(&models.CartItem{UserID: userID, VariantID: variantID, Quantity: quantity}).Error; err != nil {
		t.Fatalf("seed cart line: %v", err)
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.001
}

func TestSnapshotPricesLines(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	productID := seedProduct(t, db, 100, 10)
	variantID := seedVariant(t, db, productID, 5, 20)
	seedCartLine(t, db, 7, variantID, 2)

	snap, err := svc.Snapshot(ctx, nil, 7)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(snap.Lines))
	}
	// (100 + 20) * 0.9 = 108 per unit, 216 for the line.
	if !almostEqual(snap.Lines[0].UnitPrice, 108) {
		t.Fatalf("unit price = %v, want 108", snap.Lines[0].UnitPrice)
	}
	if !almostEqual(snap.Lines[0].LineTotal, 216) || !almostEqual(snap.Total, 216) {
		t.Fatalf("line=%v total=%v, want 216", snap.Lines[0].LineTotal, snap.Total)
	}
}

func TestSnapshotRoundsToCents(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	productID := seedProduct(t, db, 19.99, 33)
	variantID := seedVariant(t, db, productID, 10, 0)
	seedCartLine(t, db, 1, variantID, 3)

	snap, err := svc.Snapshot(context.Background(), nil, 1)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	// 19.99 * 0.67 = 13.3933 -> 13.39 per unit, 40.17 for three.
	if !almostEqual(snap.Lines[0].UnitPrice, 13.39) {
		t.Fatalf("unit price = %v, want 13.39", snap.Lines[0].UnitPrice)
	}
	if !almostEqual(snap.Total, 40.17) {
		t.Fatalf("total = %v, want 40.17", snap.Total)
	}
}

func TestSnapshotEmptyCart(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.Snapshot(context.Background(), nil, 42)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeEmptyCart {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSnapshotFailsWhenAnyLineExceedsStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	productID := seedProduct(t, db, 50, 0)
	okVariant := seedVariant(t, db, productID, 10, 0)
	shortVariant := seedVariant(t, db, productID, 1, 0)
	seedCartLine(t, db, 3, okVariant, 2)
	seedCartLine(t, db, 3, shortVariant, 2)

	_, err := svc.Snapshot(context.Background(), nil, 3)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", typed.Details())
	}
	lines, ok := details["lines"].([]map[string]any)
	if !ok || len(lines) != 1 {
		t.Fatalf("expected one short line in details, got %v", details["lines"])
	}
	if lines[0]["variant_id"] != shortVariant {
		t.Fatalf("wrong offending variant: %v", lines[0]["variant_id"])
	}
}

func TestListToleratesEmptyAndShortStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	snap, err := svc.List(ctx, 9)
	if err != nil {
		t.Fatalf("list empty cart: %v", err)
	}
	if len(snap.Lines) != 0 || snap.Total != 0 {
		t.Fatalf("expected empty view, got %+v", snap)
	}

	productID := seedProduct(t, db, 30, 0)
	variantID := seedVariant(t, db, productID, 1, 0)
	seedCartLine(t, db, 9, variantID, 3)

	snap, err = svc.List(ctx, 9)
	if err != nil {
		t.Fatalf("list short-stock cart: %v", err)
	}
	if len(snap.Lines) != 1 || !almostEqual(snap.Total, 90) {
		t.Fatalf("unexpected view: %+v", snap)
	}
}

func TestAddItemAccumulatesQuantity(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	productID := seedProduct(t, db, 25, 0)
	variantID := seedVariant(t, db, productID, 10, 0)

	if _, err := svc.AddItem(ctx, 4, variantID, 2); err != nil {
		t.Fatalf("first add: %v", err)
	}
	item, err := svc.AddItem(ctx, 4, variantID, 3)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if item.Quantity != 5 {
		t.Fatalf("quantity = %d, want 5", item.Quantity)
	}

	var count int64
	if err := db.Model(&models.CartItem{}).Where("user_id = ?", 4).Count(&count).Error; err != nil {
		t.Fatalf("count lines: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single upserted line, got %d", count)
	}
}

func TestAddItemEnforcesBounds(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	productID := seedProduct(t, db, 25, 0)
	variantID := seedVariant(t, db, productID, 50, 0)

	if _, err := svc.AddItem(ctx, 4, variantID, 0); pkgerrors.As(err) == nil {
		t.Fatalf("expected validation error for zero quantity, got %v", err)
	}
	if _, err := svc.AddItem(ctx, 4, variantID, 11); pkgerrors.As(err) == nil {
		t.Fatalf("expected validation error for oversized quantity, got %v", err)
	}

	if _, err := svc.AddItem(ctx, 4, variantID, 8); err != nil {
		t.Fatalf("add: %v", err)
	}
	_, err := svc.AddItem(ctx, 4, variantID, 8)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected bound rejection on accumulate, got %v", err)
	}
}

func TestAddItemRejectsShortStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	productID := seedProduct(t, db, 25, 0)
	variantID := seedVariant(t, db, productID, 2, 0)

	_, err := svc.AddItem(context.Background(), 4, variantID, 3)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateItemReplacesQuantity(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	productID := seedProduct(t, db, 25, 0)
	variantID := seedVariant(t, db, productID, 10, 0)
	seedCartLine(t, db, 4, variantID, 5)

	item, err := svc.UpdateItem(ctx, 4, variantID, 2)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if item.Quantity != 2 {
		t.Fatalf("quantity = %d, want 2", item.Quantity)
	}

	_, err = svc.UpdateItem(ctx, 4, 999, 2)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRemoveAndClear(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	productID := seedProduct(t, db, 25, 0)
	first := seedVariant(t, db, productID, 10, 0)
	second := seedVariant(t, db, productID, 10, 0)
	seedCartLine(t, db, 4, first, 1)
	seedCartLine(t, db, 4, second, 1)

	if err := svc.RemoveItem(ctx, 4, first); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := svc.RemoveItem(ctx, 4, first); pkgerrors.As(err) == nil {
		t.Fatalf("expected not found on repeated remove, got %v", err)
	}

	if err := svc.Clear(ctx, 4); err != nil {
		t.Fatalf("clear: %v", err)
	}
	var count int64
	if err := db.Model(&models.CartItem{}).Where("user_id = ?", 4).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty cart, got %d lines", count)
	}
}
