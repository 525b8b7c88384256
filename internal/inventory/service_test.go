package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/nikhilmehra04/stylehub-backend/pkg/db/models"
	pkgerrors "github.com/nikhilmehra04/stylehub-backend/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.ProductVariant{}); err != nil {
		t.Fatalf("migrate variants: %v", err)
	}
	return db
}

func seedVariant(t *testing.T, db *gorm.DB, stock int) uint {
	t.Helper()
	variant := models.ProductVariant{ProductID: 1, Size: "M", Color: "black", Stock: stock}
	if err := db.Create(&variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	return variant.ID
}

func loadStock(t *testing.T, db *gorm.DB, variantID uint) int {
	t.Helper()
	var variant models.ProductVariant
	if err := db.First(&variant, "id = ?", variantID).Error; err != nil {
		t.Fatalf("load variant: %v", err)
	}
	return variant.Stock
}

func TestReserveDecrementsStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	variantID := seedVariant(t, db, 5)
	ledger := NewLedger(db)

	if err := ledger.Reserve(ctx, nil, variantID, 3); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if got := loadStock(t, db, variantID); got != 2 {
		t.Fatalf("expected stock 2, got %d", got)
	}
}

func TestReserveRejectsOverdraw(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	variantID := seedVariant(t, db, 2)
	ledger := NewLedger(db)

	err := ledger.Reserve(ctx, nil, variantID, 3)
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := loadStock(t, db, variantID); got != 2 {
		t.Fatalf("stock mutated on rejected reserve: %d", got)
	}
}

func TestReserveUnknownVariant(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := NewLedger(db)

	err := ledger.Reserve(context.Background(), nil, 999, 1)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReserveInvalidQuantity(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	variantID := seedVariant(t, db, 5)
	ledger := NewLedger(db)

	err := ledger.Reserve(context.Background(), nil, variantID, 0)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReleaseRestoresStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	variantID := seedVariant(t, db, 5)
	ledger := NewLedger(db)

	if err := ledger.Reserve(ctx, nil, variantID, 4); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := ledger.Release(ctx, nil, variantID, 4); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got := loadStock(t, db, variantID); got != 5 {
		t.Fatalf("expected stock 5 after release, got %d", got)
	}
}

func TestCheckAvailable(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	variantID := seedVariant(t, db, 3)
	ledger := NewLedger(db)

	ok, err := ledger.CheckAvailable(ctx, nil, variantID, 3)
	if err != nil || !ok {
		t.Fatalf("expected available, got ok=%v err=%v", ok, err)
	}
	ok, err = ledger.CheckAvailable(ctx, nil, variantID, 4)
	if err != nil || ok {
		t.Fatalf("expected unavailable, got ok=%v err=%v", ok, err)
	}
}

func TestReserveSequenceNeverNegative(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	variantID := seedVariant(t, db, 5)
	ledger := NewLedger(db)

	// 5 - 3 = 2; second reserve of 3 must fail entirely.
	if err := ledger.Reserve(ctx, nil, variantID, 3); err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	err := ledger.Reserve(ctx, nil, variantID, 3)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := loadStock(t, db, variantID); got != 2 {
		t.Fatalf("expected stock 2, got %d", got)
	}
}
