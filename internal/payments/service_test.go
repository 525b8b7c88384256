package payments

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	stripelib "github.com/stripe/stripe-go/v84"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nikhilmehra04/stylehub-backend/pkg/db/models"
	"github.com/nikhilmehra04/stylehub-backend/pkg/enums"
	pkgerrors "github.com/nikhilmehra04/stylehub-backend/pkg/errors"
	"github.com/nikhilmehra04/stylehub-backend/pkg/logger"
)

type gormTransactor struct {
	db *gorm.DB
}

func (g gormTransactor) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

type stubProvider struct {
	createIntent   func(ctx context.Context, amountCents int64, orderID, userID uint) (*stripelib.PaymentIntent, error)
	retrieveIntent func(ctx context.Context, intentID string) (*stripelib.PaymentIntent, error)
}

func (s *stubProvider) CreateIntent(ctx context.Context, amountCents int64, orderID, userID uint) (*stripelib.PaymentIntent, error) {
	if s.createIntent == nil {
		return nil, errors.New("unexpected CreateIntent call")
	}
	return s.createIntent(ctx, amountCents, orderID, userID)
}

func (s *stubProvider) RetrieveIntent(ctx context.Context, intentID string) (*stripelib.PaymentIntent, error) {
	if s.retrieveIntent == nil {
		return nil, errors.New("unexpected RetrieveIntent call")
	}
	return s.retrieveIntent(ctx, intentID)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:payments_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Order{}, &models.OrderItem{}, &models.Payment{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, provider IntentProvider) Service {
	t.Helper()
	log := logger.New(logger.Options{ServiceName: "payments-test", Output: io.Discard})
	svc, err := NewService(gormTransactor{db: db}, NewRepository(db), provider, log)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func seedOrder(t *testing.T, db *gorm.DB, userID uint, total float64, status enums.OrderStatus) uint {
	t.Helper()
	order := models.Order{UserID: userID, TotalAmount: total, Status: status, ShippingAddressID: 1}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order.ID
}

func loadOrder(t *testing.T, db *gorm.DB, orderID uint) models.Order {
	t.Helper()
	var order models.Order
	if err := db.First(&order, "id = ?", orderID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	return order
}

func TestInitiateCODCreatesPendingPayment(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	ctx := context.Background()
	orderID := seedOrder(t, db, 1, 99.50, enums.OrderStatusPending)

	res, err := svc.Initiate(ctx, 1, orderID, enums.PaymentMethodCOD)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if res.Payment.Status != enums.PaymentStatusPending || res.Payment.Method != enums.PaymentMethodCOD {
		t.Fatalf("unexpected payment: %+v", res.Payment)
	}
	if res.ClientSecret != "" {
		t.Fatalf("client secret leaked for cod: %q", res.ClientSecret)
	}

	order := loadOrder(t, db, orderID)
	if order.PaymentID == nil || *order.PaymentID != res.Payment.ID {
		t.Fatalf("payment not attached to order: %+v", order.PaymentID)
	}
}

func TestInitiateRewritesMethodUntilCompleted(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	ctx := context.Background()
	orderID := seedOrder(t, db, 1, 40, enums.OrderStatusPending)

	first, err := svc.Initiate(ctx, 1, orderID, enums.PaymentMethodUPI)
	if err != nil {
		t.Fatalf("first initiate: %v", err)
	}
	second, err := svc.Initiate(ctx, 1, orderID, enums.PaymentMethodNetBanking)
	if err != nil {
		t.Fatalf("second initiate: %v", err)
	}
	if second.Payment.ID != first.Payment.ID {
		t.Fatalf("expected single payment row, got %d then %d", first.Payment.ID, second.Payment.ID)
	}
	if second.Payment.Method != enums.PaymentMethodNetBanking {
		t.Fatalf("method = %s, want net_banking", second.Payment.Method)
	}

	if _, err := svc.Verify(ctx, 1, orderID); err != nil {
		t.Fatalf("verify: %v", err)
	}
	_, err = svc.Initiate(ctx, 1, orderID, enums.PaymentMethodUPI)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInitiateRejectsNonPendingOrder(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	orderID := seedOrder(t, db, 1, 40, enums.OrderStatusShipped)

	_, err := svc.Initiate(context.Background(), 1, orderID, enums.PaymentMethodCOD)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInitiateCardWithoutProvider(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	orderID := seedOrder(t, db, 1, 40, enums.OrderStatusPending)

	_, err := svc.Initiate(context.Background(), 1, orderID, enums.PaymentMethodCard)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodePaymentNotConfigured {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInitiateCardOpensIntentInMinorUnits(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	var gotAmount int64
	provider := &stubProvider{
		createIntent: func(ctx context.Context, amountCents int64, orderID, userID uint) (*stripelib.PaymentIntent, error) {
			gotAmount = amountCents
			return &stripelib.PaymentIntent{ID: "pi_123", ClientSecret: "cs_123"}, nil
		},
	}
	svc := newTestService(t, db, provider)
	orderID := seedOrder(t, db, 1, 123.45, enums.OrderStatusPending)

	res, err := svc.Initiate(context.Background(), 1, orderID, enums.PaymentMethodCard)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if gotAmount != 12345 {
		t.Fatalf("amount = %d cents, want 12345", gotAmount)
	}
	if res.ClientSecret != "cs_123" {
		t.Fatalf("client secret = %q", res.ClientSecret)
	}
	if res.Payment.TransactionReference == nil || *res.Payment.TransactionReference != "pi_123" {
		t.Fatalf("reference not stored: %+v", res.Payment.TransactionReference)
	}
}

func TestVerifyNonCardMarksOrderPaid(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	ctx := context.Background()
	orderID := seedOrder(t, db, 1, 40, enums.OrderStatusPending)

	if _, err := svc.Initiate(ctx, 1, orderID, enums.PaymentMethodUPI); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	payment, err := svc.Verify(ctx, 1, orderID)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if payment.Status != enums.PaymentStatusCompleted || payment.PaidAt == nil {
		t.Fatalf("unexpected payment: %+v", payment)
	}
	if got := loadOrder(t, db, orderID).Status; got != enums.OrderStatusPaid {
		t.Fatalf("order status = %s, want paid", got)
	}

	// A second verify is a no-op, not an error.
	again, err := svc.Verify(ctx, 1, orderID)
	if err != nil {
		t.Fatalf("repeat verify: %v", err)
	}
	if !again.PaidAt.Equal(*payment.PaidAt) {
		t.Fatalf("repeat verify mutated PaidAt: %v vs %v", again.PaidAt, payment.PaidAt)
	}
}

func TestVerifyCardChecksIntentStatus(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	intentStatus := stripelib.PaymentIntentStatusRequiresPaymentMethod
	provider := &stubProvider{
		createIntent: func(ctx context.Context, amountCents int64, orderID, userID uint) (*stripelib.PaymentIntent, error) {
			return &stripelib.PaymentIntent{ID: "pi_9", ClientSecret: "cs_9"}, nil
		},
		retrieveIntent: func(ctx context.Context, intentID string) (*stripelib.PaymentIntent, error) {
			return &stripelib.PaymentIntent{ID: intentID, Status: intentStatus}, nil
		},
	}
	svc := newTestService(t, db, provider)
	ctx := context.Background()
	orderID := seedOrder(t, db, 1, 40, enums.OrderStatusPending)

	if _, err := svc.Initiate(ctx, 1, orderID, enums.PaymentMethodCard); err != nil {
		t.Fatalf("initiate: %v", err)
	}

	_, err := svc.Verify(ctx, 1, orderID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeVerificationFailed {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := loadOrder(t, db, orderID).Status; got != enums.OrderStatusPending {
		t.Fatalf("failed verification advanced order to %s", got)
	}
	var failed models.Payment
	if err := db.First(&failed, "order_id = ?", orderID).Error; err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if failed.Status != enums.PaymentStatusFailed {
		t.Fatalf("payment status = %s, want failed", failed.Status)
	}

	intentStatus = stripelib.PaymentIntentStatusSucceeded
	if _, err := svc.Verify(ctx, 1, orderID); err != nil {
		t.Fatalf("verify after success: %v", err)
	}
	if got := loadOrder(t, db, orderID).Status; got != enums.OrderStatusPaid {
		t.Fatalf("order status = %s, want paid", got)
	}
}

func TestVerifyWithoutInitiation(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	orderID := seedOrder(t, db, 1, 40, enums.OrderStatusPending)

	_, err := svc.Verify(context.Background(), 1, orderID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVerifyAfterCancelRejected(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	ctx := context.Background()
	orderID := seedOrder(t, db, 1, 40, enums.OrderStatusPending)

	if _, err := svc.Initiate(ctx, 1, orderID, enums.PaymentMethodUPI); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if err := db.Model(&models.Order{}).Where("id = ?", orderID).
		Update("status", enums.OrderStatusCancelled).Error; err != nil {
		t.Fatalf("cancel order: %v", err)
	}

	_, err := svc.Verify(ctx, 1, orderID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGetStatus(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	ctx := context.Background()
	orderID := seedOrder(t, db, 1, 40, enums.OrderStatusPending)

	_, err := svc.GetStatus(ctx, 1, orderID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Initiate(ctx, 1, orderID, enums.PaymentMethodCOD); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	payment, err := svc.GetStatus(ctx, 1, orderID)
	if err != nil || payment.Method != enums.PaymentMethodCOD {
		t.Fatalf("status = %+v err = %v", payment, err)
	}

	_, err = svc.GetStatus(ctx, 2, orderID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}
