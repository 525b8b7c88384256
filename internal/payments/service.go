package payments

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	stripelib "github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/nikhilmehra04/stylehub-backend/pkg/db/models"
	"github.com/nikhilmehra04/stylehub-backend/pkg/enums"
	pkgerrors "github.com/nikhilmehra04/stylehub-backend/pkg/errors"
	"github.com/nikhilmehra04/stylehub-backend/pkg/logger"
)

// IntentProvider abstracts the card processor. A nil provider means card
// payments are not configured for this deployment.
type IntentProvider interface {
	CreateIntent(ctx context.Context, amountCents int64, orderID, userID uint) (*stripelib.PaymentIntent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*stripelib.PaymentIntent, error)
}

// Transactor runs fn inside a database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// InitiateResult carries the payment row and, for card payments, the
// processor client secret the frontend confirms with.
type InitiateResult struct {
	Payment      *models.Payment `json:"payment"`
	ClientSecret string          `json:"client_secret,omitempty"`
}

// Service orchestrates payment initiation and verification.
type Service interface {
	Initiate(ctx context.Context, userID, orderID uint, method enums.PaymentMethod) (*InitiateResult, error)
	Verify(ctx context.Context, userID, orderID uint) (*models.Payment, error)
	GetStatus(ctx context.Context, userID, orderID uint) (*models.Payment, error)
}

type service struct {
	tx       Transactor
	repo     Repository
	provider IntentProvider
	log      *logger.Logger
}

// NewService wires the payment service. The intent provider is optional;
// without it card payments fail with a configuration error.
func NewService(tx Transactor, repo Repository, provider IntentProvider, log *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("payments: transactor is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("payments: repository is required")
	}
	if log == nil {
		return nil, fmt.Errorf("payments: logger is required")
	}
	return &service{tx: tx, repo: repo, provider: provider, log: log}, nil
}

// Initiate opens or rewrites the order's payment record. The method may
// change on re-initiation as long as no payment has completed. Card
// payments additionally open a processor intent for the order total in
// minor units.
func (s *service) Initiate(ctx context.Context, userID, orderID uint, method enums.PaymentMethod) (*InitiateResult, error) {
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment method %q", method))
	}
	if method == enums.PaymentMethodCard && s.provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodePaymentNotConfigured, "card payments are not configured")
	}

	var result *InitiateResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrderForUser(ctx, userID, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("payment cannot be initiated for a %s order", order.Status)).
				WithDetails(map[string]any{"order_id": orderID, "status": order.Status})
		}

		payment, err := repo.FindByOrder(ctx, orderID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if payment != nil && payment.Status == enums.PaymentStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment already completed for this order")
		}
		if payment == nil {
			payment = &models.Payment{OrderID: orderID}
		}

		payment.Method = method
		payment.Status = enums.PaymentStatusPending
		payment.TransactionReference = nil
		payment.PaidAt = nil

		var clientSecret string
		if method == enums.PaymentMethodCard {
			amountCents := int64(math.Round(order.TotalAmount * 100))
			intent, err := s.provider.CreateIntent(ctx, amountCents, orderID, order.UserID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
			}
			payment.TransactionReference = &intent.ID
			clientSecret = intent.ClientSecret
		}

		if err := repo.Save(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist payment")
		}
		if err := repo.AttachToOrder(ctx, orderID, payment.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach payment to order")
		}

		result = &InitiateResult{Payment: payment, ClientSecret: clientSecret}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(s.log.WithFields(ctx, map[string]any{
		"order_id": orderID,
		"method":   method,
	}), "payment initiated")
	return result, nil
}

// Verify confirms the payment and moves the order to paid. A card payment
// whose intent has not succeeded is marked failed and the external status
// reported. Verify is idempotent: a payment that already completed returns
// as-is without touching the order again.
func (s *service) Verify(ctx context.Context, userID, orderID uint) (*models.Payment, error) {
	var verified *models.Payment
	var verifyErr error

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindOrderForUser(ctx, userID, orderID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		payment, err := repo.FindByOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no payment initiated for this order")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if payment.Status == enums.PaymentStatusCompleted {
			verified = payment
			return nil
		}

		if payment.Method == enums.PaymentMethodCard {
			if err := s.verifyCard(ctx, payment); err != nil {
				typed := pkgerrors.As(err)
				if typed == nil || typed.Code() != pkgerrors.CodeVerificationFailed {
					return err
				}
				// The failed mark must outlive the rollback the error
				// would trigger, so commit it and report afterwards.
				payment.Status = enums.PaymentStatusFailed
				if saveErr := repo.Save(ctx, payment); saveErr != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, saveErr, "persist payment")
				}
				verifyErr = err
				return nil
			}
		}

		now := time.Now().UTC()
		payment.Status = enums.PaymentStatusCompleted
		payment.PaidAt = &now
		if err := repo.Save(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist payment")
		}

		affected, err := repo.MarkOrderPaid(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				"order is no longer awaiting payment").
				WithDetails(map[string]any{"order_id": orderID})
		}

		verified = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	if verifyErr != nil {
		return nil, verifyErr
	}

	s.log.Info(s.log.WithField(ctx, "order_id", orderID), "payment verified")
	return verified, nil
}

func (s *service) verifyCard(ctx context.Context, payment *models.Payment) error {
	if s.provider == nil {
		return pkgerrors.New(pkgerrors.CodePaymentNotConfigured, "card payments are not configured")
	}
	if payment.TransactionReference == nil || *payment.TransactionReference == "" {
		return pkgerrors.New(pkgerrors.CodeVerificationFailed, "payment has no processor reference")
	}

	intent, err := s.provider.RetrieveIntent(ctx, *payment.TransactionReference)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve payment intent")
	}
	if intent.Status != stripelib.PaymentIntentStatusSucceeded {
		return pkgerrors.New(pkgerrors.CodeVerificationFailed,
			"payment has not succeeded at the processor").
			WithDetails(map[string]any{"intent_status": intent.Status})
	}
	return nil
}

func (s *service) GetStatus(ctx context.Context, userID, orderID uint) (*models.Payment, error) {
	if _, err := s.repo.FindOrderForUser(ctx, userID, orderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	payment, err := s.repo.FindByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no payment initiated for this order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	return payment, nil
}
