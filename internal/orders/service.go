package orders

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/nikhilmehra04/stylehub-backend/internal/cart"
	"github.com/nikhilmehra04/stylehub-backend/internal/inventory"
	"github.com/nikhilmehra04/stylehub-backend/pkg/db/models"
	"github.com/nikhilmehra04/stylehub-backend/pkg/enums"
	pkgerrors "github.com/nikhilmehra04/stylehub-backend/pkg/errors"
	"github.com/nikhilmehra04/stylehub-backend/pkg/logger"
	"gorm.io/gorm"
)

// Transactor runs fn inside a database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// legalTransitions is the complete edge set of the order state machine.
// Cancellation edges run through the cancel path so stock release and
// payment bookkeeping always accompany them.
var legalTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending: {enums.OrderStatusPaid, enums.OrderStatusCancelled},
	enums.OrderStatusPaid:    {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped: {enums.OrderStatusDelivered},
}

// cancellableStatuses are the only states an order may be cancelled from.
var cancellableStatuses = []enums.OrderStatus{
	enums.OrderStatusPending,
	enums.OrderStatusPaid,
}

// Service exposes the order lifecycle.
type Service interface {
	CreateOrder(ctx context.Context, userID, shippingAddressID uint, method enums.PaymentMethod) (*models.Order, error)
	GetOrder(ctx context.Context, userID, orderID uint) (*models.Order, error)
	ListOrders(ctx context.Context, userID uint) ([]models.Order, error)
	CancelOrder(ctx context.Context, userID, orderID uint) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uint, target enums.OrderStatus) (*models.Order, error)
}

type service struct {
	tx     Transactor
	repo   Repository
	carts  cart.Service
	ledger inventory.Ledger
	log    *logger.Logger
}

// NewService wires the order service.
func NewService(tx Transactor, repo Repository, carts cart.Service, ledger inventory.Ledger, log *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("orders: transactor is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders: repository is required")
	}
	if carts == nil {
		return nil, fmt.Errorf("orders: cart service is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("orders: inventory ledger is required")
	}
	if log == nil {
		return nil, fmt.Errorf("orders: logger is required")
	}
	return &service{tx: tx, repo: repo, carts: carts, ledger: ledger, log: log}, nil
}

// CreateOrder turns the user's cart into a pending order in one
// transaction: snapshot, per-line stock reservation, order and item rows,
// a pending payment for the chosen method, then cart wipe. Any failure
// rolls the whole thing back, reservations and payment included.
func (s *service) CreateOrder(ctx context.Context, userID, shippingAddressID uint, method enums.PaymentMethod) (*models.Order, error) {
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment method %q", method))
	}

	var created *models.Order

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		owned, err := repo.AddressBelongsToUser(ctx, userID, shippingAddressID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify shipping address")
		}
		if !owned {
			return pkgerrors.New(pkgerrors.CodeNotFound, "shipping address not found")
		}

		snap, err := s.carts.Snapshot(ctx, tx, userID)
		if err != nil {
			return err
		}
		// A fully discounted cart legitimately totals zero; only
		// negative or non-finite amounts are corrupt.
		if snap.Total < 0 || math.IsNaN(snap.Total) || math.IsInf(snap.Total, 0) {
			return pkgerrors.New(pkgerrors.CodeInvalidTotal,
				fmt.Sprintf("computed order total %v is not a finite non-negative amount", snap.Total))
		}

		for _, line := range snap.Lines {
			if err := s.ledger.Reserve(ctx, tx, line.VariantID, line.Quantity); err != nil {
				return err
			}
		}

		order := &models.Order{
			UserID:            userID,
			TotalAmount:       snap.Total,
			Status:            enums.OrderStatusPending,
			ShippingAddressID: shippingAddressID,
			Items:             make([]models.OrderItem, 0, len(snap.Lines)),
		}
		for _, line := range snap.Lines {
			order.Items = append(order.Items, models.OrderItem{
				VariantID:       line.VariantID,
				Quantity:        line.Quantity,
				PriceAtPurchase: line.UnitPrice,
			})
		}
		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
		}

		payment := &models.Payment{
			OrderID: order.ID,
			Method:  method,
			Status:  enums.PaymentStatusPending,
		}
		if err := repo.CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist payment")
		}
		if err := repo.LinkPayment(ctx, order.ID, payment.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link payment to order")
		}
		order.PaymentID = &payment.ID
		order.Payment = payment

		if err := s.clearCart(ctx, tx, userID); err != nil {
			return err
		}

		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(s.log.WithFields(ctx, map[string]any{
		"order_id": created.ID,
		"total":    created.TotalAmount,
		"lines":    len(created.Items),
		"method":   method,
	}), "order created")
	return created, nil
}

func (s *service) clearCart(ctx context.Context, tx *gorm.DB, userID uint) error {
	err := tx.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart after order")
	}
	return nil
}

func (s *service) GetOrder(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	order, err := s.repo.FindByIDForUser(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, userID uint) ([]models.Order, error) {
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

// CancelOrder cancels a pending or paid order owned by the user.
func (s *service) CancelOrder(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	return s.cancel(ctx, func(ctx context.Context, repo Repository) (*models.Order, error) {
		return repo.FindByIDForUser(ctx, userID, orderID)
	})
}

// cancel applies the cancellation transition with its side effects: stock
// released per item, any open payment failed. The status flip is a guarded
// single-statement transition, so a second concurrent cancel loses the
// race and cannot release stock twice.
func (s *service) cancel(ctx context.Context, find func(context.Context, Repository) (*models.Order, error)) (*models.Order, error) {
	var cancelled *models.Order

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := find(ctx, repo)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		affected, err := repo.TransitionStatus(ctx, order.ID, cancellableStatuses, enums.OrderStatusCancelled)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order in status %s cannot be cancelled", order.Status)).
				WithDetails(map[string]any{"order_id": order.ID, "status": order.Status})
		}

		for _, item := range order.Items {
			if err := s.ledger.Release(ctx, tx, item.VariantID, item.Quantity); err != nil {
				return err
			}
		}

		if err := repo.MarkPaymentFailed(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fail payment on cancel")
		}

		order.Status = enums.OrderStatusCancelled
		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(s.log.WithField(ctx, "order_id", cancelled.ID), "order cancelled")
	return cancelled, nil
}

// UpdateStatus applies one legal state-machine edge without an ownership
// filter. A cancelled target runs the full cancellation with its stock and
// payment side effects.
func (s *service) UpdateStatus(ctx context.Context, orderID uint, target enums.OrderStatus) (*models.Order, error) {
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", target))
	}
	if target == enums.OrderStatusCancelled {
		return s.cancel(ctx, func(ctx context.Context, repo Repository) (*models.Order, error) {
			return repo.FindByID(ctx, orderID)
		})
	}

	sources := transitionSources(target)
	if len(sources) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("no transition leads to status %s", target))
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	affected, err := s.repo.TransitionStatus(ctx, orderID, sources, target)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order cannot move from %s to %s", order.Status, target)).
			WithDetails(map[string]any{"order_id": orderID, "from": order.Status, "to": target})
	}

	order.Status = target
	s.log.Info(s.log.WithFields(ctx, map[string]any{
		"order_id": orderID,
		"status":   target,
	}), "order status updated")
	return order, nil
}

// transitionSources lists the statuses with a legal edge into target.
func transitionSources(target enums.OrderStatus) []enums.OrderStatus {
	var sources []enums.OrderStatus
	for from, targets := range legalTransitions {
		for _, to := range targets {
			if to == target {
				sources = append(sources, from)
			}
		}
	}
	return sources
}
