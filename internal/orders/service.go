package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/events"
	"github.com/example/storefront/internal/loyalty"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/telemetry"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrCustomerNotFound     = errors.New("customer not found")
	ErrDuplicateOrderNumber = errors.New("order number already taken")
)

// Store is the persistence the service needs outside a transaction.
type Store interface {
	OrderNumberExists(ctx context.Context, number string) (bool, error)
	// CreateOrder inserts the order with its items. It returns
	// ErrDuplicateOrderNumber when the number is already taken.
	CreateOrder(ctx context.Context, order *models.Order) error
	Transaction(ctx context.Context, fn func(tx TxStore) error) error
}

// TxStore is the persistence available inside a status-change transaction.
type TxStore interface {
	// LockOrder reads the order row for update.
	LockOrder(ctx context.Context, id uint) (*models.Order, error)
	UpdateOrderState(ctx context.Context, id uint, status models.OrderStatus, paid, due decimal.Decimal) error
	// ClaimPoints records points on an order whose points_awarded is still 0.
	// It reports false when another writer got there first.
	ClaimPoints(ctx context.Context, id uint, points int) (bool, error)
	LockCustomer(ctx context.Context, id uint) (*models.Customer, error)
	// ActiveMembership returns the lowest-id active membership for tier, or nil.
	ActiveMembership(ctx context.Context, tier loyalty.Tier) (*models.Membership, error)
	PatchCustomer(ctx context.Context, id uint, patch loyalty.Patch) error
	// RecordPoints appends an entry to the customer's points ledger.
	RecordPoints(ctx context.Context, entry *models.PointsTransaction) error
}

// Notifier receives operator notifications. Failures are logged only.
type Notifier interface {
	OrderPlaced(ctx context.Context, order *models.Order) error
	OrderDelivered(ctx context.Context, order *models.Order, points int) error
}

// StatusChange requests a move of one order to a new status.
type StatusChange struct {
	OrderID    uint
	Status     models.OrderStatus
	PaidAmount *decimal.Decimal
}

// StatusResult describes a committed status change.
type StatusResult struct {
	Order          *models.Order
	PreviousStatus models.OrderStatus
	PointsAwarded  int
	// Customer is set when points were credited.
	Customer *models.Customer
}

// Service runs order placement and status changes.
type Service struct {
	store     Store
	publisher events.Publisher
	notifier  Notifier
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source used for order numbers.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the order service. publisher and notifier may be nil.
func NewService(store Store, publisher events.Publisher, notifier Notifier, logger zerolog.Logger, opts ...Option) *Service {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	s := &Service{
		store:     store,
		publisher: publisher,
		notifier:  notifier,
		logger:    telemetry.Component(logger, "orders"),
		tracer:    otel.Tracer("storefront/orders"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Place assigns the next free order number for the customer and day, then
// inserts the order. A number lost to a concurrent insert moves the probe on
// to the next sequence.
func (s *Service) Place(ctx context.Context, order *models.Order) error {
	ctx, span := s.tracer.Start(ctx, "orders.Place")
	defer span.End()

	now := s.now()
	if order.Status == "" {
		order.Status = models.OrderPending
	}
	if order.PlacedAt.IsZero() {
		order.PlacedAt = now
	}

	for seq := 1; seq <= MaxSequence; seq++ {
		number := FormatNumber(now, order.CustomerID, seq)

		exists, err := s.store.OrderNumberExists(ctx, number)
		if err != nil {
			return s.fail(span, apperr.Internal(err))
		}
		if exists {
			continue
		}

		order.OrderNumber = number
		err = s.store.CreateOrder(ctx, order)
		if errors.Is(err, ErrDuplicateOrderNumber) {
			telemetry.OrderNumberConflicts.Inc()
			s.logger.Debug().Str("order_number", number).Msg("order number taken at insert, probing next")
			resetForRetry(order)
			continue
		}
		if err != nil {
			return s.fail(span, apperr.Internal(err))
		}

		telemetry.OrdersPlaced.Inc()
		span.SetAttributes(attribute.String("order.number", number))
		s.logger.Info().
			Uint("order_id", order.ID).
			Str("order_number", number).
			Uint("customer_id", order.CustomerID).
			Msg("order placed")

		if s.notifier != nil {
			placed := *order
			go func() {
				if err := s.notifier.OrderPlaced(context.Background(), &placed); err != nil {
					s.logger.Warn().Err(err).Str("order_number", placed.OrderNumber).Msg("new order notification failed")
				}
			}()
		}
		return nil
	}

	return s.fail(span, apperr.Conflict(
		fmt.Sprintf("no order number left for customer %d today", order.CustomerID), nil))
}

func resetForRetry(order *models.Order) {
	order.ID = 0
	for i := range order.Items {
		order.Items[i].ID = 0
		order.Items[i].OrderID = 0
	}
}

// ChangeStatus moves an order to a new status. The first move into delivered
// credits floor(paid*10) points to the owning customer in the same
// transaction and refreshes the customer's tier.
func (s *Service) ChangeStatus(ctx context.Context, change StatusChange) (*StatusResult, error) {
	ctx, span := s.tracer.Start(ctx, "orders.ChangeStatus", trace.WithAttributes(
		attribute.Int64("order.id", int64(change.OrderID)),
		attribute.String("order.status", string(change.Status)),
	))
	defer span.End()

	if !Valid(change.Status) {
		return nil, s.fail(span, apperr.ValidationFields("invalid status",
			map[string]string{"status": fmt.Sprintf("unknown status %q", change.Status)}))
	}
	if change.PaidAmount != nil && change.PaidAmount.IsNegative() {
		return nil, s.fail(span, apperr.ValidationFields("invalid paid amount",
			map[string]string{"paid_amount": "must not be negative"}))
	}

	result := &StatusResult{}
	err := s.store.Transaction(ctx, func(tx TxStore) error {
		order, err := tx.LockOrder(ctx, change.OrderID)
		if errors.Is(err, ErrOrderNotFound) {
			return apperr.NotFound("order not found")
		}
		if err != nil {
			return err
		}

		prev := Snapshot{Status: order.Status, PointsAwarded: order.PointsAwarded}
		if !CanTransition(prev.Status, change.Status) {
			return apperr.Validation(fmt.Sprintf("cannot move order from %s to %s", prev.Status, change.Status))
		}

		paid := order.PaidAmount
		if change.PaidAmount != nil {
			paid = *change.PaidAmount
		}
		due := Due(order.TotalAmount, paid)

		if err := tx.UpdateOrderState(ctx, order.ID, change.Status, paid, due); err != nil {
			return err
		}
		order.Status = change.Status
		order.PaidAmount = paid
		order.DueAmount = due
		result.Order = order
		result.PreviousStatus = prev.Status

		points := PointsToAward(prev, change.Status, paid)
		if points == 0 {
			return nil
		}

		claimed, err := tx.ClaimPoints(ctx, order.ID, points)
		if err != nil {
			return err
		}
		if !claimed {
			return apperr.Conflict("points already awarded for this order", nil)
		}
		order.PointsAwarded = points
		result.PointsAwarded = points

		customer, err := s.credit(ctx, tx, order, points)
		if err != nil {
			return err
		}
		result.Customer = customer
		return nil
	})
	if err != nil {
		if _, ok := apperr.As(err); !ok {
			err = apperr.Internal(err)
		}
		return nil, s.fail(span, err)
	}

	s.afterCommit(ctx, result)
	return result, nil
}

// credit applies points to a locked customer row and moves it to the tier
// the new total falls in. Only changed columns are written.
func (s *Service) credit(ctx context.Context, tx TxStore, order *models.Order, points int) (*models.Customer, error) {
	customer, err := tx.LockCustomer(ctx, order.CustomerID)
	if errors.Is(err, ErrCustomerNotFound) {
		return nil, apperr.NotFound("customer not found")
	}
	if err != nil {
		return nil, err
	}

	before := loyalty.Account{
		Points:             customer.Points,
		MembershipID:       customer.MembershipID,
		DiscountPercentage: customer.PointsDiscountPercentage,
	}
	after, level := before.Add(points)

	membership, err := tx.ActiveMembership(ctx, level.Tier)
	if err != nil {
		return nil, err
	}
	after.MembershipID = nil
	if membership != nil {
		after.MembershipID = &membership.ID
	} else {
		s.logger.Warn().Str("tier", string(level.Tier)).Msg("no active membership for tier, keeping current membership")
	}

	patch := loyalty.Diff(before, after)
	if patch.Empty() {
		return customer, nil
	}
	if err := tx.PatchCustomer(ctx, customer.ID, patch); err != nil {
		return nil, err
	}

	applied := patch.Apply(before)
	orderID := order.ID
	if err := tx.RecordPoints(ctx, &models.PointsTransaction{
		CustomerID:   customer.ID,
		OrderID:      &orderID,
		OrderNumber:  order.OrderNumber,
		Reason:       models.PointsReasonDelivery,
		Points:       points,
		BalanceAfter: applied.Points,
		OccurredAt:   s.now(),
	}); err != nil {
		return nil, err
	}

	customer.Points = applied.Points
	customer.MembershipID = applied.MembershipID
	customer.PointsDiscountPercentage = applied.DiscountPercentage
	if membership != nil {
		customer.Membership = membership
	}
	return customer, nil
}

func (s *Service) afterCommit(ctx context.Context, result *StatusResult) {
	order := result.Order
	telemetry.OrderStatusChanges.WithLabelValues(string(order.Status)).Inc()
	if result.PointsAwarded > 0 {
		telemetry.PointsAwarded.Add(float64(result.PointsAwarded))
	}

	s.logger.Info().
		Uint("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Str("from", string(result.PreviousStatus)).
		Str("to", string(order.Status)).
		Int("points_awarded", result.PointsAwarded).
		Msg("order status changed")

	if result.PreviousStatus == order.Status && result.PointsAwarded == 0 {
		return
	}

	evt := events.OrderStatusChanged{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerID:    order.CustomerID,
		From:          string(result.PreviousStatus),
		To:            string(order.Status),
		PointsAwarded: result.PointsAwarded,
		OccurredAt:    s.now().UTC(),
	}
	if err := s.publisher.PublishOrderStatusChanged(ctx, evt); err != nil {
		s.logger.Error().Err(err).Str("order_number", order.OrderNumber).Msg("failed to publish status change")
	}

	if s.notifier != nil && order.Status == models.OrderDelivered && result.PreviousStatus != models.OrderDelivered {
		delivered := *order
		points := result.PointsAwarded
		go func() {
			if err := s.notifier.OrderDelivered(context.Background(), &delivered, points); err != nil {
				s.logger.Warn().Err(err).Str("order_number", delivered.OrderNumber).Msg("delivery notification failed")
			}
		}()
	}
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
