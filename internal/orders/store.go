package orders

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/loyalty"
	"github.com/example/storefront/internal/models"
)

// GormStore persists orders in Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore constructs GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) OrderNumberExists(ctx context.Context, number string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("order_number = ?", number).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "count order number")
	}
	return count > 0, nil
}

func (s *GormStore) CreateOrder(ctx context.Context, order *models.Order) error {
	err := s.db.WithContext(ctx).Create(order).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateOrderNumber
	}
	return errors.Wrap(err, "insert order")
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx TxStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) LockOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "lock order")
	}
	return &order, nil
}

func (t *gormTx) UpdateOrderState(ctx context.Context, id uint, status models.OrderStatus, paid, due decimal.Decimal) error {
	err := t.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      status,
			"paid_amount": paid,
			"due_amount":  due,
			"updated_at":  time.Now(),
		}).Error
	return errors.Wrap(err, "update order state")
}

func (t *gormTx) ClaimPoints(ctx context.Context, id uint, points int) (bool, error) {
	res := t.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND points_awarded = 0", id).
		Update("points_awarded", points)
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "claim points")
	}
	return res.RowsAffected == 1, nil
}

func (t *gormTx) LockCustomer(ctx context.Context, id uint) (*models.Customer, error) {
	var customer models.Customer
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&customer, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "lock customer")
	}
	return &customer, nil
}

func (t *gormTx) ActiveMembership(ctx context.Context, tier loyalty.Tier) (*models.Membership, error) {
	var membership models.Membership
	err := t.db.WithContext(ctx).
		Where("tier = ? AND is_active = ?", string(tier), true).
		Order("id asc").
		First(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find membership")
	}
	return &membership, nil
}

func (t *gormTx) PatchCustomer(ctx context.Context, id uint, patch loyalty.Patch) error {
	cols := patch.Columns()
	if len(cols) == 0 {
		return nil
	}
	cols["updated_at"] = time.Now()
	err := t.db.WithContext(ctx).Model(&models.Customer{}).
		Where("id = ?", id).
		Updates(cols).Error
	return errors.Wrap(err, "patch customer")
}

func (t *gormTx) RecordPoints(ctx context.Context, entry *models.PointsTransaction) error {
	err := t.db.WithContext(ctx).Create(entry).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict("points already recorded for this order", err)
	}
	return errors.Wrap(err, "record points")
}
