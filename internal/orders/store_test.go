package orders

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/storefront/internal/loyalty"
	"github.com/example/storefront/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Membership{}, &models.Customer{}, &models.Order{}, &models.OrderItem{}, &models.PointsTransaction{}))
	return db
}

func TestGormStoreDeliveryFlow(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	suffix := uuid.NewString()[:8]
	user := models.User{Username: "u" + suffix, Email: suffix + "@example.com"}
	require.NoError(t, db.Create(&user).Error)
	customer := models.Customer{UserID: user.ID, Email: user.Email}
	require.NoError(t, db.Create(&customer).Error)

	store := NewGormStore(db)
	order := &models.Order{CustomerID: customer.ID, OrderNumber: "ORDTEST" + suffix, Status: models.OrderShipped}
	require.NoError(t, store.CreateOrder(ctx, order))

	exists, err := store.OrderNumberExists(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.True(t, exists)

	dup := &models.Order{CustomerID: customer.ID, OrderNumber: order.OrderNumber}
	assert.ErrorIs(t, store.CreateOrder(ctx, dup), ErrDuplicateOrderNumber)

	err = store.Transaction(ctx, func(tx TxStore) error {
		locked, err := tx.LockOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, order.OrderNumber, locked.OrderNumber)

		claimed, err := tx.ClaimPoints(ctx, order.ID, 123)
		require.NoError(t, err)
		assert.True(t, claimed)

		claimed, err = tx.ClaimPoints(ctx, order.ID, 50)
		require.NoError(t, err)
		assert.False(t, claimed)

		points := 123
		if err := tx.PatchCustomer(ctx, customer.ID, loyalty.Patch{Points: &points}); err != nil {
			return err
		}
		id := order.ID
		return tx.RecordPoints(ctx, &models.PointsTransaction{
			CustomerID: customer.ID, OrderID: &id, Reason: models.PointsReasonDelivery,
			Points: 123, BalanceAfter: 123, OccurredAt: time.Now(),
		})
	})
	require.NoError(t, err)

	var reloaded models.Customer
	require.NoError(t, db.First(&reloaded, customer.ID).Error)
	assert.Equal(t, 123, reloaded.Points)

	var entries int64
	require.NoError(t, db.Model(&models.PointsTransaction{}).Where("order_id = ?", order.ID).Count(&entries).Error)
	assert.Equal(t, int64(1), entries)

	err = store.Transaction(ctx, func(tx TxStore) error {
		_, err := tx.LockOrder(ctx, 0)
		return err
	})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
