package registration

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

	"github.com/example/storefront/internal/database"
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
	require.NoError(t, database.Migrate(db))
	return db
}

func TestGormStoreCodeLifecycle(t *testing.T) {
	db := openTestDB(t)
	store := NewGormStore(db)
	ctx := context.Background()
	suffix := uuid.NewString()[:8]
	email := suffix + "@example.com"
	expires := time.Now().Add(10 * time.Minute)

	_, err := store.IssueCode(ctx, email, "111111", expires)
	require.NoError(t, err)
	second, err := store.IssueCode(ctx, email, "222222", expires)
	require.NoError(t, err)

	var unused int64
	require.NoError(t, db.Model(&models.OneTimeCode{}).Where("email = ? AND used = false", email).Count(&unused).Error)
	assert.EqualValues(t, 1, unused)

	latest, err := store.LatestUnusedCode(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	pending := PendingRegistration{Username: "user" + suffix, Email: email, PasswordHash: "x"}
	account, err := store.CreateAccount(ctx, pending, latest.ID, time.Now())
	require.NoError(t, err)
	assert.NotZero(t, account.CustomerID)

	taken, err := store.EmailTaken(ctx, email)
	require.NoError(t, err)
	assert.True(t, taken)

	_, err = store.CreateAccount(ctx, pending, latest.ID, time.Now())
	assert.ErrorIs(t, err, ErrCodeConsumed)

	_, err = store.LatestUnusedCode(ctx, email)
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestGormStoreRejectsCaseVariantAccounts(t *testing.T) {
	db := openTestDB(t)
	store := NewGormStore(db)
	ctx := context.Background()
	suffix := uuid.NewString()[:8]
	expires := time.Now().Add(10 * time.Minute)

	register := func(username, email string) error {
		code, err := store.IssueCode(ctx, email, "123456", expires)
		require.NoError(t, err)
		pending := PendingRegistration{Username: username, Email: email, PasswordHash: "x"}
		_, err = store.CreateAccount(ctx, pending, code.ID, time.Now())
		return err
	}

	require.NoError(t, register("Bob"+suffix, "bob"+suffix+"@example.com"))
	assert.ErrorIs(t, register("bob"+suffix, "other"+suffix+"@example.com"), ErrDuplicateAccount)
	assert.ErrorIs(t, register("carol"+suffix, "BOB"+suffix+"@example.com"), ErrDuplicateAccount)
}
