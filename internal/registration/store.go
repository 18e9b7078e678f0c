package registration

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/loyalty"
	"github.com/example/storefront/internal/models"
)

// GormStore keeps codes and accounts in Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore constructs GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(username) = ?", strings.ToLower(username)).
		Count(&count).Error
	return count > 0, errors.Wrap(err, "count username")
}

func (s *GormStore) EmailTaken(ctx context.Context, email string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		Count(&count).Error
	return count > 0, errors.Wrap(err, "count email")
}

func (s *GormStore) IssueCode(ctx context.Context, email, code string, expiresAt time.Time) (*models.OneTimeCode, error) {
	rec := &models.OneTimeCode{Email: email, Code: code, ExpiresAt: expiresAt}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.OneTimeCode{}).
			Where("email = ? AND used = ?", email, false).
			Update("used", true).Error; err != nil {
			return errors.Wrap(err, "invalidate previous codes")
		}
		return errors.Wrap(tx.Create(rec).Error, "insert code")
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *GormStore) LatestUnusedCode(ctx context.Context, email string) (*models.OneTimeCode, error) {
	var rec models.OneTimeCode
	err := s.db.WithContext(ctx).
		Where("email = ? AND used = ?", email, false).
		Order("created_at desc").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find code")
	}
	return &rec, nil
}

func (s *GormStore) InvalidateCode(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Model(&models.OneTimeCode{}).
		Where("id = ?", id).
		Update("used", true).Error
	return errors.Wrap(err, "invalidate code")
}

func (s *GormStore) CreateAccount(ctx context.Context, pending PendingRegistration, codeID uuid.UUID, now time.Time) (*Account, error) {
	var account *Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.OneTimeCode{}).
			Where("id = ? AND used = ?", codeID, false).
			Updates(map[string]any{"used": true, "used_at": now})
		if res.Error != nil {
			return errors.Wrap(res.Error, "consume code")
		}
		if res.RowsAffected == 0 {
			return ErrCodeConsumed
		}

		user := models.User{
			FirstName:    pending.FirstName,
			LastName:     pending.LastName,
			Username:     pending.Username,
			Email:        pending.Email,
			PasswordHash: pending.PasswordHash,
			IsActive:     true,
		}
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateAccount
			}
			return errors.Wrap(err, "create user")
		}

		customer := models.Customer{
			UserID:   user.ID,
			Name:     strings.TrimSpace(pending.FirstName + " " + pending.LastName),
			Email:    pending.Email,
			IsActive: true,
		}
		var bronze models.Membership
		err := tx.Where("tier = ? AND is_active = ?", string(loyalty.Bronze), true).
			Order("id asc").
			First(&bronze).Error
		switch {
		case err == nil:
			customer.MembershipID = &bronze.ID
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return errors.Wrap(err, "find starting membership")
		}

		if err := tx.Create(&customer).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateAccount
			}
			return errors.Wrap(err, "create customer")
		}

		account = &Account{UserID: user.ID, CustomerID: customer.ID, Username: user.Username, Email: user.Email}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}
