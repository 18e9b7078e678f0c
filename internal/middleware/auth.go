package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/utils"
)

const userContextKey = "currentUserID"

// AuthMiddleware validates JWT tokens and loads the authenticated user ID into context.
func AuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return apperr.Unauthorized("missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return apperr.Unauthorized("invalid authorization header")
		}

		userID, err := utils.ParseToken(secret, parts[1])
		if err != nil {
			return apperr.Unauthorized("invalid token")
		}

		c.Locals(userContextKey, userID)
		return c.Next()
	}
}

// StaffLookup reports whether a user may use the admin console.
type StaffLookup func(c *fiber.Ctx, userID uuid.UUID) (bool, error)

// GormStaffLookup checks User.IsStaff.
func GormStaffLookup(db *gorm.DB) StaffLookup {
	return func(c *fiber.Ctx, userID uuid.UUID) (bool, error) {
		var user models.User
		err := db.WithContext(c.UserContext()).Select("id", "is_staff", "is_active").First(&user, "id = ?", userID).Error
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return user.IsActive && user.IsStaff, nil
	}
}

// RequireStaff rejects authenticated users who are not staff. It must run
// after AuthMiddleware.
func RequireStaff(lookup StaffLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := GetCurrentUserID(c)
		if !ok {
			return apperr.Unauthorized("unauthorized")
		}
		staff, err := lookup(c, userID)
		if err != nil {
			return apperr.Internal(err)
		}
		if !staff {
			return fiber.NewError(fiber.StatusForbidden, "staff access required")
		}
		return c.Next()
	}
}

// GetCurrentUserID extracts the authenticated user ID from context.
func GetCurrentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	value := c.Locals(userContextKey)
	if value == nil {
		return uuid.Nil, false
	}

	if id, ok := value.(uuid.UUID); ok {
		return id, true
	}

	return uuid.Nil, false
}
