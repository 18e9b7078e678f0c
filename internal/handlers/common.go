package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/utils"
)

func paginated(c *fiber.Ctx, data any, pg utils.Pagination, total int64) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
			"total_pages":    pg.TotalPages(total),
		},
	})
}

func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.ValidationFields("invalid id", map[string]string{name: "must be a uuid"})
	}
	return id, nil
}

func uintParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.ValidationFields("invalid id", map[string]string{name: "must be a positive integer"})
	}
	return uint(id), nil
}

// dbError converts a gorm error, naming the missing entity on not found.
func dbError(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound(entity + " not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Conflict(entity+" already exists", err)
	default:
		return apperr.Internal(err)
	}
}

// currentCustomer loads the authenticated user's customer profile.
func currentCustomer(c *fiber.Ctx, db *gorm.DB) (*models.Customer, error) {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return nil, apperr.Unauthorized("unauthorized")
	}

	var customer models.Customer
	err := db.WithContext(c.UserContext()).
		Preload("Membership").
		First(&customer, "user_id = ?", userID).Error
	if err != nil {
		return nil, dbError(err, "customer")
	}
	return &customer, nil
}
