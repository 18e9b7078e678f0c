package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/loyalty"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/utils"
	"github.com/example/storefront/internal/validation"
)

// ProfileHandler manages customer profile endpoints.
type ProfileHandler struct {
	db *gorm.DB
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{db: db}
}

// GetProfile returns the user with its loyalty standing.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	customer, err := currentCustomer(c, h.db)
	if err != nil {
		return err
	}

	var user models.User
	if err := h.db.WithContext(c.UserContext()).First(&user, "id = ?", customer.UserID).Error; err != nil {
		return dbError(err, "user")
	}

	level := loyalty.LevelFor(customer.Points)
	standing := fiber.Map{
		"points":              customer.Points,
		"tier":                level.Tier,
		"discount_percentage": customer.PointsDiscountPercentage,
		"membership":          customer.Membership,
	}
	for _, next := range loyalty.Levels() {
		if next.MinPoints > customer.Points {
			standing["next_tier"] = next.Tier
			standing["points_to_next_tier"] = next.MinPoints - customer.Points
			break
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"user":     user,
			"customer": customer,
			"loyalty":  standing,
		},
	})
}

type updateProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=30"`
	LastName  *string `json:"last_name" validate:"omitempty,max=30"`
	Phone     *string `json:"phone" validate:"omitempty,max=15"`
}

// UpdateProfile updates name and phone.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	customer, err := currentCustomer(c, h.db)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}

	userUpdates := map[string]interface{}{}
	if req.FirstName != nil {
		userUpdates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		userUpdates["last_name"] = *req.LastName
	}
	customerUpdates := map[string]interface{}{}
	if req.Phone != nil {
		customerUpdates["phone"] = *req.Phone
	}
	if len(userUpdates) == 0 && len(customerUpdates) == 0 {
		return apperr.Validation("no fields to update")
	}

	err = h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if len(userUpdates) > 0 {
			userUpdates["updated_at"] = now
			if err := tx.Model(&models.User{}).Where("id = ?", customer.UserID).Updates(userUpdates).Error; err != nil {
				return err
			}
		}
		if len(customerUpdates) > 0 {
			customerUpdates["updated_at"] = now
			if err := tx.Model(&models.Customer{}).Where("id = ?", customer.ID).Updates(customerUpdates).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperr.Internal(err)
	}

	return c.JSON(fiber.Map{"success": true, "message": "profile updated"})
}

// ListMemberships returns the active loyalty tiers.
func (h *ProfileHandler) ListMemberships(c *fiber.Ctx) error {
	var memberships []models.Membership
	if err := h.db.WithContext(c.UserContext()).
		Where("is_active = ?", true).
		Order("discount_percentage asc, id asc").
		Find(&memberships).Error; err != nil {
		return apperr.Internal(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": memberships})
}

// ListPointsHistory returns the authenticated customer's points ledger.
func (h *ProfileHandler) ListPointsHistory(c *fiber.Ctx) error {
	customer, err := currentCustomer(c, h.db)
	if err != nil {
		return err
	}

	pg := utils.ParsePagination(c)
	query := h.db.WithContext(c.UserContext()).Model(&models.PointsTransaction{}).Where("customer_id = ?", customer.ID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return apperr.Internal(err)
	}

	var entries []models.PointsTransaction
	if err := query.Order("occurred_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&entries).Error; err != nil {
		return apperr.Internal(err)
	}

	return paginated(c, entries, pg, total)
}

// Address endpoints

// ListAddresses returns user addresses.
func (h *ProfileHandler) ListAddresses(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return apperr.Unauthorized("unauthorized")
	}

	var addresses []models.Address
	if err := h.db.WithContext(c.UserContext()).
		Where("user_id = ?", userID).
		Order("is_default desc, created_at asc").
		Find(&addresses).Error; err != nil {
		return apperr.Internal(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": addresses})
}

type addressRequest struct {
	Country     string `json:"country" validate:"required,max=100"`
	City        string `json:"city" validate:"required,max=100"`
	State       string `json:"state" validate:"max=100"`
	PostalCode  string `json:"postal_code" validate:"required,max=20"`
	AddressLine string `json:"address_line" validate:"required,max=255"`
	IsDefault   bool   `json:"is_default"`
}

// clearDefault unsets the default flag on the user's other addresses.
func clearDefault(tx *gorm.DB, userID interface{}) error {
	return tx.Model(&models.Address{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error
}

// CreateAddress creates an address for the user.
func (h *ProfileHandler) CreateAddress(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return apperr.Unauthorized("unauthorized")
	}

	var req addressRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}

	address := models.Address{
		UserID:      userID,
		Country:     req.Country,
		City:        req.City,
		State:       req.State,
		PostalCode:  req.PostalCode,
		AddressLine: req.AddressLine,
		IsDefault:   req.IsDefault,
	}

	err := h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if address.IsDefault {
			if err := clearDefault(tx, userID); err != nil {
				return err
			}
		}
		return tx.Create(&address).Error
	})
	if err != nil {
		return apperr.Internal(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": address})
}

// UpdateAddress replaces a user address.
func (h *ProfileHandler) UpdateAddress(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return apperr.Unauthorized("unauthorized")
	}

	addrID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var req addressRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}

	var address models.Address
	err = h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&address, "id = ? AND user_id = ?", addrID, userID).Error; err != nil {
			return err
		}
		if req.IsDefault && !address.IsDefault {
			if err := clearDefault(tx, userID); err != nil {
				return err
			}
		}
		return tx.Model(&address).Updates(map[string]interface{}{
			"country":      req.Country,
			"city":         req.City,
			"state":        req.State,
			"postal_code":  req.PostalCode,
			"address_line": req.AddressLine,
			"is_default":   req.IsDefault,
		}).Error
	})
	if err != nil {
		return dbError(err, "address")
	}

	return c.JSON(fiber.Map{"success": true, "data": address})
}

// DeleteAddress removes a user address.
func (h *ProfileHandler) DeleteAddress(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return apperr.Unauthorized("unauthorized")
	}

	addrID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	res := h.db.WithContext(c.UserContext()).
		Where("id = ? AND user_id = ?", addrID, userID).
		Delete(&models.Address{})
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("address not found")
	}

	return c.JSON(fiber.Map{"success": true, "message": "address deleted"})
}
