package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/validation"
)

// CartHandler manages the customer's cart and wishlist.
type CartHandler struct {
	db *gorm.DB
}

// NewCartHandler constructs CartHandler.
func NewCartHandler(db *gorm.DB) *CartHandler {
	return &CartHandler{db: db}
}

func (h *CartHandler) cartFor(c *fiber.Ctx, customerID uint) (*models.Cart, error) {
	cart := models.Cart{CustomerID: customerID}
	err := h.db.WithContext(c.UserContext()).
		Where(models.Cart{CustomerID: customerID}).
		FirstOrCreate(&cart).Error
	return &cart, err
}

func (h *CartHandler) renderCart(c *fiber.Ctx, cartID uuid.UUID) error {
	var cart models.Cart
	if err := h.db.WithContext(c.UserContext()).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		Preload("Items.Product").
		First(&cart, "id = ?", cartID).Error; err != nil {
		return dbError(err, "cart")
	}
	return c.JSON(fiber.Map{"success": true, "data": cart})
}

// GetCart returns the cart with its items.
func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	customer, err := currentCustomer(c, h.db)
	if err != nil {
		return err
	}
	cart, err := h.cartFor(c, customer.ID)
	if err != nil {
		return apperr.Internal(err)
	}
	return h.renderCart(c, cart.ID)
}

type cartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gte=1,lte=999"`
}

// AddCartItem adds a product or increases its quantity.
func (h *CartHandler) AddCartItem(c *fiber.Ctx) error {
	customer, err := currentCustomer(c, h.db)
	if err != nil {
		return err
	}

	req := cartItemRequest{Quantity: 1}
	if err := validation.Bind(c, &req); err != nil {
		return err
	}

	var product models.Product
	if err := h.db.WithContext(c.UserContext()).
		First(&product, "id = ? AND is_active = ?", req.ProductID, true).Error; err != nil {
		return dbError(err, "product")
	}

	cart, err := h.cartFor(c, customer.ID)
	if err != nil {
		return apperr.Internal(err)
	}

	item := models.CartItem{CartID: cart.ID, ProductID: product.ID, Quantity: req.Quantity}
	err = h.db.WithContext(c.UserContext()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"quantity": gorm.Expr("cart_items.quantity + EXCLUDED.quantity")}),
	}).Create(&item).Error
	if err != nil {
		return apperr.Internal(err)
	}

	return h.renderCart(c, cart.ID)
}

type cartQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=1,lte=999"`
}

// UpdateCartItem sets the quantity of a cart line.
func (h *CartHandler) UpdateCartItem(c *fiber.Ctx) error {
	customer, err := currentCustomer(c, h.db)
	if err != nil {
		return err
	}
	itemID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var req cartQuantityRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}

	cart, err := h.cartFor(c, customer.ID)
	if err != nil {
		return apperr.Internal(err)
	}

	res := h.db.WithContext(c.UserContext()).Model(&models.CartItem{}).
		Where("id = ? AND cart_id = ?", itemID, cart.ID).
		Update("quantity", req.Quantity)
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("cart item not found")
	}

	return h.renderCart(c, cart.ID)
}

// RemoveCartItem deletes a cart line.
func (h *CartHandler) RemoveCartItem(c *fiber.Ctx) error {
	customer, err := currentCustomer(c, h.db)
	if err != nil {
		return err
	}
	itemID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	cart, err := h.cartFor(c, customer.ID)
	if err != nil {
		return apperr.Internal(err)
	}

	res := h.db.WithContext(c.UserContext()).
		Where("id = ? AND cart_id = ?", itemID, cart.ID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("cart item not found")
	}

	return h.renderCart(c, cart.ID)
}

// Wishlist endpoints

func (h *CartHandler) wishlistFor(c *fiber.Ctx, customerID uint) (*models.Wishlist, error) {
	wishlist := models.Wishlist{CustomerID: customerID}
	err := h.db.WithContext(c.UserContext()).
		Where(models.Wishlist{CustomerID: customerID}).
		FirstOrCreate(&wishlist).Error
	return &wishlist, err
}

// GetWishlist returns the wishlist with its products.
func (h *CartHandler) GetWishlist(c *fiber.Ctx) error {
	customer, err := currentCustomer(c, h.db)
	if err != nil {
		return err
	}
	wishlist, err := h.wishlistFor(c, customer.ID)
	if err != nil {
		return apperr.Internal(err)
	}

	if err := h.db.WithContext(c.UserContext()).
		Preload("Items.Product").
		First(wishlist, "id = ?", wishlist.ID).Error; err != nil {
		return apperr.Internal(err)
	}
	return c.JSON(fiber.Map{"success": true, "data": wishlist})
}

type wishlistItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
}

// AddWishlistItem adds a product; adding it twice is a no-op.
func (h *CartHandler) AddWishlistItem(c *fiber.Ctx) error {
	customer, err := currentCustomer(c, h.db)
	if err != nil {
		return err
	}

	var req wishlistItemRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}

	var product models.Product
	if err := h.db.WithContext(c.UserContext()).First(&product, "id = ?", req.ProductID).Error; err != nil {
		return dbError(err, "product")
	}

	wishlist, err := h.wishlistFor(c, customer.ID)
	if err != nil {
		return apperr.Internal(err)
	}

	item := models.WishlistItem{WishlistID: wishlist.ID, ProductID: product.ID}
	if err := h.db.WithContext(c.UserContext()).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&item).Error; err != nil {
		return apperr.Internal(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "message": "added to wishlist"})
}

// RemoveWishlistItem deletes a wishlist entry.
func (h *CartHandler) RemoveWishlistItem(c *fiber.Ctx) error {
	customer, err := currentCustomer(c, h.db)
	if err != nil {
		return err
	}
	itemID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	wishlist, err := h.wishlistFor(c, customer.ID)
	if err != nil {
		return apperr.Internal(err)
	}

	res := h.db.WithContext(c.UserContext()).
		Where("id = ? AND wishlist_id = ?", itemID, wishlist.ID).
		Delete(&models.WishlistItem{})
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("wishlist item not found")
	}

	return c.JSON(fiber.Map{"success": true, "message": "removed from wishlist"})
}
