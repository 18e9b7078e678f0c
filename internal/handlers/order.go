package handlers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/orders"
	"github.com/example/storefront/internal/utils"
	"github.com/example/storefront/internal/validation"
)

// OrderHandler manages customer order endpoints.
type OrderHandler struct {
	db     *gorm.DB
	orders *orders.Service
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(db *gorm.DB, svc *orders.Service) *OrderHandler {
	return &OrderHandler{db: db, orders: svc}
}

type orderLineRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gte=1,lte=999"`
}

type createOrderRequest struct {
	Items             []orderLineRequest `json:"items" validate:"dive"`
	ShippingAddressID *uuid.UUID         `json:"shipping_address_id"`
	ShippingAddress   string             `json:"shipping_address" validate:"max=500"`
	BillingAddress    string             `json:"billing_address" validate:"max=500"`
	Notes             string             `json:"notes" validate:"max=1000"`
}

// CreateOrder places an order from the request lines, or from the cart
// when the request has none.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	customer, err := currentCustomer(c, h.db)
	if err != nil {
		return err
	}

	var req createOrderRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}

	lines := req.Items
	var cart *models.Cart
	if len(lines) == 0 {
		cart, lines, err = h.cartLines(c, customer.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return apperr.ValidationFields("order has no items", map[string]string{"items": "add items or fill the cart first"})
		}
	}

	items, err := h.pricedItems(c, lines)
	if err != nil {
		return err
	}

	shipping, err := h.shippingAddress(c, customer.UserID, req)
	if err != nil {
		return err
	}
	billing := strings.TrimSpace(req.BillingAddress)
	if billing == "" {
		billing = shipping
	}

	totals := orders.Price(items, customer.PointsDiscountPercentage)
	order := &models.Order{
		CustomerID:      customer.ID,
		Status:          models.OrderPending,
		ShippingAddress: shipping,
		BillingAddress:  billing,
		Subtotal:        totals.Subtotal,
		DiscountAmount:  totals.Discount,
		TotalAmount:     totals.Total,
		DueAmount:       totals.Total,
		Notes:           req.Notes,
		Items:           items,
	}

	if err := h.orders.Place(c.UserContext(), order); err != nil {
		return err
	}

	if cart != nil {
		if err := h.db.WithContext(c.UserContext()).
			Where("cart_id = ?", cart.ID).
			Delete(&models.CartItem{}).Error; err != nil {
			log.Warn().Err(err).Str("component", "http").Str("order_number", order.OrderNumber).Msg("failed to empty cart after order")
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": order})
}

func (h *OrderHandler) cartLines(c *fiber.Ctx, customerID uint) (*models.Cart, []orderLineRequest, error) {
	var cart models.Cart
	err := h.db.WithContext(c.UserContext()).Preload("Items").
		First(&cart, "customer_id = ?", customerID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, apperr.Internal(err)
	}

	lines := make([]orderLineRequest, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, orderLineRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return &cart, lines, nil
}

// pricedItems resolves products and takes unit prices from the catalog.
func (h *OrderHandler) pricedItems(c *fiber.Ctx, lines []orderLineRequest) ([]models.OrderItem, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}

	var products []models.Product
	if err := h.db.WithContext(c.UserContext()).
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&products).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]models.OrderItem, 0, len(lines))
	fields := map[string]string{}
	for i, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			fields[fmt.Sprintf("items[%d].product_id", i)] = "product not available"
			continue
		}
		id := p.ID
		items = append(items, models.OrderItem{
			ProductID:   &id,
			ProductName: p.Name,
			Quantity:    l.Quantity,
			UnitPrice:   p.Price,
		})
	}
	if len(fields) > 0 {
		return nil, apperr.ValidationFields("some products are not available", fields)
	}
	return items, nil
}

func (h *OrderHandler) shippingAddress(c *fiber.Ctx, userID uuid.UUID, req createOrderRequest) (string, error) {
	if req.ShippingAddressID == nil {
		return strings.TrimSpace(req.ShippingAddress), nil
	}

	var address models.Address
	if err := h.db.WithContext(c.UserContext()).
		First(&address, "id = ? AND user_id = ?", *req.ShippingAddressID, userID).Error; err != nil {
		return "", dbError(err, "address")
	}
	parts := []string{address.AddressLine, address.City, address.State, address.PostalCode, address.Country}
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", "), nil
}

// ListOrders returns orders for the authenticated customer.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	customer, err := currentCustomer(c, h.db)
	if err != nil {
		return err
	}

	pg := utils.ParsePagination(c)
	query := h.db.WithContext(c.UserContext()).Where("customer_id = ?", customer.ID).Model(&models.Order{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return apperr.Internal(err)
	}

	var list []models.Order
	if err := query.Preload("Items").
		Order("placed_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&list).Error; err != nil {
		return apperr.Internal(err)
	}

	return paginated(c, list, pg, total)
}

// GetOrder returns a single order of the authenticated customer.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	customer, err := currentCustomer(c, h.db)
	if err != nil {
		return err
	}

	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}

	var order models.Order
	if err := h.db.WithContext(c.UserContext()).Preload("Items").
		First(&order, "id = ? AND customer_id = ?", id, customer.ID).Error; err != nil {
		return dbError(err, "order")
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}
