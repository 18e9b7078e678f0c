package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/loyalty"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/orders"
	"github.com/example/storefront/internal/utils"
	"github.com/example/storefront/internal/validation"
)

// StatusChanger applies order status changes.
type StatusChanger interface {
	ChangeStatus(ctx context.Context, change orders.StatusChange) (*orders.StatusResult, error)
}

// AdminHandler manages staff-only endpoints.
type AdminHandler struct {
	db     *gorm.DB
	orders StatusChanger
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(db *gorm.DB, changer StatusChanger) *AdminHandler {
	return &AdminHandler{db: db, orders: changer}
}

// DashboardStats returns aggregate statistics for the admin dashboard.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	db := h.db.WithContext(c.UserContext())

	var totalCustomers int64
	if err := db.Model(&models.Customer{}).Count(&totalCustomers).Error; err != nil {
		return apperr.Internal(err)
	}

	var totalOrders int64
	if err := db.Model(&models.Order{}).Count(&totalOrders).Error; err != nil {
		return apperr.Internal(err)
	}

	type statusCount struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}
	var statusCounts []statusCount
	if err := db.Model(&models.Order{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return apperr.Internal(err)
	}

	ordersByStatus := make(map[string]int64)
	for _, sc := range statusCounts {
		ordersByStatus[sc.Status] = sc.Count
	}

	// Revenue counts money actually received.
	type sum struct {
		Total decimal.Decimal
	}
	var totalRevenue, todayRevenue sum
	if err := db.Model(&models.Order{}).
		Where("status != ?", models.OrderCancelled).
		Select("COALESCE(SUM(paid_amount), 0) AS total").
		Scan(&totalRevenue).Error; err != nil {
		return apperr.Internal(err)
	}

	if err := db.Model(&models.Order{}).
		Where("status != ? AND placed_at::date = CURRENT_DATE", models.OrderCancelled).
		Select("COALESCE(SUM(paid_amount), 0) AS total").
		Scan(&todayRevenue).Error; err != nil {
		return apperr.Internal(err)
	}

	var pointsAwarded int64
	if err := db.Model(&models.Order{}).
		Select("COALESCE(SUM(points_awarded), 0)").
		Scan(&pointsAwarded).Error; err != nil {
		return apperr.Internal(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_customers":  totalCustomers,
			"total_orders":     totalOrders,
			"total_revenue":    totalRevenue.Total,
			"today_revenue":    todayRevenue.Total,
			"points_awarded":   pointsAwarded,
			"orders_by_status": ordersByStatus,
		},
	})
}

// ListAllOrders returns all orders with pagination and filtering.
func (h *AdminHandler) ListAllOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.WithContext(c.UserContext()).Model(&models.Order{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		query = query.Where(
			"order_number ILIKE ? OR shipping_address ILIKE ?",
			"%"+search+"%", "%"+search+"%",
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return apperr.Internal(err)
	}

	var list []models.Order
	if err := query.Preload("Items").Preload("Customer").
		Order("placed_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&list).Error; err != nil {
		return apperr.Internal(err)
	}

	return paginated(c, list, pg, total)
}

type statusRequest struct {
	Status     models.OrderStatus `json:"status" validate:"required"`
	PaidAmount *decimal.Decimal   `json:"paid_amount"`
}

// UpdateOrderStatus moves an order along its lifecycle. Delivery credits
// loyalty points once.
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}

	var req statusRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}

	res, err := h.orders.ChangeStatus(c.UserContext(), orders.StatusChange{
		OrderID:    id,
		Status:     models.OrderStatus(strings.ToLower(string(req.Status))),
		PaidAmount: req.PaidAmount,
	})
	if err != nil {
		return err
	}

	data := fiber.Map{
		"order":           res.Order,
		"previous_status": res.PreviousStatus,
		"points_awarded":  res.PointsAwarded,
	}
	if res.Customer != nil {
		data["customer"] = fiber.Map{
			"id":                         res.Customer.ID,
			"points":                     res.Customer.Points,
			"membership_id":              res.Customer.MembershipID,
			"points_discount_percentage": res.Customer.PointsDiscountPercentage,
			"tier":                       loyalty.LevelFor(res.Customer.Points).Tier,
		}
	}
	return c.JSON(fiber.Map{"success": true, "data": data})
}

// ListCustomers returns customers with order counts and spend.
func (h *AdminHandler) ListCustomers(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.WithContext(c.UserContext()).Model(&models.Customer{})

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		query = query.Where("name ILIKE ? OR email ILIKE ? OR phone ILIKE ?",
			"%"+search+"%", "%"+search+"%", "%"+search+"%")
	}
	if raw := c.Query("tier"); raw != "" {
		tier, ok := loyalty.ParseTier(strings.ToLower(raw))
		if !ok {
			return apperr.ValidationFields("invalid tier", map[string]string{"tier": "unknown tier"})
		}
		query = query.Where("membership_id IN (?)",
			h.db.Model(&models.Membership{}).Select("id").Where("tier = ?", string(tier)))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return apperr.Internal(err)
	}

	var customers []models.Customer
	if err := query.Preload("Membership").
		Order("points desc, id asc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&customers).Error; err != nil {
		return apperr.Internal(err)
	}

	type customerStats struct {
		CustomerID uint            `json:"customer_id"`
		OrderCount int64           `json:"order_count"`
		TotalSpent decimal.Decimal `json:"total_spent"`
	}
	var stats []customerStats
	ids := make([]uint, len(customers))
	for i, cu := range customers {
		ids[i] = cu.ID
	}
	if len(ids) > 0 {
		if err := h.db.WithContext(c.UserContext()).Model(&models.Order{}).
			Select("customer_id, count(*) as order_count, COALESCE(SUM(paid_amount), 0) as total_spent").
			Where("customer_id IN ?", ids).
			Group("customer_id").
			Scan(&stats).Error; err != nil {
			return apperr.Internal(err)
		}
	}
	statsByID := make(map[uint]customerStats, len(stats))
	for _, s := range stats {
		statsByID[s.CustomerID] = s
	}

	type customerResponse struct {
		models.Customer
		OrderCount int64           `json:"order_count"`
		TotalSpent decimal.Decimal `json:"total_spent"`
	}
	result := make([]customerResponse, len(customers))
	for i, cu := range customers {
		result[i] = customerResponse{Customer: cu, TotalSpent: decimal.Zero}
		if s, ok := statsByID[cu.ID]; ok {
			result[i].OrderCount = s.OrderCount
			result[i].TotalSpent = s.TotalSpent
		}
	}

	return paginated(c, result, pg, total)
}

type membershipRequest struct {
	Name               string          `json:"name" validate:"required,max=100"`
	Tier               string          `json:"tier" validate:"required,oneof=bronze silver gold platinum diamond"`
	Description        string          `json:"description"`
	Benefits           []string        `json:"benefits"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	IsActive           *bool           `json:"is_active"`
	IsFeatured         bool            `json:"is_featured"`
}

func (r membershipRequest) check() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	if r.DiscountPercentage.IsNegative() || r.DiscountPercentage.GreaterThan(decimal.NewFromInt(100)) {
		return apperr.ValidationFields("invalid discount", map[string]string{"discount_percentage": "must be between 0 and 100"})
	}
	return nil
}

// CreateMembership adds a membership offering for a tier.
func (h *AdminHandler) CreateMembership(c *fiber.Ctx) error {
	var req membershipRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := req.check(); err != nil {
		return err
	}

	membership := models.Membership{
		Name:               req.Name,
		Tier:               req.Tier,
		Description:        req.Description,
		Benefits:           pq.StringArray(req.Benefits),
		DiscountPercentage: req.DiscountPercentage,
		IsActive:           req.IsActive == nil || *req.IsActive,
		IsFeatured:         req.IsFeatured,
	}
	if err := h.db.WithContext(c.UserContext()).Create(&membership).Error; err != nil {
		return dbError(err, "membership")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": membership})
}

// UpdateMembership edits a membership offering.
func (h *AdminHandler) UpdateMembership(c *fiber.Ctx) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}

	var membership models.Membership
	if err := h.db.WithContext(c.UserContext()).First(&membership, id).Error; err != nil {
		return dbError(err, "membership")
	}

	var req membershipRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := req.check(); err != nil {
		return err
	}

	updates := map[string]interface{}{
		"name":                req.Name,
		"tier":                req.Tier,
		"description":         req.Description,
		"benefits":            pq.StringArray(req.Benefits),
		"discount_percentage": req.DiscountPercentage,
		"is_featured":         req.IsFeatured,
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if err := h.db.WithContext(c.UserContext()).Model(&membership).Updates(updates).Error; err != nil {
		return dbError(err, "membership")
	}

	return c.JSON(fiber.Map{"success": true, "data": membership})
}
