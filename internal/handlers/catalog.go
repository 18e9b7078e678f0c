package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/utils"
	"github.com/example/storefront/internal/validation"
)

// CatalogHandler manages brands, categories and products.
type CatalogHandler struct {
	db *gorm.DB
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(db *gorm.DB) *CatalogHandler {
	return &CatalogHandler{db: db}
}

// ListCategories returns paginated active categories.
func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.WithContext(c.UserContext()).Model(&models.Category{}).Where("is_active = ?", true)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return apperr.Internal(err)
	}

	var categories []models.Category
	if err := query.Limit(pg.Limit).Offset(pg.Offset).Order("name asc").
		Find(&categories).Error; err != nil {
		return apperr.Internal(err)
	}

	return paginated(c, categories, pg, total)
}

// GetCategory returns a single category by ID.
func (h *CatalogHandler) GetCategory(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var category models.Category
	if err := h.db.WithContext(c.UserContext()).First(&category, "id = ?", id).Error; err != nil {
		return dbError(err, "category")
	}

	return c.JSON(fiber.Map{"success": true, "data": category})
}

type categoryRequest struct {
	Name        string `json:"name" validate:"required,max=50"`
	Slug        string `json:"slug" validate:"omitempty,max=60"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

// CreateCategory persists a new category.
func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	var req categoryRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}

	category := models.Category{
		Name:        strings.TrimSpace(req.Name),
		Slug:        slugOr(req.Slug, req.Name),
		Description: req.Description,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if err := h.db.WithContext(c.UserContext()).Create(&category).Error; err != nil {
		return dbError(err, "category")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": category})
}

// UpdateCategory updates an existing category.
func (h *CatalogHandler) UpdateCategory(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var category models.Category
	if err := h.db.WithContext(c.UserContext()).First(&category, "id = ?", id).Error; err != nil {
		return dbError(err, "category")
	}

	var req categoryRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}

	updates := map[string]any{
		"name":        strings.TrimSpace(req.Name),
		"description": req.Description,
	}
	if req.Slug != "" {
		updates["slug"] = slugOr(req.Slug, req.Name)
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if err := h.db.WithContext(c.UserContext()).Model(&category).Updates(updates).Error; err != nil {
		return dbError(err, "category")
	}

	return c.JSON(fiber.Map{"success": true, "data": category})
}

// DeleteCategory removes a category by ID.
func (h *CatalogHandler) DeleteCategory(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.db.WithContext(c.UserContext()).Delete(&models.Category{}, "id = ?", id).Error; err != nil {
		return apperr.Internal(err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ListBrands returns paginated active brands.
func (h *CatalogHandler) ListBrands(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.WithContext(c.UserContext()).Model(&models.Brand{}).Where("is_active = ?", true)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return apperr.Internal(err)
	}

	var brands []models.Brand
	if err := query.Limit(pg.Limit).Offset(pg.Offset).Order("name asc").
		Find(&brands).Error; err != nil {
		return apperr.Internal(err)
	}

	return paginated(c, brands, pg, total)
}

// GetBrand returns a single brand by ID.
func (h *CatalogHandler) GetBrand(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var brand models.Brand
	if err := h.db.WithContext(c.UserContext()).First(&brand, "id = ?", id).Error; err != nil {
		return dbError(err, "brand")
	}

	return c.JSON(fiber.Map{"success": true, "data": brand})
}

type brandRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	IsActive *bool  `json:"is_active"`
}

// brandNameTaken compares names case-insensitively, skipping the brand
// being updated.
func (h *CatalogHandler) brandNameTaken(c *fiber.Ctx, name string, except uuid.UUID) (bool, error) {
	var count int64
	err := h.db.WithContext(c.UserContext()).Model(&models.Brand{}).
		Where("LOWER(name) = ? AND id <> ?", strings.ToLower(name), except).
		Count(&count).Error
	return count > 0, err
}

// CreateBrand persists a new brand.
func (h *CatalogHandler) CreateBrand(c *fiber.Ctx) error {
	var req brandRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	name := strings.TrimSpace(req.Name)

	taken, err := h.brandNameTaken(c, name, uuid.Nil)
	if err != nil {
		return apperr.Internal(err)
	}
	if taken {
		return apperr.ValidationFields("brand already exists", map[string]string{"name": "a brand with this name already exists"})
	}

	brand := models.Brand{Name: name, IsActive: req.IsActive == nil || *req.IsActive}
	if err := h.db.WithContext(c.UserContext()).Create(&brand).Error; err != nil {
		return dbError(err, "brand")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": brand})
}

// UpdateBrand updates a brand.
func (h *CatalogHandler) UpdateBrand(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var brand models.Brand
	if err := h.db.WithContext(c.UserContext()).First(&brand, "id = ?", id).Error; err != nil {
		return dbError(err, "brand")
	}

	var req brandRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	name := strings.TrimSpace(req.Name)

	taken, err := h.brandNameTaken(c, name, brand.ID)
	if err != nil {
		return apperr.Internal(err)
	}
	if taken {
		return apperr.ValidationFields("brand already exists", map[string]string{"name": "a brand with this name already exists"})
	}

	updates := map[string]any{"name": name}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if err := h.db.WithContext(c.UserContext()).Model(&brand).Updates(updates).Error; err != nil {
		return dbError(err, "brand")
	}

	return c.JSON(fiber.Map{"success": true, "data": brand})
}

// DeleteBrand removes a brand.
func (h *CatalogHandler) DeleteBrand(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.db.WithContext(c.UserContext()).Delete(&models.Brand{}, "id = ?", id).Error; err != nil {
		return apperr.Internal(err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ListProducts returns paginated products with optional filters.
func (h *CatalogHandler) ListProducts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.WithContext(c.UserContext()).Model(&models.Product{}).Where("is_active = ?", true)

	if v := c.Query("category_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			query = query.Where("category_id = ?", id)
		}
	}

	if v := c.Query("brand_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			query = query.Where("brand_id = ?", id)
		}
	}

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		q := "%" + search + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ?", q, q)
	}

	if minPrice := c.Query("min_price"); minPrice != "" {
		if val, err := decimal.NewFromString(minPrice); err == nil {
			query = query.Where("price >= ?", val)
		}
	}

	if maxPrice := c.Query("max_price"); maxPrice != "" {
		if val, err := decimal.NewFromString(maxPrice); err == nil {
			query = query.Where("price <= ?", val)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return apperr.Internal(err)
	}

	var products []models.Product
	if err := query.Preload("Brand").Preload("Category").
		Limit(pg.Limit).Offset(pg.Offset).
		Order("created_at desc").
		Find(&products).Error; err != nil {
		return apperr.Internal(err)
	}

	return paginated(c, products, pg, total)
}

// GetProduct loads a product with its brand and category.
func (h *CatalogHandler) GetProduct(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var product models.Product
	if err := h.db.WithContext(c.UserContext()).Preload("Brand").Preload("Category").
		First(&product, "id = ?", id).Error; err != nil {
		return dbError(err, "product")
	}

	return c.JSON(fiber.Map{"success": true, "data": product})
}

type productRequest struct {
	Name           string          `json:"name" validate:"required,max=100"`
	Slug           string          `json:"slug" validate:"omitempty,max=120"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price"`
	Weight         decimal.Decimal `json:"weight"`
	BrandID        *uuid.UUID      `json:"brand_id"`
	CategoryID     *uuid.UUID      `json:"category_id"`
	Images         []string        `json:"images" validate:"dive,url"`
	DeliveryDayMin int             `json:"delivery_day_min" validate:"gte=0"`
	DeliveryDayMax int             `json:"delivery_day_max" validate:"gtefield=DeliveryDayMin"`
	IsActive       *bool           `json:"is_active"`
}

func (r productRequest) check() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	if !r.Price.IsPositive() {
		return apperr.ValidationFields("invalid price", map[string]string{"price": "must be greater than 0"})
	}
	if r.Weight.IsNegative() {
		return apperr.ValidationFields("invalid weight", map[string]string{"weight": "must not be negative"})
	}
	return nil
}

// CreateProduct persists a new product.
func (h *CatalogHandler) CreateProduct(c *fiber.Ctx) error {
	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := req.check(); err != nil {
		return err
	}

	product := models.Product{
		Name:           strings.TrimSpace(req.Name),
		Slug:           slugOr(req.Slug, req.Name),
		Description:    req.Description,
		Price:          req.Price,
		Weight:         req.Weight,
		BrandID:        req.BrandID,
		CategoryID:     req.CategoryID,
		Images:         pq.StringArray(req.Images),
		DeliveryDayMin: req.DeliveryDayMin,
		DeliveryDayMax: req.DeliveryDayMax,
		IsActive:       req.IsActive == nil || *req.IsActive,
	}
	if err := h.db.WithContext(c.UserContext()).Create(&product).Error; err != nil {
		return dbError(err, "product")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": product})
}

// UpdateProduct replaces the editable fields of a product.
func (h *CatalogHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var product models.Product
	if err := h.db.WithContext(c.UserContext()).First(&product, "id = ?", id).Error; err != nil {
		return dbError(err, "product")
	}

	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := req.check(); err != nil {
		return err
	}

	updates := map[string]any{
		"name":             strings.TrimSpace(req.Name),
		"description":      req.Description,
		"price":            req.Price,
		"weight":           req.Weight,
		"brand_id":         req.BrandID,
		"category_id":      req.CategoryID,
		"images":           pq.StringArray(req.Images),
		"delivery_day_min": req.DeliveryDayMin,
		"delivery_day_max": req.DeliveryDayMax,
	}
	if req.Slug != "" {
		updates["slug"] = slugOr(req.Slug, req.Name)
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if err := h.db.WithContext(c.UserContext()).Model(&product).Updates(updates).Error; err != nil {
		return dbError(err, "product")
	}

	return c.JSON(fiber.Map{"success": true, "data": product})
}

// DeleteProduct soft-disables a product so past orders keep their reference.
func (h *CatalogHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	res := h.db.WithContext(c.UserContext()).Model(&models.Product{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("product not found")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// slugOr returns slug normalized, or one derived from name when empty.
func slugOr(slug, name string) string {
	src := slug
	if strings.TrimSpace(src) == "" {
		src = name
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(src)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
