package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/tillpoint/internal/models"
	"github.com/example/tillpoint/internal/utils"
)

// ProductHandler manages product CRUD and stock history.
type ProductHandler struct {
	db *gorm.DB
}

// NewProductHandler constructs ProductHandler.
func NewProductHandler(db *gorm.DB) *ProductHandler {
	return &ProductHandler{db: db}
}

// ListProducts returns paginated products with optional filters. The search
// term matches name, SKU, and barcode so a scanner or a keyboard both work.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Product{})

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
		query = query.Where("name ILIKE ? OR sku ILIKE ? OR barcode ILIKE ?", q, q, q)
	}

	if active := c.Query("active"); active != "" {
		query = query.Where("is_active = ?", active == "true")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var products []models.Product
	if err := query.Preload("Brand").Preload("Category").
		Limit(pg.Limit).Offset(pg.Offset).
		Order("name asc").
		Find(&products).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    products,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetProduct loads a product with relations.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var product models.Product
	if err := h.db.Preload("Brand").Preload("Category").
		First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": product})
}

type productRequest struct {
	Name       string  `json:"name"`
	SKU        string  `json:"sku"`
	Barcode    string  `json:"barcode"`
	Price      float64 `json:"price"`
	Currency   string  `json:"currency"`
	Stock      *int    `json:"stock"`
	IsActive   *bool   `json:"is_active"`
	BrandID    string  `json:"brand_id"`
	CategoryID string  `json:"category_id"`
}

// CreateProduct persists a new product.
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Name == "" || req.SKU == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name and sku are required")
	}
	if req.Price < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "price must not be negative")
	}

	product := models.Product{
		Name:     req.Name,
		SKU:      req.SKU,
		Barcode:  req.Barcode,
		Price:    req.Price,
		Currency: req.Currency,
		IsActive: true,
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "stock must not be negative")
		}
		product.Stock = *req.Stock
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	applyProductRelations(&product, &req)

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&product).Error; err != nil {
			return err
		}
		if product.Stock != 0 {
			movement := models.StockMovement{
				ProductID:      product.ID,
				Delta:          product.Stock,
				ResultingStock: product.Stock,
				Reason:         "adjustment",
				Reference:      "initial",
			}
			return tx.Create(&movement).Error
		}
		return nil
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": product})
}

// UpdateProduct updates an existing product. A stock change here is an
// explicit adjustment and is recorded in the movement history.
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var product models.Product
	if err := h.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Name != "" {
		product.Name = req.Name
	}
	if req.SKU != "" {
		product.SKU = req.SKU
	}
	if req.Barcode != "" {
		product.Barcode = req.Barcode
	}
	if req.Price > 0 {
		product.Price = req.Price
	}
	if req.Currency != "" {
		product.Currency = req.Currency
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	applyProductRelations(&product, &req)

	var movement *models.StockMovement
	if req.Stock != nil && *req.Stock != product.Stock {
		if *req.Stock < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "stock must not be negative")
		}
		movement = &models.StockMovement{
			ProductID:      product.ID,
			Delta:          *req.Stock - product.Stock,
			ResultingStock: *req.Stock,
			Reason:         "adjustment",
		}
		product.Stock = *req.Stock
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&product).Error; err != nil {
			return err
		}
		if movement != nil {
			return tx.Create(movement).Error
		}
		return nil
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": product})
}

// StockHistory returns the movement log for a product, newest first.
func (h *ProductHandler) StockHistory(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var product models.Product
	if err := h.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.StockMovement{}).Where("product_id = ?", id)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var movements []models.StockMovement
	if err := query.Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&movements).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    movements,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

func applyProductRelations(product *models.Product, req *productRequest) {
	if req.BrandID != "" {
		if id, err := uuid.Parse(req.BrandID); err == nil {
			product.BrandID = &id
		}
	}
	if req.CategoryID != "" {
		if id, err := uuid.Parse(req.CategoryID); err == nil {
			product.CategoryID = &id
		}
	}
}
