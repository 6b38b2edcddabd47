package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/tillpoint/internal/middleware"
	"github.com/example/tillpoint/internal/models"
	"github.com/example/tillpoint/internal/pos"
	"github.com/example/tillpoint/internal/utils"
)

var errStockShort = errors.New("insufficient stock")

// SaleHandler manages completed sales, statistics, and held orders.
type SaleHandler struct {
	db              *gorm.DB
	defaultCurrency string
}

// NewSaleHandler constructs SaleHandler.
func NewSaleHandler(db *gorm.DB, defaultCurrency string) *SaleHandler {
	return &SaleHandler{db: db, defaultCurrency: defaultCurrency}
}

type salePaymentRequest struct {
	Method    string  `json:"method"`
	Tendered  float64 `json:"tendered"`
	Reference string  `json:"reference"`
}

type saleItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type createSaleRequest struct {
	CustomerID string             `json:"customer_id"`
	Currency   string             `json:"currency"`
	Items      []saleItemRequest  `json:"items"`
	Payment    salePaymentRequest `json:"payment"`
}

// CreateSale records a sale directly, without a terminal cart session. Items
// are priced from the catalog at creation time.
func (h *SaleHandler) CreateSale(c *fiber.Ctx) error {
	cashierID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req createSaleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.Items) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "sale must have at least one item")
	}

	lines := make([]pos.Line, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid product id")
		}
		if item.Quantity < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "quantity must be at least 1")
		}

		var product models.Product
		if err := h.db.First(&product, "id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "product not found")
			}
			return err
		}

		lines = append(lines, pos.Line{
			ProductID:    product.ID,
			Name:         product.Name,
			UnitPrice:    product.Price,
			Quantity:     item.Quantity,
			StockCeiling: product.Stock,
		})
	}

	var customerID *uuid.UUID
	if req.CustomerID != "" {
		id, err := uuid.Parse(req.CustomerID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid customer id")
		}
		customerID = &id
	}

	sale, err := h.finalizeSale(cashierID, customerID, lines, req.Currency, req.Payment)
	if err != nil {
		return saleError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": sale})
}

// finalizeSale validates the payment, decrements stock, and writes the sale,
// its items, and its payment in one transaction. On any failure nothing is
// persisted.
func (h *SaleHandler) finalizeSale(cashierID uuid.UUID, customerID *uuid.UUID, lines []pos.Line, currency string, payment salePaymentRequest) (*models.Sale, error) {
	method := pos.PaymentMethod(payment.Method)
	if !pos.KnownMethod(method) {
		return nil, errUnknownMethod
	}

	var total float64
	for _, line := range lines {
		total += line.UnitPrice * float64(line.Quantity)
	}

	rec := pos.Reconcile(method, payment.Tendered, total)
	if !rec.Valid {
		return nil, errInsufficientTender
	}

	if currency == "" {
		currency = h.defaultCurrency
	}

	sale := models.Sale{
		SaleNumber:  generateSaleNumber(),
		CashierID:   cashierID,
		CustomerID:  customerID,
		Status:      "completed",
		PlacedAt:    time.Now(),
		TotalAmount: total,
		Currency:    currency,
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		for _, line := range lines {
			var product models.Product
			if err := tx.First(&product, "id = ?", line.ProductID).Error; err != nil {
				return err
			}
			if product.Stock < line.Quantity {
				return fmt.Errorf("%w for %s", errStockShort, product.Name)
			}

			newStock := product.Stock - line.Quantity
			if err := tx.Model(&product).Update("stock", newStock).Error; err != nil {
				return err
			}

			productID := line.ProductID
			sale.Items = append(sale.Items, models.SaleItem{
				ProductID:   &productID,
				ProductName: line.Name,
				Quantity:    line.Quantity,
				UnitPrice:   line.UnitPrice,
				LineTotal:   line.UnitPrice * float64(line.Quantity),
			})

			movement := models.StockMovement{
				ProductID:      product.ID,
				Delta:          -line.Quantity,
				ResultingStock: newStock,
				Reason:         "sale",
				Reference:      sale.SaleNumber,
			}
			if err := tx.Create(&movement).Error; err != nil {
				return err
			}
		}

		sale.Payments = []models.SalePayment{{
			Method:    string(method),
			Amount:    rec.Amount,
			Tendered:  payment.Tendered,
			Change:    rec.Change,
			Reference: payment.Reference,
		}}
		if method != pos.PaymentCash {
			sale.Payments[0].Tendered = 0
		}

		return tx.Create(&sale).Error
	})
	if err != nil {
		return nil, err
	}

	return &sale, nil
}

var (
	errInsufficientTender = errors.New("tendered amount does not cover the total")
	errUnknownMethod      = errors.New("unknown payment method")
)

func saleError(err error) error {
	switch {
	case errors.Is(err, errInsufficientTender):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, errStockShort):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, errUnknownMethod):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return err
	}
}

// ListSales returns paginated sales, optionally filtered by date range.
func (h *SaleHandler) ListSales(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Sale{})

	query, err := applyDateRange(query, c)
	if err != nil {
		return err
	}

	if v := c.Query("customer_id"); v != "" {
		if id, parseErr := uuid.Parse(v); parseErr == nil {
			query = query.Where("customer_id = ?", id)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var sales []models.Sale
	if err := query.Preload("Items").Preload("Payments").
		Order("placed_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&sales).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    sales,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetSale returns a single sale.
func (h *SaleHandler) GetSale(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var sale models.Sale
	if err := h.db.Preload("Items").Preload("Payments").Preload("Customer").
		First(&sale, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "sale not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": sale})
}

// Statistics aggregates sales over a date range: count, gross total, and a
// per-payment-method breakdown.
func (h *SaleHandler) Statistics(c *fiber.Ctx) error {
	query := h.db.Model(&models.Sale{}).Where("status = ?", "completed")

	query, err := applyDateRange(query, c)
	if err != nil {
		return err
	}

	var summary struct {
		SaleCount int64   `json:"sale_count"`
		Gross     float64 `json:"gross"`
	}
	if err := query.Select("COUNT(*) AS sale_count, COALESCE(SUM(total_amount), 0) AS gross").
		Scan(&summary).Error; err != nil {
		return err
	}

	byMethod := []struct {
		Method string  `json:"method"`
		Count  int64   `json:"count"`
		Amount float64 `json:"amount"`
	}{}
	methodQuery := h.db.Model(&models.SalePayment{}).
		Joins("JOIN sales ON sales.id = sale_payments.sale_id").
		Where("sales.status = ?", "completed")
	if from := c.Query("from"); from != "" {
		if t, parseErr := time.Parse("2006-01-02", from); parseErr == nil {
			methodQuery = methodQuery.Where("sales.placed_at >= ?", t)
		}
	}
	if to := c.Query("to"); to != "" {
		if t, parseErr := time.Parse("2006-01-02", to); parseErr == nil {
			methodQuery = methodQuery.Where("sales.placed_at < ?", t.Add(24*time.Hour))
		}
	}
	if err := methodQuery.
		Select("sale_payments.method AS method, COUNT(*) AS count, COALESCE(SUM(sale_payments.amount), 0) AS amount").
		Group("sale_payments.method").
		Scan(&byMethod).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"sale_count": summary.SaleCount,
			"gross":      summary.Gross,
			"by_method":  byMethod,
		},
	})
}

// ListHeldOrders returns the cashier's paused carts.
func (h *SaleHandler) ListHeldOrders(c *fiber.Ctx) error {
	cashierID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var held []models.HeldOrder
	if err := h.db.Preload("Items").Preload("Customer").
		Where("cashier_id = ?", cashierID).
		Order("created_at desc").
		Find(&held).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": held})
}

// GetHeldOrder returns one held order.
func (h *SaleHandler) GetHeldOrder(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var held models.HeldOrder
	if err := h.db.Preload("Items").Preload("Customer").
		First(&held, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "held order not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": held})
}

// DeleteHeldOrder discards a held order without resuming it.
func (h *SaleHandler) DeleteHeldOrder(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("held_order_id = ?", id).Delete(&models.HeldOrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.HeldOrder{}, "id = ?", id).Error
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true})
}

func applyDateRange(query *gorm.DB, c *fiber.Ctx) (*gorm.DB, error) {
	if from := c.Query("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid from date")
		}
		query = query.Where("placed_at >= ?", t)
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid to date")
		}
		query = query.Where("placed_at < ?", t.Add(24*time.Hour))
	}
	return query, nil
}

func generateSaleNumber() string {
	return fmt.Sprintf("S-%09d", time.Now().UnixNano()%1000000000)
}
