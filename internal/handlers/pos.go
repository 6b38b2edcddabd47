package handlers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/tillpoint/internal/middleware"
	"github.com/example/tillpoint/internal/models"
	"github.com/example/tillpoint/internal/pos"
	"github.com/example/tillpoint/internal/services"
)

// POSHandler exposes terminal cart sessions: building an order line by line,
// reconciling payment, holding, resuming, and checking out.
type POSHandler struct {
	db       *gorm.DB
	registry *pos.Registry
	sales    *SaleHandler
	erp      *services.ERPService
	notify   *services.NotifyService
}

// NewPOSHandler constructs POSHandler.
func NewPOSHandler(db *gorm.DB, registry *pos.Registry, sales *SaleHandler, erp *services.ERPService, notify *services.NotifyService) *POSHandler {
	return &POSHandler{db: db, registry: registry, sales: sales, erp: erp, notify: notify}
}

// OpenSession starts a terminal session with an empty cart.
func (h *POSHandler) OpenSession(c *fiber.Ctx) error {
	id := h.registry.Open()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":    true,
		"session_id": id,
	})
}

// CloseSession drops the session and its cart.
func (h *POSHandler) CloseSession(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}
	h.registry.Close(id)
	return c.JSON(fiber.Map{"success": true})
}

// GetSession returns the cart's lines and running total.
func (h *POSHandler) GetSession(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	var lines []pos.Line
	var total float64
	var customerID *uuid.UUID
	ok, _ := h.registry.With(id, func(order *pos.Order) error {
		lines = order.Lines()
		total = order.Total()
		customerID = order.CustomerID
		return nil
	})
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"session_id":  id,
			"customer_id": customerID,
			"lines":       lines,
			"total":       total,
		},
	})
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
}

// AddItem inserts a catalog product into the cart with quantity 1 and the
// product's current stock as the line's ceiling.
func (h *POSHandler) AddItem(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	var req addItemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid product id")
	}

	var product models.Product
	if err := h.db.First(&product, "id = ? AND is_active = true", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	ok, err := h.registry.With(id, func(order *pos.Order) error {
		return order.Add(pos.CatalogProduct{
			ID:    product.ID,
			Name:  product.Name,
			Price: product.Price,
			Stock: product.Stock,
		})
	})
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	if err != nil {
		return posError(err)
	}

	return h.GetSession(c)
}

// IncrementItem raises a line's quantity by one, bounded by its ceiling.
func (h *POSHandler) IncrementItem(c *fiber.Ctx) error {
	return h.mutateLine(c, func(order *pos.Order, productID uuid.UUID) error {
		return order.Increment(productID)
	})
}

// DecrementItem lowers a line's quantity by one, bounded below by 1.
func (h *POSHandler) DecrementItem(c *fiber.Ctx) error {
	return h.mutateLine(c, func(order *pos.Order, productID uuid.UUID) error {
		return order.Decrement(productID)
	})
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// SetQuantity applies a direct quantity edit.
func (h *POSHandler) SetQuantity(c *fiber.Ctx) error {
	var req setQuantityRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	return h.mutateLine(c, func(order *pos.Order, productID uuid.UUID) error {
		return order.SetQuantity(productID, req.Quantity)
	})
}

// RemoveItem deletes a line unconditionally.
func (h *POSHandler) RemoveItem(c *fiber.Ctx) error {
	return h.mutateLine(c, func(order *pos.Order, productID uuid.UUID) error {
		order.Remove(productID)
		return nil
	})
}

func (h *POSHandler) mutateLine(c *fiber.Ctx, fn func(*pos.Order, uuid.UUID) error) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}
	productID, err := uuid.Parse(c.Params("productId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid product id")
	}

	ok, err := h.registry.With(id, func(order *pos.Order) error {
		return fn(order, productID)
	})
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	if err != nil {
		return posError(err)
	}

	return h.GetSession(c)
}

type reconcileRequest struct {
	Method   string  `json:"method"`
	Tendered float64 `json:"tendered"`
}

// Reconcile previews payment validity and change for the current cart without
// mutating anything.
func (h *POSHandler) Reconcile(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	var req reconcileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	method := pos.PaymentMethod(req.Method)
	if !pos.KnownMethod(method) {
		return fiber.NewError(fiber.StatusBadRequest, "unknown payment method")
	}

	var rec pos.Reconciliation
	ok, _ := h.registry.With(id, func(order *pos.Order) error {
		rec = pos.Reconcile(method, req.Tendered, order.Total())
		return nil
	})
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}

	return c.JSON(fiber.Map{"success": true, "data": rec})
}

type holdRequest struct {
	CustomerID string `json:"customer_id"`
	Note       string `json:"note"`
}

// Hold snapshots the cart into a held order and clears the session. The cart
// is only cleared after the snapshot is safely persisted.
func (h *POSHandler) Hold(c *fiber.Ctx) error {
	cashierID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	var req holdRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var customerID *uuid.UUID
	if req.CustomerID != "" {
		parsed, err := uuid.Parse(req.CustomerID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid customer id")
		}
		customerID = &parsed
	}

	var held models.HeldOrder
	found, err := h.registry.With(id, func(order *pos.Order) error {
		if order.Empty() {
			return errEmptyCart
		}

		snapshot := order.Snapshot()
		if customerID == nil {
			customerID = snapshot.CustomerID
		}

		held = models.HeldOrder{
			CashierID:  cashierID,
			CustomerID: customerID,
			Note:       req.Note,
		}
		for _, line := range snapshot.Lines {
			held.Items = append(held.Items, models.HeldOrderItem{
				ProductID:    line.ProductID,
				ProductName:  line.Name,
				UnitPrice:    line.UnitPrice,
				Quantity:     line.Quantity,
				StockCeiling: line.StockCeiling,
			})
		}

		if err := h.db.Create(&held).Error; err != nil {
			return err
		}

		order.Clear()
		return nil
	})
	if !found {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	if err != nil {
		if errors.Is(err, errEmptyCart) {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "cannot hold an empty cart")
		}
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": held})
}

type resumeRequest struct {
	HeldOrderID string `json:"held_order_id"`
}

// Resume replaces the session's cart with a held order's items and deletes
// the held record. Whatever was in the cart before is discarded.
func (h *POSHandler) Resume(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	var req resumeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	heldID, err := uuid.Parse(req.HeldOrderID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid held order id")
	}

	var held models.HeldOrder
	if err := h.db.Preload("Items").First(&held, "id = ?", heldID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "held order not found")
		}
		return err
	}

	snapshot := pos.Snapshot{CustomerID: held.CustomerID, CreatedAt: held.CreatedAt}
	for _, item := range held.Items {
		snapshot.Lines = append(snapshot.Lines, pos.Line{
			ProductID:    item.ProductID,
			Name:         item.ProductName,
			UnitPrice:    item.UnitPrice,
			Quantity:     item.Quantity,
			StockCeiling: item.StockCeiling,
		})
	}

	found, err := h.registry.With(id, func(order *pos.Order) error {
		err := h.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("held_order_id = ?", held.ID).Delete(&models.HeldOrderItem{}).Error; err != nil {
				return err
			}
			return tx.Delete(&held).Error
		})
		if err != nil {
			// Cart untouched on failure.
			return err
		}

		order.Restore(snapshot)
		return nil
	})
	if !found {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	if err != nil {
		return err
	}

	return h.GetSession(c)
}

type checkoutRequest struct {
	CustomerID string             `json:"customer_id"`
	Currency   string             `json:"currency"`
	Payment    salePaymentRequest `json:"payment"`
}

// Checkout settles the cart: payment is reconciled, the sale is written and
// stock decremented in one transaction, and only then is the cart cleared.
// The upstream ERP push and the notification happen asynchronously, after the
// local write, as with any other post-commit side effect.
func (h *POSHandler) Checkout(c *fiber.Ctx) error {
	cashierID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var customerID *uuid.UUID
	if req.CustomerID != "" {
		parsed, err := uuid.Parse(req.CustomerID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid customer id")
		}
		customerID = &parsed
	}

	var sale *models.Sale
	found, err := h.registry.With(id, func(order *pos.Order) error {
		if order.Empty() {
			return errEmptyCart
		}
		if customerID == nil {
			customerID = order.CustomerID
		}

		created, err := h.sales.finalizeSale(cashierID, customerID, order.Lines(), req.Currency, req.Payment)
		if err != nil {
			// Cart untouched on failure.
			return err
		}

		sale = created
		order.Clear()
		return nil
	})
	if !found {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	if err != nil {
		if errors.Is(err, errEmptyCart) {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "cannot check out an empty cart")
		}
		return saleError(err)
	}

	go h.dispatchERPAndNotify(*sale, cashierID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": sale})
}

// dispatchERPAndNotify pushes the sale upstream and announces it, recording
// the sync outcome on the sale row.
func (h *POSHandler) dispatchERPAndNotify(sale models.Sale, cashierID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	updates := map[string]any{}

	result, err := h.erp.PushSale(ctx, &sale)
	switch {
	case errors.Is(err, services.ErrERPDisabled):
		// Nothing to sync.
	case err != nil:
		log.Printf("[POS] ERP push failed for sale %s: %v", sale.SaleNumber, err)
		msg := err.Error()
		if len(msg) > 1024 {
			msg = msg[:1024]
		}
		now := time.Now()
		updates["erp_synced_at"] = &now
		updates["erp_sync_error"] = msg
	default:
		now := time.Now()
		updates["erp_synced_at"] = &now
		updates["erp_sale_id"] = result.SaleID
		updates["erp_sync_error"] = ""
	}

	if len(updates) > 0 {
		if err := h.db.Model(&models.Sale{}).Where("id = ?", sale.ID).Updates(updates).Error; err != nil {
			log.Printf("[POS] failed to record ERP sync status for sale %s: %v", sale.SaleNumber, err)
		}
	}

	cashierName := ""
	var cashier models.User
	if err := h.db.First(&cashier, "id = ?", cashierID).Error; err == nil {
		cashierName = cashier.FirstName + " " + cashier.LastName
	}

	items := make([]services.SaleItemNotification, 0, len(sale.Items))
	for _, item := range sale.Items {
		items = append(items, services.SaleItemNotification{
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	method := ""
	if len(sale.Payments) > 0 {
		method = sale.Payments[0].Method
	}

	notification := services.SaleNotification{
		SaleNumber:    sale.SaleNumber,
		Items:         items,
		TotalAmount:   sale.TotalAmount,
		Currency:      sale.Currency,
		PaymentMethod: method,
		CashierName:   cashierName,
	}
	if err := h.notify.NotifySale(notification); err != nil {
		log.Printf("[POS] sale notification failed: %v", err)
	}
}

var errEmptyCart = errors.New("cart is empty")

func posError(err error) error {
	switch {
	case errors.Is(err, pos.ErrAlreadyInOrder):
		return fiber.NewError(fiber.StatusConflict, "product already in cart, adjust its quantity instead")
	case errors.Is(err, pos.ErrLineNotFound):
		return fiber.NewError(fiber.StatusNotFound, "line not found")
	case errors.Is(err, pos.ErrStockExceeded):
		return fiber.NewError(fiber.StatusUnprocessableEntity, "quantity exceeds available stock")
	case errors.Is(err, pos.ErrInvalidQuantity):
		return fiber.NewError(fiber.StatusUnprocessableEntity, "invalid quantity")
	default:
		return err
	}
}
