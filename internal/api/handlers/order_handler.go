package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kasirku/pos-sync-backend/internal/model"
	"github.com/kasirku/pos-sync-backend/internal/repository"
	"github.com/kasirku/pos-sync-backend/internal/service"
)

// ISaleRecorder is the register path behind POST /orders.
type ISaleRecorder interface {
	CompleteSale(ctx context.Context, o *model.Order) (*model.PendingAction, error)
}

type OrderHandler struct {
	Repo     *repository.Store
	Register ISaleRecorder
}

func NewOrderHandler(repo *repository.Store, register ISaleRecorder) *OrderHandler {
	return &OrderHandler{Repo: repo, Register: register}
}

type createOrderItem struct {
	ProductID *int64  `json:"product_id"`
	VariantID *int64  `json:"variant_id"`
	Name      string  `json:"name" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,gt=0"`
	Price     float64 `json:"price"`
}

type createOrderRequest struct {
	CustomerID    *int64            `json:"customer_id"`
	PaymentMethod string            `json:"payment_method" binding:"required"`
	Items         []createOrderItem `json:"items" binding:"required,min=1"`
}

// CreateOrder records a completed sale. Works offline: the order is
// persisted and queued locally whatever the connection state.
// POST /api/v1/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o := &model.Order{
		CustomerID:    req.CustomerID,
		PaymentMethod: req.PaymentMethod,
		Status:        model.OrderStatusPaid,
	}
	for _, item := range req.Items {
		o.Items = append(o.Items, model.OrderItem{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	action, err := h.Register.CompleteSale(c.Request.Context(), o)
	if err != nil {
		if errors.Is(err, service.ErrEmptyOrder) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order": o, "action_id": action.ID})
}

// GET /api/v1/orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
		return
	}
	orders, err := h.Repo.ListOrders(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	c.JSON(http.StatusOK, orders)
}

// GET /api/v1/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	o, err := h.Repo.GetOrderByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if o == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	c.JSON(http.StatusOK, o)
}
