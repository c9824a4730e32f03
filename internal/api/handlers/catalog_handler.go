package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kasirku/pos-sync-backend/internal/model"
	"github.com/kasirku/pos-sync-backend/internal/repository"
)

// CatalogHandler serves the locally synced catalog and customer data.
type CatalogHandler struct {
	Repo *repository.Store
}

func NewCatalogHandler(repo *repository.Store) *CatalogHandler {
	return &CatalogHandler{Repo: repo}
}

// GET /api/v1/products?sku=ABC&limit=100
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	ctx := c.Request.Context()

	if sku := c.Query("sku"); sku != "" {
		p, err := h.Repo.GetProductBySKU(ctx, sku)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if p == nil {
			c.JSON(http.StatusOK, []model.Product{})
			return
		}
		c.JSON(http.StatusOK, []model.Product{*p})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
		return
	}
	products, err := h.Repo.ListProducts(ctx, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	c.JSON(http.StatusOK, products)
}

// GET /api/v1/products/:id/variants
func (h *CatalogHandler) ListVariants(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}
	variants, err := h.Repo.ListVariantsByProduct(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if variants == nil {
		variants = []model.Variant{}
	}
	c.JSON(http.StatusOK, variants)
}

// GET /api/v1/products/:id/movements
// The audit trail of quantity changes for one product.
func (h *CatalogHandler) ListStockMovements(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}
	p, err := h.Repo.GetProductByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	movements, err := h.Repo.ListStockMovements(c.Request.Context(), p.InventoryKey(), 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if movements == nil {
		movements = []model.StockMovement{}
	}
	c.JSON(http.StatusOK, movements)
}

// GET /api/v1/customers
func (h *CatalogHandler) ListCustomers(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
		return
	}
	customers, err := h.Repo.ListCustomers(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if customers == nil {
		customers = []model.Customer{}
	}
	c.JSON(http.StatusOK, customers)
}
