package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ecorewards/internal/middleware"
	"ecorewards/internal/orders"
)

const idempotencyHeader = "Idempotency-Key"

type Orders struct {
	orders *orders.Service
	log    *zap.Logger
}

func NewOrders(orders *orders.Service, log *zap.Logger) *Orders {
	return &Orders{orders: orders, log: log}
}

func (h *Orders) RegisterRoutes(api gin.IRouter, session gin.HandlerFunc) {
	g := api.Group("/orders", session)
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
}

// Create places an order. Only product ids, quantities and delivery details
// are read from the body; any price or total the client sends is ignored.
func (h *Orders) Create(c *gin.Context) {
	const route = "POST /api/orders"
	user := middleware.CurrentUser(c)

	var req orders.PlaceOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}
	req.IdempotencyKey = c.GetHeader(idempotencyHeader)

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	order, err := h.orders.PlaceOrder(ctx, user.ID, req)
	if err != nil {
		respondWithError(c, h.log, route, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": order})
}

func (h *Orders) List(c *gin.Context) {
	const route = "GET /api/orders"
	user := middleware.CurrentUser(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	list, err := h.orders.ListOrders(ctx, user.ID)
	if err != nil {
		respondWithError(c, h.log, route, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h *Orders) Get(c *gin.Context) {
	const route = "GET /api/orders/:id"
	user := middleware.CurrentUser(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	order, err := h.orders.GetOrder(ctx, user.ID, c.Param("id"))
	if err != nil {
		respondWithError(c, h.log, route, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}
