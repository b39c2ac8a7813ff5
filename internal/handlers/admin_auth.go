package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ecorewards/internal/auth"
	"ecorewards/internal/ledger"
	"ecorewards/internal/orders"
)

// Admin serves the partner-center and fulfillment endpoints.
type Admin struct {
	auth   *auth.Service
	ledger *ledger.Service
	orders *orders.Service
	log    *zap.Logger
}

func NewAdmin(auth *auth.Service, ledger *ledger.Service, orders *orders.Service, log *zap.Logger) *Admin {
	return &Admin{auth: auth, ledger: ledger, orders: orders, log: log}
}

func (h *Admin) RegisterRoutes(r gin.IRouter, guard gin.HandlerFunc) {
	r.POST("/admin/login", h.Login)

	api := r.Group("/admin/api", guard)
	api.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "adminId": c.GetString("adminId")})
	})
	api.POST("/users/:id/credit", h.CreditUser)
	api.PUT("/orders/:id/status", h.UpdateOrderStatus)
}

func (h *Admin) Login(c *gin.Context) {
	const route = "POST /admin/login"

	var req auth.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	token, err := h.auth.AdminLogin(ctx, req)
	if err != nil {
		respondWithError(c, h.log, route, err)
		return
	}
	c.JSON(http.StatusOK, token)
}
