package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ecorewards/internal/models"
)

type updateOrderStatusRequest struct {
	Status      models.OrderStatus `json:"status" binding:"required"`
	Description string             `json:"description"`
}

func (h *Admin) UpdateOrderStatus(c *gin.Context) {
	const route = "PUT /admin/api/orders/:id/status"

	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	order, err := h.orders.AdvanceStatus(ctx, c.Param("id"), req.Status, req.Description)
	if err != nil {
		respondWithError(c, h.log, route, err)
		return
	}
	h.log.Info("admin advanced order",
		zap.String("adminId", c.GetString("adminId")),
		zap.String("orderId", order.ID.Hex()),
		zap.String("status", string(order.Status)))
	c.JSON(http.StatusOK, gin.H{"order": order})
}
