package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"ecorewards/internal/apperr"
	"ecorewards/internal/auth"
	"ecorewards/internal/ledger"
	"ecorewards/internal/models"
)

type creditRequest struct {
	Amount      int64               `json:"amount" binding:"required"`
	Type        models.ActivityType `json:"type"`
	Description string              `json:"description"`
}

// CreditUser records a recycling payout (or a manual bonus/adjustment) made
// at a partner center.
func (h *Admin) CreditUser(c *gin.Context) {
	const route = "POST /admin/api/users/:id/credit"

	userID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		respondWithError(c, h.log, route, apperr.NotFound("user not found"))
		return
	}

	var req creditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}
	if req.Type == "" {
		req.Type = models.ActivityRecycle
	}
	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		req.Description = "Recycling reward"
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	user, err := h.ledger.Credit(ctx, userID, req.Amount, ledger.Entry{
		Type:        req.Type,
		Description: req.Description,
	})
	if err != nil {
		respondWithError(c, h.log, route, err)
		return
	}
	h.log.Info("admin credited points",
		zap.String("adminId", c.GetString("adminId")),
		zap.String("userId", userID.Hex()),
		zap.Int64("amount", req.Amount),
		zap.String("type", string(req.Type)))
	c.JSON(http.StatusOK, gin.H{"user": auth.ProfileOf(user)})
}
