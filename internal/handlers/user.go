package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ecorewards/internal/apperr"
	"ecorewards/internal/auth"
	"ecorewards/internal/chain"
	"ecorewards/internal/ledger"
	"ecorewards/internal/middleware"
)

type User struct {
	ledger *ledger.Service
	auth   *auth.Service
	mirror *chain.Mirror
	log    *zap.Logger
}

func NewUser(ledger *ledger.Service, auth *auth.Service, mirror *chain.Mirror, log *zap.Logger) *User {
	return &User{ledger: ledger, auth: auth, mirror: mirror, log: log}
}

func (h *User) RegisterRoutes(api gin.IRouter, session gin.HandlerFunc) {
	g := api.Group("/user", session)
	g.GET("/balance", h.Balance)
	g.GET("/activities", h.Activities)
	g.POST("/wallet", h.LinkWallet)
	g.GET("/wallet/balance", h.WalletBalance)
}

func (h *User) Balance(c *gin.Context) {
	const route = "GET /api/user/balance"
	user := middleware.CurrentUser(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	points, err := h.ledger.GetBalance(ctx, user.ID)
	if err != nil {
		respondWithError(c, h.log, route, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"points":         points,
		"lifetimePoints": user.LifetimePoints,
		"tier":           user.Tier(),
	})
}

func (h *User) Activities(c *gin.Context) {
	const route = "GET /api/user/activities"
	user := middleware.CurrentUser(c)

	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		respondWithError(c, h.log, route, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	activities, err := h.ledger.Activities(ctx, user.ID, limit)
	if err != nil {
		respondWithError(c, h.log, route, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": activities})
}

type linkWalletRequest struct {
	WalletAddress string `json:"walletAddress"`
}

func (h *User) LinkWallet(c *gin.Context) {
	const route = "POST /api/user/wallet"
	user := middleware.CurrentUser(c)

	var req linkWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	updated, err := h.auth.LinkWallet(ctx, user.ID, req.WalletAddress)
	if err != nil {
		respondWithError(c, h.log, route, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": auth.ProfileOf(updated)})
}

func (h *User) WalletBalance(c *gin.Context) {
	const route = "GET /api/user/wallet/balance"
	user := middleware.CurrentUser(c)
	if !user.HasWallet() {
		respondWithError(c, h.log, route, apperr.InvalidInput("no wallet linked"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	balance, err := h.mirror.WalletBalance(ctx, user.WalletAddress)
	if err != nil {
		respondWithError(c, h.log, route, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"walletAddress": user.WalletAddress, "balance": balance})
}
