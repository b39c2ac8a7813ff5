package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ecorewards/internal/auth"
	"ecorewards/internal/config"
	"ecorewards/internal/middleware"
)

type Auth struct {
	svc          *auth.Service
	secureCookie bool
	log          *zap.Logger
}

func NewAuth(svc *auth.Service, cfg *config.Config, log *zap.Logger) *Auth {
	return &Auth{svc: svc, secureCookie: !cfg.Debug, log: log}
}

func (h *Auth) RegisterRoutes(api gin.IRouter, session gin.HandlerFunc) {
	g := api.Group("/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/logout", session, h.Logout)
	g.GET("/me", session, h.Me)
}

func (h *Auth) setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, token, maxAge, "/", "", h.secureCookie, true)
}

func (h *Auth) Register(c *gin.Context) {
	const route = "POST /api/auth/register"

	var req auth.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	res, err := h.svc.Register(ctx, req)
	if err != nil {
		respondWithError(c, h.log, route, err)
		return
	}
	h.setSessionCookie(c, res.Token, res.ExpiresAt)
	c.JSON(http.StatusCreated, res)
}

func (h *Auth) Login(c *gin.Context) {
	const route = "POST /api/auth/login"

	var req auth.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	res, err := h.svc.Login(ctx, req)
	if err != nil {
		respondWithError(c, h.log, route, err)
		return
	}
	h.setSessionCookie(c, res.Token, res.ExpiresAt)
	c.JSON(http.StatusOK, res)
}

func (h *Auth) Logout(c *gin.Context) {
	const route = "POST /api/auth/logout"

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.svc.Logout(ctx, middleware.CurrentToken(c)); err != nil {
		respondWithError(c, h.log, route, err)
		return
	}
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Auth) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": auth.ProfileOf(middleware.CurrentUser(c))})
}

func currentUserID(c *gin.Context) string {
	if user := middleware.CurrentUser(c); user != nil {
		return user.ID.Hex()
	}
	return ""
}
