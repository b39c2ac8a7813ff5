package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ecorewards/internal/catalog"
)

type Products struct {
	catalog *catalog.Service
	log     *zap.Logger
}

func NewProducts(catalog *catalog.Service, log *zap.Logger) *Products {
	return &Products{catalog: catalog, log: log}
}

func (h *Products) RegisterRoutes(api gin.IRouter) {
	api.GET("/products", h.List)
}

func (h *Products) List(c *gin.Context) {
	const route = "GET /api/products"

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	products, err := h.catalog.List(ctx, strings.TrimSpace(c.Query("category")))
	if err != nil {
		respondWithError(c, h.log, route, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}
