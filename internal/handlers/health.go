package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"ecorewards/internal/database"
)

type Health struct {
	db *mongo.Database
}

func NewHealth(db *mongo.Database) *Health {
	return &Health{db: db}
}

func (h *Health) RegisterRoutes(r gin.IRouter) {
	r.GET("/healthz", h.Check)
}

func (h *Health) Check(c *gin.Context) {
	if err := database.Ping(c.Request.Context(), h.db); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
