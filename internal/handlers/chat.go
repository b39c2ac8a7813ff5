package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ecorewards/internal/chat"
)

type Chat struct {
	assistant *chat.Assistant
	log       *zap.Logger
}

func NewChat(assistant *chat.Assistant, log *zap.Logger) *Chat {
	return &Chat{assistant: assistant, log: log}
}

func (h *Chat) RegisterRoutes(api gin.IRouter) {
	api.POST("/chat", h.Reply)
}

type chatRequest struct {
	Messages []chat.Message `json:"messages"`
}

func (h *Chat) Reply(c *gin.Context) {
	const route = "POST /api/chat"

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	reply, err := h.assistant.Reply(c.Request.Context(), req.Messages)
	if err != nil {
		respondWithError(c, h.log, route, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}
