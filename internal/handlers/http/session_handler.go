package http

import (
	"net/http"

	"teamstream/internal/core/domain"
	"teamstream/internal/core/ports"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	sessionService ports.SessionService
}

func NewSessionHandler(sessionService ports.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

func (h *SessionHandler) SetupRoutes(router *gin.Engine) {
	router.POST("/api/v1/login", h.Login)
}

// Login issues a connection token and refreshes the caller's channel grants
// so a reconnecting client can subscribe immediately.
func (h *SessionHandler) Login(c *gin.Context) {
	var req struct {
		UserID domain.UserID `json:"user_id" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.sessionService.Login(c.Request.Context(), req.UserID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
	})
}
