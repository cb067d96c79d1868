package http

import (
	"net/http"

	"teamstream/internal/core/domain"
	"teamstream/internal/core/ports"
	"teamstream/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

type StreamHandler struct {
	streamService ports.StreamService
}

func NewStreamHandler(streamService ports.StreamService) *StreamHandler {
	return &StreamHandler{streamService: streamService}
}

func (h *StreamHandler) SetupRoutes(api *gin.RouterGroup) {
	api.POST("/streams", h.CreateStream)
	api.GET("/streams/:id", h.GetStream)
	api.PUT("/streams/:id/membership", h.UpdateMembership)
	api.GET("/teams/:id/streams", h.ListStreams)
}

func (h *StreamHandler) CreateStream(c *gin.Context) {
	var req struct {
		TeamID    domain.TeamID     `json:"team_id" binding:"required"`
		Type      domain.StreamType `json:"type" binding:"required"`
		Name      string            `json:"name" binding:"max=100"`
		MemberIDs []domain.UserID   `json:"member_ids"`
		RepoID    string            `json:"repo_id"`
		File      string            `json:"file"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	creatorID, ok := middleware.UserIDFromGin(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	stream := &domain.Stream{
		TeamID:    req.TeamID,
		Type:      req.Type,
		Name:      req.Name,
		MemberIDs: req.MemberIDs,
		RepoID:    req.RepoID,
		File:      req.File,
		CreatorID: creatorID,
	}

	created, err := h.streamService.CreateStream(c.Request.Context(), stream)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"stream": created,
	})
}

func (h *StreamHandler) GetStream(c *gin.Context) {
	streamID := domain.StreamID(c.Param("id"))

	stream, err := h.streamService.GetStream(c.Request.Context(), streamID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stream": stream,
	})
}

func (h *StreamHandler) UpdateMembership(c *gin.Context) {
	streamID := domain.StreamID(c.Param("id"))

	var req struct {
		Add    []domain.UserID `json:"add"`
		Remove []domain.UserID `json:"remove"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Add) == 0 && len(req.Remove) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "add or remove must be non-empty"})
		return
	}

	stream, err := h.streamService.UpdateMembership(c.Request.Context(), streamID, req.Add, req.Remove)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stream": stream,
	})
}

func (h *StreamHandler) ListStreams(c *gin.Context) {
	teamID := domain.TeamID(c.Param("id"))

	streams, err := h.streamService.ListStreams(c.Request.Context(), teamID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"streams": streams,
	})
}
