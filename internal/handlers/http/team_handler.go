package http

import (
	"net/http"

	"teamstream/internal/core/domain"
	"teamstream/internal/core/ports"

	"github.com/gin-gonic/gin"
)

type TeamHandler struct {
	teamService ports.TeamService
}

func NewTeamHandler(teamService ports.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

func (h *TeamHandler) SetupRoutes(api *gin.RouterGroup) {
	api.GET("/teams/:id", h.GetTeam)
	api.PUT("/teams/:id/membership", h.UpdateMembership)
}

func (h *TeamHandler) GetTeam(c *gin.Context) {
	teamID := domain.TeamID(c.Param("id"))

	team, err := h.teamService.GetTeam(c.Request.Context(), teamID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"team": team,
	})
}

// UpdateMembership applies an added/removed member delta to a team. The
// mutation commits before any messaging side effect runs, so a propagation
// failure never turns into an error response here.
func (h *TeamHandler) UpdateMembership(c *gin.Context) {
	teamID := domain.TeamID(c.Param("id"))

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

	team, err := h.teamService.UpdateMembership(c.Request.Context(), teamID, req.Add, req.Remove)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"team": team,
	})
}
