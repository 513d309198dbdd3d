package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/recorever/recorever-backend/internal/dto"
	"github.com/recorever/recorever-backend/internal/http/handlers/common"
	"github.com/recorever/recorever-backend/internal/models"
	"github.com/recorever/recorever-backend/internal/service"
)

// MatchHandler обслуживает маршруты сопоставлений lost/found заявок.
type MatchHandler struct {
	matches *service.MatchService
}

// NewMatchHandler создаёт хэндлер.
func NewMatchHandler(matches *service.MatchService) *MatchHandler {
	return &MatchHandler{matches: matches}
}

// Get обрабатывает GET /matches/:id.
func (h *MatchHandler) Get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	match, err := h.matches.GetMatch(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewMatchResponse(match))
}

// List обрабатывает GET /admin/matches.
func (h *MatchHandler) List(c *gin.Context) {
	page, size := common.GetPagination(c)

	matches, err := h.matches.ListMatches(c.Request.Context(), size, (page-1)*size)
	if err != nil {
		c.Error(err)
		return
	}

	responses := make([]*dto.MatchResponse, len(matches))
	for i := range matches {
		responses[i] = dto.NewMatchResponse(&matches[i])
	}

	c.JSON(http.StatusOK, responses)
}

// UpdateStatus обрабатывает POST /admin/matches/:id/status: подтверждение
// или отклонение сопоставления.
func (h *MatchHandler) UpdateStatus(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req dto.UpdateMatchStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, ok := models.ValidMatchStatuses[req.Status]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "статус должен быть pending, confirmed или rejected"})
		return
	}

	if err := h.matches.UpdateMatchStatus(c.Request.Context(), id, req.Status); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "статус сопоставления обновлён"})
}
