package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/recorever/recorever-backend/internal/service"
)

// SeedHandler генерирует демо-данные. Маршрут регистрируется только в
// development-окружении.
type SeedHandler struct {
	seed *service.SeedService
}

// NewSeedHandler создаёт хэндлер.
func NewSeedHandler(seed *service.SeedService) *SeedHandler {
	return &SeedHandler{seed: seed}
}

// SeedRequest параметры генерации демо-данных.
type SeedRequest struct {
	NumUsers   int `json:"num_users"`
	NumReports int `json:"num_reports"`
}

// Seed обрабатывает POST /seed.
func (h *SeedHandler) Seed(c *gin.Context) {
	var req SeedRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.seed.SeedData(c.Request.Context(), req.NumUsers, req.NumReports)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, result)
}
