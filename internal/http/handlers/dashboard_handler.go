package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/recorever/recorever-backend/internal/http/handlers/common"
	"github.com/recorever/recorever-backend/internal/service"
)

// DashboardHandler отдаёт сводную статистику для админской панели.
type DashboardHandler struct {
	reports *service.ReportService
}

// NewDashboardHandler создаёт хэндлер.
func NewDashboardHandler(reports *service.ReportService) *DashboardHandler {
	return &DashboardHandler{reports: reports}
}

// Stats обрабатывает GET /admin/dashboard?days=30.
func (h *DashboardHandler) Stats(c *gin.Context) {
	days := common.ParseIntQuery(c, "days", 30)

	stats, err := h.reports.Dashboard(c.Request.Context(), days)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
