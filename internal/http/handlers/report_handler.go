package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/recorever/recorever-backend/internal/dto"
	"github.com/recorever/recorever-backend/internal/http/handlers/common"
	"github.com/recorever/recorever-backend/internal/models"
	"github.com/recorever/recorever-backend/internal/service"
	"github.com/recorever/recorever-backend/internal/validation"
)

// ReportHandler обслуживает маршруты заявок о потерянных и найденных вещах.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler создаёт хэндлер.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Create обрабатывает POST /reports.
func (h *ReportHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req dto.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := validation.ValidateItemName(req.ItemName); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validation.ValidateReportLocation(req.Location); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validation.ValidateDescription(req.Description); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.DateLostFound != nil {
		if err := validation.ValidateDate(*req.DateLostFound); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	report, err := h.reports.Submit(c.Request.Context(), service.SubmitInput{
		UserID:        userID,
		Kind:          req.Kind,
		ItemName:      req.ItemName,
		Location:      req.Location,
		Description:   req.Description,
		DateLostFound: req.DateLostFound,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dto.ReportResponse{Report: report})
}

// Get обрабатывает GET /reports/:id.
func (h *ReportHandler) Get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.reports.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ReportResponse{Report: report})
}

// List обрабатывает GET /reports: публичный поиск по одобренным заявкам.
func (h *ReportHandler) List(c *gin.Context) {
	page, size := common.GetPagination(c)

	status := c.Query("status")
	if status == "" {
		status = models.ReportStatusApproved
	}

	result, err := h.reports.Search(c.Request.Context(), service.SearchInput{
		Kind:   c.Query("kind"),
		Status: status,
		Query:  c.Query("q"),
		Page:   page,
		Size:   size,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListMine обрабатывает GET /reports/my: заявки текущего пользователя.
func (h *ReportHandler) ListMine(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	page, size := common.GetPagination(c)

	result, err := h.reports.Search(c.Request.Context(), service.SearchInput{
		UserID: &userID,
		Kind:   c.Query("kind"),
		Status: c.Query("status"),
		Query:  c.Query("q"),
		Page:   page,
		Size:   size,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Update обрабатывает PUT /reports/:id. Редактировать можно только свою
// pending-заявку.
func (h *ReportHandler) Update(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req dto.UpdateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.ItemName != nil {
		if err := validation.ValidateItemName(*req.ItemName); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.Location != nil {
		if err := validation.ValidateReportLocation(*req.Location); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.Description != nil {
		if err := validation.ValidateDescription(*req.Description); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if err := h.ensureOwnerOrAdmin(c, id, userID); err != nil {
		return
	}

	if err := h.reports.Edit(c.Request.Context(), id, service.EditInput{
		ItemName:    req.ItemName,
		Location:    req.Location,
		Description: req.Description,
	}); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "заявка обновлена"})
}

// Delete обрабатывает DELETE /reports/:id.
func (h *ReportHandler) Delete(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.ensureOwnerOrAdmin(c, id, userID); err != nil {
		return
	}

	if err := h.reports.Delete(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "заявка удалена"})
}

// Decide обрабатывает POST /admin/reports/:id/decision.
func (h *ReportHandler) Decide(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req dto.DecideReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.reports.Decide(c.Request.Context(), id, req.Approve); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "решение применено"})
}

// ListPending обрабатывает GET /admin/reports/pending.
func (h *ReportHandler) ListPending(c *gin.Context) {
	page, size := common.GetPagination(c)

	result, err := h.reports.Search(c.Request.Context(), service.SearchInput{
		Status: models.ReportStatusPending,
		Page:   page,
		Size:   size,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Schedule обрабатывает GET /reports/:id/schedule.
func (h *ReportHandler) Schedule(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schedule, err := h.reports.Schedule(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, schedule)
}

// ensureOwnerOrAdmin пропускает владельца заявки или администратора.
// При отказе сам пишет ответ и возвращает ненулевую ошибку.
func (h *ReportHandler) ensureOwnerOrAdmin(c *gin.Context, reportID, userID uuid.UUID) error {
	role, err := common.CurrentUserRole(c)
	if err == nil && role.IsAdmin() {
		return nil
	}

	report, err := h.reports.Get(c.Request.Context(), reportID)
	if err != nil {
		c.Error(err)
		return err
	}

	if report.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "нет доступа к этой заявке"})
		return common.ErrUserNotFound
	}

	return nil
}
