package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/recorever/recorever-backend/internal/dto"
	"github.com/recorever/recorever-backend/internal/http/handlers/common"
	"github.com/recorever/recorever-backend/internal/service"
	"github.com/recorever/recorever-backend/internal/validation"
)

// ClaimHandler обслуживает маршруты заявлений на владение.
type ClaimHandler struct {
	claims *service.ClaimService
}

// NewClaimHandler создаёт хэндлер.
func NewClaimHandler(claims *service.ClaimService) *ClaimHandler {
	return &ClaimHandler{claims: claims}
}

// Create обрабатывает POST /claims.
func (h *ClaimHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req dto.CreateClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reportID, err := uuid.Parse(req.ReportID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверный идентификатор заявки"})
		return
	}

	claim, err := h.claims.Submit(c.Request.Context(), reportID, userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, claim)
}

// ListMine обрабатывает GET /claims/my.
func (h *ClaimHandler) ListMine(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	claims, err := h.claims.ListByClaimant(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, claims)
}

// ListByReport обрабатывает GET /admin/reports/:id/claims.
func (h *ClaimHandler) ListByReport(c *gin.Context) {
	reportID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, err := h.claims.ListByReport(c.Request.Context(), reportID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, claims)
}

// ListAll обрабатывает GET /admin/claims.
func (h *ClaimHandler) ListAll(c *gin.Context) {
	page, size := common.GetPagination(c)

	claims, err := h.claims.ListAll(c.Request.Context(), page, size)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, claims)
}

// Decide обрабатывает POST /admin/claims/:id/decision.
func (h *ClaimHandler) Decide(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req dto.DecideClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := validation.ValidateAdminRemarks(req.Remarks); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var claim interface{}
	if req.Approve {
		claim, err = h.claims.Approve(c.Request.Context(), id, req.Remarks)
	} else {
		claim, err = h.claims.Reject(c.Request.Context(), id, req.Remarks)
	}
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, claim)
}

// ClaimCode обрабатывает GET /claims/code/:reportId: код выдачи текущего
// пользователя по заявке.
func (h *ClaimHandler) ClaimCode(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	reportID, err := common.ParseUUIDParam(c, "reportId")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	code, err := h.claims.ClaimCode(c.Request.Context(), userID, reportID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ClaimCodeResponse{ReportID: reportID, ClaimCode: code})
}
