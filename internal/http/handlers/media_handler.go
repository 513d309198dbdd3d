package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/h2non/filetype"

	"github.com/recorever/recorever-backend/internal/dto"
	"github.com/recorever/recorever-backend/internal/http/handlers/common"
	"github.com/recorever/recorever-backend/internal/models"
	"github.com/recorever/recorever-backend/internal/repository"
	"github.com/recorever/recorever-backend/internal/service"
	"github.com/recorever/recorever-backend/internal/storage"
)

// Разрешённые типы файлов для загрузки
var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Разрешённые расширения файлов
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// MediaHandler управляет загрузкой изображений заявок.
type MediaHandler struct {
	images  *repository.ImageRepository
	reports *service.ReportService
	storage *storage.PhotoStorage
}

// NewMediaHandler создаёт хэндлер.
func NewMediaHandler(images *repository.ImageRepository, reports *service.ReportService, storage *storage.PhotoStorage) *MediaHandler {
	return &MediaHandler{images: images, reports: reports, storage: storage}
}

// Upload обрабатывает POST /reports/:id/images. Загружать изображения может
// только владелец заявки.
func (h *MediaHandler) Upload(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	reportID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.reports.Get(c.Request.Context(), reportID)
	if err != nil {
		c.Error(err)
		return
	}
	if report.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "нет доступа к этой заявке"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "поле file обязательно"})
		return
	}

	if file.Size == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "файл не может быть пустым"})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "неподдерживаемый формат файла. Разрешены: .jpg, .jpeg, .png, .gif, .webp",
		})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer src.Close()

	// Проверяем магические байты: расширению доверять нельзя.
	buffer := make([]byte, 512)
	n, err := src.Read(buffer)
	if err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": "не удалось прочитать файл"})
		return
	}

	kind, err := filetype.Match(buffer[:n])
	if err != nil || kind == filetype.Unknown {
		c.JSON(http.StatusBadRequest, gin.H{"error": "не удалось определить тип файла. Разрешены только изображения"})
		return
	}

	contentType := kind.MIME.Value
	if !allowedMimeTypes[contentType] {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("неподдерживаемый тип файла (%s). Разрешены только изображения", contentType),
		})
		return
	}

	if seeker, ok := src.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "не удалось сбросить позицию файла"})
			return
		}
	}

	relPath, size, err := h.storage.Save(c.Request.Context(), reportID, file.Filename, src)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	img := &models.Image{
		ReportID:  reportID,
		FilePath:  relPath,
		MimeType:  contentType,
		SizeBytes: size,
	}
	if err := h.images.Create(c.Request.Context(), img); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dto.UploadResponse{Image: img})
}

// List обрабатывает GET /reports/:id/images.
func (h *MediaHandler) List(c *gin.Context) {
	reportID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	images, err := h.images.ListByReport(c.Request.Context(), reportID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, images)
}

// Download обрабатывает GET /images/:id/file.
func (h *MediaHandler) Download(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	img, err := h.images.GetByID(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.Header("Content-Type", img.MimeType)
	c.File(h.storage.FullPath(img.FilePath))
}

// Delete обрабатывает DELETE /images/:id. Удалять может владелец заявки.
func (h *MediaHandler) Delete(c *gin.Context) {
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

	img, err := h.images.GetByID(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	report, err := h.reports.Get(c.Request.Context(), img.ReportID)
	if err != nil {
		c.Error(err)
		return
	}

	role, roleErr := common.CurrentUserRole(c)
	if report.UserID != userID && (roleErr != nil || !role.IsAdmin()) {
		c.JSON(http.StatusForbidden, gin.H{"error": "нет доступа к этому изображению"})
		return
	}

	if err := h.images.SoftDelete(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}

	if err := h.storage.Delete(c.Request.Context(), img.FilePath); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "изображение удалено"})
}
