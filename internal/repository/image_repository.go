package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/recorever/recorever-backend/internal/models"
)

// ErrImageNotFound возвращается, когда изображение не найдено.
var ErrImageNotFound = errors.New("image not found")

// ImageRepository отвечает за метаданные изображений заявок.
type ImageRepository struct {
	db *sqlx.DB
}

// NewImageRepository создаёт экземпляр репозитория.
func NewImageRepository(db *sqlx.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

// Create записывает метаданные загруженного изображения.
func (r *ImageRepository) Create(ctx context.Context, img *models.Image) error {
	query := `
		INSERT INTO images (report_id, file_path, mime_type, size_bytes)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		img.ReportID, img.FilePath, img.MimeType, img.SizeBytes,
	).Scan(&img.ID, &img.CreatedAt); err != nil {
		return fmt.Errorf("image repository: create %w", err)
	}

	return nil
}

// ListByReport возвращает не удалённые изображения заявки.
func (r *ImageRepository) ListByReport(ctx context.Context, reportID uuid.UUID) ([]models.Image, error) {
	var images []models.Image
	query := `
		SELECT id, report_id, file_path, mime_type, size_bytes, is_deleted, created_at
		FROM images
		WHERE report_id = $1 AND is_deleted = FALSE
		ORDER BY created_at ASC
	`
	if err := r.db.SelectContext(ctx, &images, query, reportID); err != nil {
		return nil, fmt.Errorf("image repository: list by report %w", err)
	}

	return images, nil
}

// ListByReports возвращает изображения сразу для набора заявок.
func (r *ImageRepository) ListByReports(ctx context.Context, reportIDs []uuid.UUID) (map[uuid.UUID][]models.Image, error) {
	if len(reportIDs) == 0 {
		return map[uuid.UUID][]models.Image{}, nil
	}

	var images []models.Image
	query := `
		SELECT id, report_id, file_path, mime_type, size_bytes, is_deleted, created_at
		FROM images
		WHERE report_id = ANY($1) AND is_deleted = FALSE
		ORDER BY created_at ASC
	`
	if err := r.db.SelectContext(ctx, &images, query, pq.Array(reportIDs)); err != nil {
		return nil, fmt.Errorf("image repository: list by reports %w", err)
	}

	grouped := make(map[uuid.UUID][]models.Image, len(reportIDs))
	for _, img := range images {
		grouped[img.ReportID] = append(grouped[img.ReportID], img)
	}

	return grouped, nil
}

// GetByID возвращает изображение по идентификатору.
func (r *ImageRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Image, error) {
	var img models.Image
	query := `
		SELECT id, report_id, file_path, mime_type, size_bytes, is_deleted, created_at
		FROM images
		WHERE id = $1 AND is_deleted = FALSE
	`
	if err := r.db.GetContext(ctx, &img, query, id); err != nil {
		return nil, ErrImageNotFound
	}

	return &img, nil
}

// SoftDelete помечает изображение удалённым.
func (r *ImageRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE images SET is_deleted = TRUE WHERE id = $1 AND is_deleted = FALSE`, id)
	if err != nil {
		return fmt.Errorf("image repository: soft delete %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("image repository: soft delete rows %w", err)
	}
	if affected == 0 {
		return ErrImageNotFound
	}

	return nil
}
