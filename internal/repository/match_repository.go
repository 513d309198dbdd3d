package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/recorever/recorever-backend/internal/models"
)

// ErrMatchNotFound возвращается, когда сопоставление не найдено.
var ErrMatchNotFound = errors.New("match not found")

// MatchRepository отвечает за работу с таблицей matches. Создание
// сопоставления затрагивает matches, reports и notifications в одной
// транзакции.
type MatchRepository struct {
	db *sqlx.DB
}

// NewMatchRepository создаёт экземпляр репозитория.
func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// PairParams входные данные создания сопоставления.
type PairParams struct {
	LostReportID  uuid.UUID
	FoundReportID uuid.UUID
	Confidence    models.MatchConfidence
	// Уведомления владельцам обеих заявок, записываются в той же транзакции.
	LostOwnerID  uuid.UUID
	FoundOwnerID uuid.UUID
	LostMessage  string
	FoundMessage string
}

// PairResult итог создания сопоставления.
type PairResult struct {
	Match         *models.Match
	Notifications []models.Notification
}

// CreateForPair создаёт сопоставление и переводит обе заявки из approved в
// matched одной транзакцией. Если любая из заявок уже не approved (гонка с
// другим сопоставлением или решением), транзакция откатывается и
// возвращается ErrReportStateChanged: вызывающая сторона может перейти к
// следующему кандидату. Повторное сопоставление той же пары невозможно —
// после первого успеха обе заявки уже не approved.
func (r *MatchRepository) CreateForPair(ctx context.Context, p PairParams) (*PairResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("match repository: create begin %w", err)
	}
	defer tx.Rollback()

	for _, reportID := range []uuid.UUID{p.LostReportID, p.FoundReportID} {
		res, err := tx.ExecContext(ctx, `
			UPDATE reports SET status = $2
			WHERE id = $1 AND status = $3 AND is_deleted = FALSE
		`, reportID, models.ReportStatusMatched, models.ReportStatusApproved)
		if err != nil {
			return nil, fmt.Errorf("match repository: create flip report %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("match repository: create flip report rows %w", err)
		}
		if affected == 0 {
			return nil, ErrReportStateChanged
		}
	}

	var match models.Match
	err = tx.GetContext(ctx, &match, `
		INSERT INTO matches (lost_report_id, found_report_id, status, confidence)
		VALUES ($1, $2, $3, $4)
		RETURNING id, lost_report_id, found_report_id, status, confidence, created_at
	`, p.LostReportID, p.FoundReportID, models.MatchStatusPending, p.Confidence)
	if err != nil {
		return nil, fmt.Errorf("match repository: create insert %w", err)
	}

	result := &PairResult{Match: &match}

	inserts := []struct {
		userID   uuid.UUID
		reportID uuid.UUID
		message  string
	}{
		{p.LostOwnerID, p.LostReportID, p.LostMessage},
		{p.FoundOwnerID, p.FoundReportID, p.FoundMessage},
	}
	for _, in := range inserts {
		var n models.Notification
		err := tx.GetContext(ctx, &n, `
			INSERT INTO notifications (user_id, report_id, message, status)
			VALUES ($1, $2, $3, $4)
			RETURNING id, user_id, report_id, message, status, created_at
		`, in.userID, in.reportID, in.message, models.NotificationStatusUnread)
		if err != nil {
			return nil, fmt.Errorf("match repository: create insert notification %w", err)
		}
		result.Notifications = append(result.Notifications, n)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("match repository: create commit %w", err)
	}

	return result, nil
}

// GetByID возвращает сопоставление по идентификатору.
func (r *MatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	var match models.Match
	if err := r.db.GetContext(ctx, &match, `SELECT * FROM matches WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("match repository: get by id %w", err)
	}

	return &match, nil
}

// List возвращает сопоставления с пагинацией.
func (r *MatchRepository) List(ctx context.Context, limit, offset int) ([]models.Match, error) {
	var matches []models.Match
	query := `
		SELECT id, lost_report_id, found_report_id, status, confidence, created_at
		FROM matches
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	if err := r.db.SelectContext(ctx, &matches, query, limit, offset); err != nil {
		return nil, fmt.Errorf("match repository: list %w", err)
	}

	return matches, nil
}

// UpdateStatus меняет статус сопоставления (подтверждение или отклонение
// администратором).
func (r *MatchRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE matches SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("match repository: update status %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("match repository: update status rows %w", err)
	}
	if affected == 0 {
		return ErrMatchNotFound
	}

	return nil
}
