package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/recorever/recorever-backend/internal/models"
)

var (
	// ErrReportNotFound возвращается, когда заявка не найдена.
	ErrReportNotFound = errors.New("report not found")
	// ErrReportDeleted возвращается, когда заявка уже мягко удалена.
	ErrReportDeleted = errors.New("report already deleted")
	// ErrReportStateChanged возвращается, когда переход статуса проиграл
	// конкурентному изменению: условие WHERE не совпало ни с одной строкой.
	ErrReportStateChanged = errors.New("report state changed concurrently")
)

// ReportRepository отвечает за работу с таблицей reports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository создаёт экземпляр репозитория.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create создаёт новую заявку вместе с её расписанием удаления (если
// передано) в одной транзакции: заявка без расписания не должна попасть
// в базу, иначе sweep её никогда не увидит.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report, schedule *models.ReportSchedule) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("report repository: create begin tx %w", err)
	}
	defer tx.Rollback()

	insertReport := `
		INSERT INTO reports (user_id, kind, item_name, location, description, status, reported_at, date_lost_found, surrender_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, reported_at
	`
	if err := tx.QueryRowxContext(
		ctx, insertReport,
		report.UserID, report.Kind, report.ItemName, report.Location,
		report.Description, report.Status, report.ReportedAt,
		report.DateLostFound, report.SurrenderCode,
	).Scan(&report.ID, &report.ReportedAt); err != nil {
		return fmt.Errorf("report repository: create %w", err)
	}

	if schedule != nil {
		schedule.ReportID = report.ID
		insertSchedule := `
			INSERT INTO report_schedules (report_id, first_warning_at, final_warning_at, delete_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at
		`
		if err := tx.QueryRowxContext(
			ctx, insertSchedule,
			schedule.ReportID, schedule.FirstWarningAt, schedule.FinalWarningAt, schedule.DeleteAt,
		).Scan(&schedule.ID, &schedule.CreatedAt); err != nil {
			return fmt.Errorf("report repository: create schedule %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("report repository: create commit %w", err)
	}

	return nil
}

// GetByID возвращает не удалённую заявку по идентификатору.
func (r *ReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	query := `
		SELECT r.id, r.user_id, r.kind, r.item_name, r.location, r.description,
		       r.status, r.date_lost_found, r.surrender_code, r.reported_at,
		       r.resolved_at, r.is_deleted,
		       COALESCE(u.name, '') AS reporter_name,
		       s.delete_at AS expiry_date
		FROM reports r
		LEFT JOIN users u ON u.id = r.user_id
		LEFT JOIN report_schedules s ON s.report_id = r.id
		WHERE r.id = $1 AND r.is_deleted = FALSE
	`
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("report repository: get by id %w", err)
	}

	return &report, nil
}

// GetByIDAnyState возвращает заявку по идентификатору, включая удалённые.
// Нужен, чтобы различать "не найдено" и "уже удалено" при повторном удалении.
func (r *ReportRepository) GetByIDAnyState(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	query := `
		SELECT id, user_id, kind, item_name, location, description, status,
		       date_lost_found, surrender_code, reported_at, resolved_at, is_deleted
		FROM reports
		WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("report repository: get by id any state %w", err)
	}

	return &report, nil
}

// UpdateEditableFields обновляет поля заявки, пока она находится в статусе
// pending. Условие по статусу входит в сам UPDATE, поэтому редактирование не
// может обогнать конкурентное одобрение.
func (r *ReportRepository) UpdateEditableFields(ctx context.Context, id uuid.UUID, itemName, location, description *string) error {
	query := `
		UPDATE reports
		SET item_name = COALESCE($2, item_name),
		    location = COALESCE($3, location),
		    description = COALESCE($4, description)
		WHERE id = $1 AND status = $5 AND is_deleted = FALSE
	`

	res, err := r.db.ExecContext(ctx, query, id, itemName, location, description, models.ReportStatusPending)
	if err != nil {
		return fmt.Errorf("report repository: update editable fields %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("report repository: update editable fields rows %w", err)
	}
	if affected == 0 {
		return ErrReportStateChanged
	}

	return nil
}

// TransitionStatus переводит заявку из fromStatus в toStatus. Возвращает
// ErrReportStateChanged, если заявка уже не в исходном статусе.
func (r *ReportRepository) TransitionStatus(ctx context.Context, id uuid.UUID, fromStatus, toStatus string, resolvedAt *time.Time) error {
	query := `
		UPDATE reports
		SET status = $3, resolved_at = COALESCE($4, resolved_at)
		WHERE id = $1 AND status = $2 AND is_deleted = FALSE
	`

	res, err := r.db.ExecContext(ctx, query, id, fromStatus, toStatus, resolvedAt)
	if err != nil {
		return fmt.Errorf("report repository: transition status %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("report repository: transition status rows %w", err)
	}
	if affected == 0 {
		return ErrReportStateChanged
	}

	return nil
}

// SoftDelete помечает заявку удалённой. Возвращает ErrReportDeleted, если
// заявка уже была удалена, и ErrReportNotFound, если её не существует.
func (r *ReportRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE reports SET is_deleted = TRUE WHERE id = $1 AND is_deleted = FALSE`, id)
	if err != nil {
		return fmt.Errorf("report repository: soft delete %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("report repository: soft delete rows %w", err)
	}
	if affected == 0 {
		if _, err := r.GetByIDAnyState(ctx, id); err != nil {
			return err
		}
		return ErrReportDeleted
	}

	return nil
}

// ListApprovedByKind возвращает не удалённые одобренные заявки указанного
// типа в порядке подачи. Порядок фиксирован: подбор кандидата при
// сопоставлении детерминирован и берёт первую подходящую заявку.
func (r *ReportRepository) ListApprovedByKind(ctx context.Context, kind string, excludeID uuid.UUID) ([]models.Report, error) {
	var reports []models.Report
	query := `
		SELECT id, user_id, kind, item_name, location, description, status,
		       date_lost_found, surrender_code, reported_at, resolved_at, is_deleted
		FROM reports
		WHERE kind = $1 AND status = $2 AND is_deleted = FALSE AND id <> $3
		ORDER BY reported_at ASC
	`
	if err := r.db.SelectContext(ctx, &reports, query, kind, models.ReportStatusApproved, excludeID); err != nil {
		return nil, fmt.Errorf("report repository: list approved by kind %w", err)
	}

	return reports, nil
}

// SearchFilter параметры поиска заявок.
type SearchFilter struct {
	UserID *uuid.UUID
	Kind   string
	Status string
	Query  string
	Limit  int
	Offset int
}

// Search возвращает заявки по фильтру с пагинацией и общее количество.
func (r *ReportRepository) Search(ctx context.Context, f SearchFilter) ([]models.Report, int, error) {
	conds := []string{"r.is_deleted = FALSE"}
	args := []interface{}{}
	argIndex := 1

	if f.UserID != nil {
		conds = append(conds, fmt.Sprintf("r.user_id = $%d", argIndex))
		args = append(args, *f.UserID)
		argIndex++
	}
	if f.Kind != "" {
		conds = append(conds, fmt.Sprintf("r.kind = $%d", argIndex))
		args = append(args, f.Kind)
		argIndex++
	}
	if f.Status != "" {
		conds = append(conds, fmt.Sprintf("r.status = $%d", argIndex))
		args = append(args, f.Status)
		argIndex++
	}
	if f.Query != "" {
		conds = append(conds, fmt.Sprintf("(r.item_name ILIKE $%d OR r.location ILIKE $%d OR r.description ILIKE $%d)", argIndex, argIndex, argIndex))
		args = append(args, "%"+f.Query+"%")
		argIndex++
	}

	where := strings.Join(conds, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM reports r WHERE " + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("report repository: search count %w", err)
	}

	query := fmt.Sprintf(`
		SELECT r.id, r.user_id, r.kind, r.item_name, r.location, r.description,
		       r.status, r.date_lost_found, r.surrender_code, r.reported_at,
		       r.resolved_at, r.is_deleted,
		       COALESCE(u.name, '') AS reporter_name,
		       s.delete_at AS expiry_date
		FROM reports r
		LEFT JOIN users u ON u.id = r.user_id
		LEFT JOIN report_schedules s ON s.report_id = r.id
		WHERE %s
		ORDER BY r.reported_at DESC
		LIMIT $%d OFFSET $%d
	`, where, argIndex, argIndex+1)
	args = append(args, f.Limit, f.Offset)

	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, 0, fmt.Errorf("report repository: search %w", err)
	}

	return reports, total, nil
}

// CountByStatus возвращает количество не удалённых заявок в статусе.
func (r *ReportRepository) CountByStatus(ctx context.Context, status string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM reports WHERE status = $1 AND is_deleted = FALSE`, status); err != nil {
		return 0, fmt.Errorf("report repository: count by status %w", err)
	}
	return count, nil
}

// CountByKind возвращает количество не удалённых заявок по типу.
func (r *ReportRepository) CountByKind(ctx context.Context, kind string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM reports WHERE kind = $1 AND is_deleted = FALSE`, kind); err != nil {
		return 0, fmt.Errorf("report repository: count by kind %w", err)
	}
	return count, nil
}

// CountAll возвращает общее количество не удалённых заявок.
func (r *ReportRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM reports WHERE is_deleted = FALSE`); err != nil {
		return 0, fmt.Errorf("report repository: count all %w", err)
	}
	return count, nil
}

// DailyCount точка временного ряда для дашборда.
type DailyCount struct {
	Day   time.Time `db:"day"`
	Count int       `db:"count"`
}

// ReportsOverTime возвращает количество заявок по дням за последние days дней.
func (r *ReportRepository) ReportsOverTime(ctx context.Context, days int) ([]DailyCount, error) {
	var counts []DailyCount
	query := `
		SELECT date_trunc('day', reported_at) AS day, COUNT(*) AS count
		FROM reports
		WHERE is_deleted = FALSE AND reported_at >= NOW() - ($1 || ' days')::interval
		GROUP BY day
		ORDER BY day
	`
	if err := r.db.SelectContext(ctx, &counts, query, days); err != nil {
		return nil, fmt.Errorf("report repository: reports over time %w", err)
	}
	return counts, nil
}

// TopLocations возвращает самые частые локации среди не удалённых заявок.
func (r *ReportRepository) TopLocations(ctx context.Context, limit int) ([]string, error) {
	var locations []string
	query := `
		SELECT location FROM reports
		WHERE is_deleted = FALSE AND location <> ''
		GROUP BY location
		ORDER BY COUNT(*) DESC
		LIMIT $1
	`
	if err := r.db.SelectContext(ctx, &locations, query, limit); err != nil {
		return nil, fmt.Errorf("report repository: top locations %w", err)
	}
	return locations, nil
}
