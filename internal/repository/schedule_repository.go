package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/recorever/recorever-backend/internal/models"
)

var (
	// ErrScheduleNotFound возвращается, когда расписание не найдено.
	ErrScheduleNotFound = errors.New("report schedule not found")
	// ErrScheduleStepDone возвращается, когда шаг расписания уже выполнен:
	// флаг был выставлен конкурентно или в предыдущем tick.
	ErrScheduleStepDone = errors.New("schedule step already processed")
)

// ScheduleRepository отвечает за работу с таблицей report_schedules.
// Расписание вставляется вместе с заявкой в ReportRepository.Create;
// здесь остаются чтение и шаги sweep. Отметка шага и запись уведомления
// выполняются одной транзакцией, поэтому повторный tick не создаёт
// дубликатов.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository создаёт экземпляр репозитория.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// GetByReportID возвращает расписание заявки.
func (r *ScheduleRepository) GetByReportID(ctx context.Context, reportID uuid.UUID) (*models.ReportSchedule, error) {
	var s models.ReportSchedule
	query := `
		SELECT id, report_id, first_warning_at, final_warning_at, delete_at,
		       first_warning_sent, final_warning_sent, created_at
		FROM report_schedules
		WHERE report_id = $1
	`
	if err := r.db.GetContext(ctx, &s, query, reportID); err != nil {
		return nil, ErrScheduleNotFound
	}

	return &s, nil
}

// DueItem строка выборки для одного шага sweep: расписание вместе с
// данными заявки, нужными для текста уведомления.
type DueItem struct {
	ScheduleID uuid.UUID `db:"schedule_id"`
	ReportID   uuid.UUID `db:"report_id"`
	UserID     uuid.UUID `db:"user_id"`
	ItemName   string    `db:"item_name"`
	Status     string    `db:"status"`
}

// DueFirstWarnings возвращает расписания, для которых пора отправить первое
// предупреждение: срок наступил, флаг не выставлен, заявка не удалена.
func (r *ScheduleRepository) DueFirstWarnings(ctx context.Context, now time.Time) ([]DueItem, error) {
	return r.dueWarnings(ctx, now, "first_warning_at", "first_warning_sent")
}

// DueFinalWarnings возвращает расписания, для которых пора отправить
// финальное предупреждение.
func (r *ScheduleRepository) DueFinalWarnings(ctx context.Context, now time.Time) ([]DueItem, error) {
	return r.dueWarnings(ctx, now, "final_warning_at", "final_warning_sent")
}

func (r *ScheduleRepository) dueWarnings(ctx context.Context, now time.Time, timeCol, sentCol string) ([]DueItem, error) {
	var items []DueItem
	query := fmt.Sprintf(`
		SELECT s.id AS schedule_id, s.report_id, r.user_id, r.item_name, r.status
		FROM report_schedules s
		JOIN reports r ON r.id = s.report_id
		WHERE s.%s <= $1 AND s.%s = FALSE AND r.is_deleted = FALSE
		ORDER BY s.%s ASC
	`, timeCol, sentCol, timeCol)

	if err := r.db.SelectContext(ctx, &items, query, now); err != nil {
		return nil, fmt.Errorf("schedule repository: due warnings %w", err)
	}

	return items, nil
}

// CompleteFirstWarning отмечает первое предупреждение отправленным и
// записывает уведомление одной транзакцией.
func (r *ScheduleRepository) CompleteFirstWarning(ctx context.Context, item DueItem, message string) (*models.Notification, error) {
	return r.completeWarning(ctx, item, message, "first_warning_sent")
}

// CompleteFinalWarning отмечает финальное предупреждение отправленным и
// записывает уведомление одной транзакцией.
func (r *ScheduleRepository) CompleteFinalWarning(ctx context.Context, item DueItem, message string) (*models.Notification, error) {
	return r.completeWarning(ctx, item, message, "final_warning_sent")
}

func (r *ScheduleRepository) completeWarning(ctx context.Context, item DueItem, message, sentCol string) (*models.Notification, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("schedule repository: complete begin %w", err)
	}
	defer tx.Rollback()

	// Флаг выставляется условно: если он уже стоит, шаг выполнен другим
	// tick и уведомление не дублируется.
	query := fmt.Sprintf(`UPDATE report_schedules SET %s = TRUE WHERE id = $1 AND %s = FALSE`, sentCol, sentCol)
	res, err := tx.ExecContext(ctx, query, item.ScheduleID)
	if err != nil {
		return nil, fmt.Errorf("schedule repository: complete mark %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("schedule repository: complete mark rows %w", err)
	}
	if affected == 0 {
		return nil, ErrScheduleStepDone
	}

	var n models.Notification
	err = tx.GetContext(ctx, &n, `
		INSERT INTO notifications (user_id, report_id, message, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, report_id, message, status, created_at
	`, item.UserID, item.ReportID, message, models.NotificationStatusUnread)
	if err != nil {
		return nil, fmt.Errorf("schedule repository: complete insert notification %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("schedule repository: complete commit %w", err)
	}

	return &n, nil
}

// DueDeletions возвращает заявки, чей срок удаления наступил и которые ещё
// не удалены.
func (r *ScheduleRepository) DueDeletions(ctx context.Context, now time.Time) ([]DueItem, error) {
	var items []DueItem
	query := `
		SELECT s.id AS schedule_id, s.report_id, r.user_id, r.item_name, r.status
		FROM report_schedules s
		JOIN reports r ON r.id = s.report_id
		WHERE s.delete_at <= $1 AND r.is_deleted = FALSE
		ORDER BY s.delete_at ASC
	`
	if err := r.db.SelectContext(ctx, &items, query, now); err != nil {
		return nil, fmt.Errorf("schedule repository: due deletions %w", err)
	}

	return items, nil
}

// CompleteDeletion мягко удаляет заявку и записывает финальное уведомление
// одной транзакцией. Если заявка уже удалена, шаг пропускается.
func (r *ScheduleRepository) CompleteDeletion(ctx context.Context, item DueItem, message string) (*models.Notification, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("schedule repository: delete begin %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE reports SET is_deleted = TRUE WHERE id = $1 AND is_deleted = FALSE`, item.ReportID)
	if err != nil {
		return nil, fmt.Errorf("schedule repository: delete mark %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("schedule repository: delete mark rows %w", err)
	}
	if affected == 0 {
		return nil, ErrScheduleStepDone
	}

	var n models.Notification
	err = tx.GetContext(ctx, &n, `
		INSERT INTO notifications (user_id, report_id, message, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, report_id, message, status, created_at
	`, item.UserID, item.ReportID, message, models.NotificationStatusUnread)
	if err != nil {
		return nil, fmt.Errorf("schedule repository: delete insert notification %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("schedule repository: delete commit %w", err)
	}

	return &n, nil
}
