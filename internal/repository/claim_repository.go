package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/recorever/recorever-backend/internal/models"
)

var (
	// ErrClaimNotFound возвращается, когда заявление не найдено.
	ErrClaimNotFound = errors.New("claim not found")
	// ErrClaimResolved возвращается, когда заявление уже рассмотрено:
	// конкурентное решение успело раньше.
	ErrClaimResolved = errors.New("claim already resolved")
	// ErrClaimCodeNotFound возвращается, когда код выдачи не найден.
	ErrClaimCodeNotFound = errors.New("claim code not found")
)

// ClaimRepository отвечает за работу с таблицей claims. Одобрение заявления
// затрагивает claims, reports и notifications в одной транзакции.
type ClaimRepository struct {
	db *sqlx.DB
}

// NewClaimRepository создаёт экземпляр репозитория.
func NewClaimRepository(db *sqlx.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// Create создаёт новое заявление в статусе pending.
func (r *ClaimRepository) Create(ctx context.Context, claim *models.Claim) error {
	query := `
		INSERT INTO claims (report_id, claimant_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		claim.ReportID, claim.ClaimantID, claim.Status,
	).Scan(&claim.ID, &claim.CreatedAt); err != nil {
		return fmt.Errorf("claim repository: create %w", err)
	}

	return nil
}

// GetByID возвращает заявление по идентификатору.
func (r *ClaimRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Claim, error) {
	var claim models.Claim
	query := `
		SELECT id, report_id, claimant_id, status, admin_remarks, claim_code, created_at, resolved_at
		FROM claims
		WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &claim, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClaimNotFound
		}
		return nil, fmt.Errorf("claim repository: get by id %w", err)
	}

	return &claim, nil
}

// ListByReport возвращает заявления по заявке.
func (r *ClaimRepository) ListByReport(ctx context.Context, reportID uuid.UUID) ([]models.Claim, error) {
	var claims []models.Claim
	query := `
		SELECT c.id, c.report_id, c.claimant_id, c.status, c.admin_remarks,
		       c.claim_code, c.created_at, c.resolved_at,
		       COALESCE(u.name, '') AS claimant_name
		FROM claims c
		LEFT JOIN users u ON u.id = c.claimant_id
		WHERE c.report_id = $1
		ORDER BY c.created_at ASC
	`
	if err := r.db.SelectContext(ctx, &claims, query, reportID); err != nil {
		return nil, fmt.Errorf("claim repository: list by report %w", err)
	}

	return claims, nil
}

// ListByClaimant возвращает заявления пользователя.
func (r *ClaimRepository) ListByClaimant(ctx context.Context, claimantID uuid.UUID) ([]models.Claim, error) {
	var claims []models.Claim
	query := `
		SELECT c.id, c.report_id, c.claimant_id, c.status, c.admin_remarks,
		       c.claim_code, c.created_at, c.resolved_at,
		       COALESCE(r.item_name, '') AS item_name
		FROM claims c
		LEFT JOIN reports r ON r.id = c.report_id
		WHERE c.claimant_id = $1
		ORDER BY c.created_at DESC
	`
	if err := r.db.SelectContext(ctx, &claims, query, claimantID); err != nil {
		return nil, fmt.Errorf("claim repository: list by claimant %w", err)
	}

	return claims, nil
}

// ListAll возвращает все заявления для админского списка.
func (r *ClaimRepository) ListAll(ctx context.Context, limit, offset int) ([]models.Claim, error) {
	var claims []models.Claim
	query := `
		SELECT c.id, c.report_id, c.claimant_id, c.status, c.admin_remarks,
		       c.claim_code, c.created_at, c.resolved_at,
		       COALESCE(u.name, '') AS claimant_name,
		       COALESCE(r.item_name, '') AS item_name
		FROM claims c
		LEFT JOIN users u ON u.id = c.claimant_id
		LEFT JOIN reports r ON r.id = c.report_id
		ORDER BY c.created_at DESC
		LIMIT $1 OFFSET $2
	`
	if err := r.db.SelectContext(ctx, &claims, query, limit, offset); err != nil {
		return nil, fmt.Errorf("claim repository: list all %w", err)
	}

	return claims, nil
}

// FindClaimCode возвращает код выдачи по паре пользователь/заявка.
func (r *ClaimRepository) FindClaimCode(ctx context.Context, claimantID, reportID uuid.UUID) (string, error) {
	var code string
	query := `
		SELECT claim_code FROM claims
		WHERE claimant_id = $1 AND report_id = $2 AND claim_code IS NOT NULL
	`
	if err := r.db.GetContext(ctx, &code, query, claimantID, reportID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrClaimCodeNotFound
		}
		return "", fmt.Errorf("claim repository: find claim code %w", err)
	}

	return code, nil
}

// ApproveParams входные данные одобрения заявления.
type ApproveParams struct {
	ClaimID uuid.UUID
	Code    string
	Remarks string
	// ApprovedMessage отправляется победившему заявителю,
	// RejectedMessage — каждому автоматически отклонённому.
	ApprovedMessage string
	RejectedMessage string
	RejectedRemark  string
}

// ApproveResult итог одобрения: обновлённое заявление и созданные в той же
// транзакции уведомления для последующей live-доставки.
type ApproveResult struct {
	Claim         *models.Claim
	RejectedCount int
	Notifications []models.Notification
}

// Approve выполняет одобрение заявления как одну транзакцию: блокирует
// заявку, переводит заявление в claimed с кодом, заявку — в claimed,
// отклоняет все остальные незавершённые заявления по той же заявке и
// записывает уведомления. Конкурентное одобрение другого заявления по той же
// заявке сериализуется на блокировке строки reports и получает ErrClaimResolved.
func (r *ClaimRepository) Approve(ctx context.Context, p ApproveParams) (*ApproveResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("claim repository: approve begin %w", err)
	}
	defer tx.Rollback()

	// Сначала находим заявку по заявлению и блокируем её строку: это точка
	// сериализации всех решений по одной заявке.
	var reportID uuid.UUID
	if err := tx.GetContext(ctx, &reportID, `SELECT report_id FROM claims WHERE id = $1`, p.ClaimID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClaimNotFound
		}
		return nil, fmt.Errorf("claim repository: approve find report %w", err)
	}

	var report models.Report
	err = tx.GetContext(ctx, &report, `
		SELECT id, user_id, kind, item_name, location, description, status,
		       date_lost_found, surrender_code, reported_at, resolved_at, is_deleted
		FROM reports WHERE id = $1 FOR UPDATE
	`, reportID)
	if err != nil {
		return nil, fmt.Errorf("claim repository: approve lock report %w", err)
	}
	if report.IsDeleted {
		return nil, ErrReportNotFound
	}

	// Под блокировкой перечитываем заявление: если конкурентное решение
	// успело раньше, статус уже не pending.
	var claim models.Claim
	err = tx.GetContext(ctx, &claim, `
		SELECT id, report_id, claimant_id, status, admin_remarks, claim_code, created_at, resolved_at
		FROM claims WHERE id = $1
	`, p.ClaimID)
	if err != nil {
		return nil, fmt.Errorf("claim repository: approve reread claim %w", err)
	}
	if claim.Status != models.ClaimStatusPending {
		return nil, ErrClaimResolved
	}

	now := time.Now()

	err = tx.GetContext(ctx, &claim, `
		UPDATE claims
		SET status = $2, claim_code = $3, admin_remarks = $4, resolved_at = $5
		WHERE id = $1
		RETURNING id, report_id, claimant_id, status, admin_remarks, claim_code, created_at, resolved_at
	`, p.ClaimID, models.ClaimStatusClaimed, p.Code, p.Remarks, now)
	if err != nil {
		return nil, fmt.Errorf("claim repository: approve update claim %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE reports SET status = $2, resolved_at = $3 WHERE id = $1
	`, reportID, models.ReportStatusClaimed, now); err != nil {
		return nil, fmt.Errorf("claim repository: approve update report %w", err)
	}

	// Каскадное отклонение всех остальных незавершённых заявлений.
	var rejectedClaimants []uuid.UUID
	if err := tx.SelectContext(ctx, &rejectedClaimants, `
		UPDATE claims
		SET status = $3, admin_remarks = $4, resolved_at = $5
		WHERE report_id = $1 AND id <> $2 AND status <> $3
		RETURNING claimant_id
	`, reportID, p.ClaimID, models.ClaimStatusRejected, p.RejectedRemark, now); err != nil {
		return nil, fmt.Errorf("claim repository: approve reject others %w", err)
	}

	result := &ApproveResult{Claim: &claim, RejectedCount: len(rejectedClaimants)}

	recipients := append([]uuid.UUID{claim.ClaimantID}, rejectedClaimants...)
	messages := make([]string, len(recipients))
	messages[0] = p.ApprovedMessage
	for i := 1; i < len(messages); i++ {
		messages[i] = p.RejectedMessage
	}

	for i, recipient := range recipients {
		var n models.Notification
		err := tx.GetContext(ctx, &n, `
			INSERT INTO notifications (user_id, report_id, message, status)
			VALUES ($1, $2, $3, $4)
			RETURNING id, user_id, report_id, message, status, created_at
		`, recipient, reportID, messages[i], models.NotificationStatusUnread)
		if err != nil {
			return nil, fmt.Errorf("claim repository: approve insert notification %w", err)
		}
		result.Notifications = append(result.Notifications, n)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("claim repository: approve commit %w", err)
	}

	return result, nil
}

// Reject отклоняет заявление и записывает уведомление заявителю в одной
// транзакции. Возвращает ErrClaimResolved, если заявление уже рассмотрено.
func (r *ClaimRepository) Reject(ctx context.Context, claimID uuid.UUID, remarks, message string) (*models.Claim, *models.Notification, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("claim repository: reject begin %w", err)
	}
	defer tx.Rollback()

	var claim models.Claim
	err = tx.GetContext(ctx, &claim, `
		UPDATE claims
		SET status = $2, admin_remarks = $3, resolved_at = $4
		WHERE id = $1 AND status = $5
		RETURNING id, report_id, claimant_id, status, admin_remarks, claim_code, created_at, resolved_at
	`, claimID, models.ClaimStatusRejected, remarks, time.Now(), models.ClaimStatusPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Различаем отсутствие заявления и уже принятое решение.
			var exists bool
			if err := tx.GetContext(ctx, &exists, `SELECT TRUE FROM claims WHERE id = $1`, claimID); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, nil, ErrClaimNotFound
				}
				return nil, nil, fmt.Errorf("claim repository: reject recheck %w", err)
			}
			return nil, nil, ErrClaimResolved
		}
		return nil, nil, fmt.Errorf("claim repository: reject update %w", err)
	}

	var n models.Notification
	err = tx.GetContext(ctx, &n, `
		INSERT INTO notifications (user_id, report_id, message, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, report_id, message, status, created_at
	`, claim.ClaimantID, claim.ReportID, message, models.NotificationStatusUnread)
	if err != nil {
		return nil, nil, fmt.Errorf("claim repository: reject insert notification %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("claim repository: reject commit %w", err)
	}

	return &claim, &n, nil
}
