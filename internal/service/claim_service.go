package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/recorever/recorever-backend/internal/logger"
	"github.com/recorever/recorever-backend/internal/metrics"
	"github.com/recorever/recorever-backend/internal/models"
	"github.com/recorever/recorever-backend/internal/pkg/apperror"
	"github.com/recorever/recorever-backend/internal/repository"
)

// ClaimStore описывает взаимодействие сервиса с хранилищем заявлений.
type ClaimStore interface {
	Create(ctx context.Context, claim *models.Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Claim, error)
	ListByReport(ctx context.Context, reportID uuid.UUID) ([]models.Claim, error)
	ListByClaimant(ctx context.Context, claimantID uuid.UUID) ([]models.Claim, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.Claim, error)
	FindClaimCode(ctx context.Context, claimantID, reportID uuid.UUID) (string, error)
	Approve(ctx context.Context, p repository.ApproveParams) (*repository.ApproveResult, error)
	Reject(ctx context.Context, claimID uuid.UUID, remarks, message string) (*models.Claim, *models.Notification, error)
}

// ClaimReportReader читает заявку, к которой подаётся заявление.
type ClaimReportReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
}

// ClaimNotifier уведомляет администраторов и доставляет live записанные
// в транзакции решения уведомления.
type ClaimNotifier interface {
	NotifyAdmins(ctx context.Context, reportID uuid.UUID, message string) error
	PushLive(notifications []models.Notification, privateUpdate bool)
}

// ClaimService владеет жизненным циклом заявлений на владение: подача,
// одобрение с выпуском кода выдачи и каскадным отклонением остальных,
// отклонение с примечанием.
type ClaimService struct {
	claims   ClaimStore
	reports  ClaimReportReader
	notifier ClaimNotifier
}

// NewClaimService создаёт сервис заявлений.
func NewClaimService(claims ClaimStore, reports ClaimReportReader, notifier ClaimNotifier) *ClaimService {
	return &ClaimService{claims: claims, reports: reports, notifier: notifier}
}

// Submit создаёт заявление в статусе pending. Заявка должна существовать и
// не быть удалённой. Администраторы получают уведомление о новом заявлении.
func (s *ClaimService) Submit(ctx context.Context, reportID, claimantID uuid.UUID) (*models.Claim, error) {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return nil, apperror.ErrReportNotFound
		}
		return nil, err
	}

	if report.Status == models.ReportStatusClaimed {
		return nil, apperror.ErrReportAlreadyClaimed
	}

	claim := &models.Claim{
		ReportID:   reportID,
		ClaimantID: claimantID,
		Status:     models.ClaimStatusPending,
	}
	if err := s.claims.Create(ctx, claim); err != nil {
		return nil, err
	}

	if err := s.notifier.NotifyAdmins(ctx, reportID,
		fmt.Sprintf("New claim submitted for '%s'.", report.ItemName)); err != nil {
		logger.Log.WithError(err).Warn("claim submit: admin notification failed")
	}

	return claim, nil
}

// Approve одобряет заявление: выпускает код выдачи, переводит заявление и
// заявку в claimed, отклоняет остальные pending-заявления по той же заявке.
// Победитель получает уведомление с кодом, проигравшие — об отклонении.
// Конкурентное решение по тому же заявлению даёт конфликт.
func (s *ClaimService) Approve(ctx context.Context, claimID uuid.UUID, remarks string) (*models.Claim, error) {
	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, repository.ErrClaimNotFound) {
			return nil, apperror.ErrClaimNotFound
		}
		return nil, err
	}

	report, err := s.reports.GetByID(ctx, claim.ReportID)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return nil, apperror.ErrReportNotFound
		}
		return nil, err
	}

	code, err := GenerateCode()
	if err != nil {
		return nil, err
	}

	result, err := s.claims.Approve(ctx, repository.ApproveParams{
		ClaimID: claimID,
		Code:    code,
		Remarks: remarks,
		ApprovedMessage: fmt.Sprintf(
			"Your claim for '%s' has been approved. Your claim code is %s. Present it to collect the item.",
			report.ItemName, code),
		RejectedMessage: fmt.Sprintf(
			"Your claim for '%s' was rejected: the item has been awarded to another claimant.",
			report.ItemName),
		RejectedRemark: "Item awarded to another claimant",
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrClaimNotFound):
			return nil, apperror.ErrClaimNotFound
		case errors.Is(err, repository.ErrClaimResolved):
			return nil, apperror.ErrClaimAlreadyResolved
		case errors.Is(err, repository.ErrReportNotFound):
			return nil, apperror.ErrReportNotFound
		default:
			return nil, err
		}
	}

	metrics.ClaimsResolved.WithLabelValues("approved").Inc()
	if result.RejectedCount > 0 {
		metrics.ClaimsResolved.WithLabelValues("auto_rejected").Add(float64(result.RejectedCount))
	}

	logger.Log.WithFields(map[string]interface{}{
		"claim_id":      claimID,
		"report_id":     claim.ReportID,
		"auto_rejected": result.RejectedCount,
	}).Info("claim approved")

	s.notifier.PushLive(result.Notifications, true)

	return result.Claim, nil
}

// Reject отклоняет заявление с примечанием администратора. Заявитель
// получает уведомление. Уже рассмотренное заявление даёт конфликт.
func (s *ClaimService) Reject(ctx context.Context, claimID uuid.UUID, remarks string) (*models.Claim, error) {
	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, repository.ErrClaimNotFound) {
			return nil, apperror.ErrClaimNotFound
		}
		return nil, err
	}

	report, err := s.reports.GetByID(ctx, claim.ReportID)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return nil, apperror.ErrReportNotFound
		}
		return nil, err
	}

	message := fmt.Sprintf("Your claim for '%s' has been rejected.", report.ItemName)
	if remarks != "" {
		message = fmt.Sprintf("Your claim for '%s' has been rejected. Remarks: %s", report.ItemName, remarks)
	}

	rejected, notification, err := s.claims.Reject(ctx, claimID, remarks, message)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrClaimNotFound):
			return nil, apperror.ErrClaimNotFound
		case errors.Is(err, repository.ErrClaimResolved):
			return nil, apperror.ErrClaimAlreadyResolved
		default:
			return nil, err
		}
	}

	metrics.ClaimsResolved.WithLabelValues("rejected").Inc()

	s.notifier.PushLive([]models.Notification{*notification}, true)

	return rejected, nil
}

// Get возвращает заявление по идентификатору.
func (s *ClaimService) Get(ctx context.Context, claimID uuid.UUID) (*models.Claim, error) {
	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, repository.ErrClaimNotFound) {
			return nil, apperror.ErrClaimNotFound
		}
		return nil, err
	}

	return claim, nil
}

// ListByReport возвращает заявления по заявке.
func (s *ClaimService) ListByReport(ctx context.Context, reportID uuid.UUID) ([]models.Claim, error) {
	return s.claims.ListByReport(ctx, reportID)
}

// ListByClaimant возвращает заявления пользователя.
func (s *ClaimService) ListByClaimant(ctx context.Context, claimantID uuid.UUID) ([]models.Claim, error) {
	return s.claims.ListByClaimant(ctx, claimantID)
}

// ListAll возвращает заявления для админского списка.
func (s *ClaimService) ListAll(ctx context.Context, page, size int) ([]models.Claim, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}

	return s.claims.ListAll(ctx, size, (page-1)*size)
}

// ClaimCode возвращает код выдачи по паре пользователь/заявка.
func (s *ClaimService) ClaimCode(ctx context.Context, claimantID, reportID uuid.UUID) (string, error) {
	code, err := s.claims.FindClaimCode(ctx, claimantID, reportID)
	if err != nil {
		if errors.Is(err, repository.ErrClaimCodeNotFound) {
			return "", apperror.New(apperror.ErrCodeNotFound, "claim code not found")
		}
		return "", err
	}

	return code, nil
}
