package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/recorever/recorever-backend/internal/logger"
	"github.com/recorever/recorever-backend/internal/models"
	"github.com/recorever/recorever-backend/internal/pkg/apperror"
	"github.com/recorever/recorever-backend/internal/repository"
)

// Смещения расписания для lost-заявок относительно даты подачи.
// Первое предупреждение — за день до удаления, финальное — за 15 минут.
const (
	firstWarningAfterDays = 6
	finalWarningAfterDays = 7
	deleteGraceMinutes    = 15
)

// ReportStore описывает взаимодействие сервиса с хранилищем заявок.
type ReportStore interface {
	Create(ctx context.Context, report *models.Report, schedule *models.ReportSchedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	GetByIDAnyState(ctx context.Context, id uuid.UUID) (*models.Report, error)
	UpdateEditableFields(ctx context.Context, id uuid.UUID, itemName, location, description *string) error
	TransitionStatus(ctx context.Context, id uuid.UUID, fromStatus, toStatus string, resolvedAt *time.Time) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, f repository.SearchFilter) ([]models.Report, int, error)
	CountAll(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status string) (int, error)
	CountByKind(ctx context.Context, kind string) (int, error)
	ReportsOverTime(ctx context.Context, days int) ([]repository.DailyCount, error)
	TopLocations(ctx context.Context, limit int) ([]string, error)
}

// ReportScheduleStore читает расписания удаления.
type ReportScheduleStore interface {
	GetByReportID(ctx context.Context, reportID uuid.UUID) (*models.ReportSchedule, error)
}

// ReportImageStore подтягивает изображения заявок при выборке.
type ReportImageStore interface {
	ListByReports(ctx context.Context, reportIDs []uuid.UUID) (map[uuid.UUID][]models.Image, error)
}

// Matcher запускает подбор пары для одобренной заявки.
type Matcher interface {
	OnReportApproved(ctx context.Context, report *models.Report) (*models.Match, error)
}

// ReportNotifier создаёт уведомления о событиях заявки.
type ReportNotifier interface {
	Create(ctx context.Context, userID, reportID uuid.UUID, message string, privateUpdate bool) (*models.Notification, error)
	NotifyAdmins(ctx context.Context, reportID uuid.UUID, message string) error
}

// ReportService владеет жизненным циклом заявок: подача, администраторское
// решение, редактирование и мягкое удаление.
type ReportService struct {
	reports   ReportStore
	schedules ReportScheduleStore
	images    ReportImageStore
	matcher   Matcher
	notifier  ReportNotifier
}

// NewReportService создаёт сервис заявок.
func NewReportService(reports ReportStore, schedules ReportScheduleStore, images ReportImageStore, matcher Matcher, notifier ReportNotifier) *ReportService {
	return &ReportService{
		reports:   reports,
		schedules: schedules,
		images:    images,
		matcher:   matcher,
		notifier:  notifier,
	}
}

// SubmitInput данные новой заявки.
type SubmitInput struct {
	UserID        uuid.UUID
	Kind          string
	ItemName      string
	Location      string
	Description   string
	DateLostFound *string
}

// Submit создаёт заявку в статусе pending. Для found-заявки выпускается
// surrender-код, для lost-заявки — расписание удаления. Администраторы
// получают уведомление о новой заявке.
func (s *ReportService) Submit(ctx context.Context, in SubmitInput) (*models.Report, error) {
	if _, ok := models.ValidReportKinds[in.Kind]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "report kind must be lost or found")
	}
	if in.ItemName == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "item name is required")
	}

	report := &models.Report{
		UserID:        in.UserID,
		Kind:          in.Kind,
		ItemName:      in.ItemName,
		Location:      in.Location,
		Description:   in.Description,
		DateLostFound: in.DateLostFound,
		Status:        models.ReportStatusPending,
		ReportedAt:    time.Now(),
	}

	if in.Kind == models.ReportKindFound {
		code, err := GenerateCode()
		if err != nil {
			return nil, err
		}
		report.SurrenderCode = &code
	}

	// Для lost-заявки расписание вставляется той же транзакцией, что и
	// сама заявка: ReportID проставляет репозиторий после INSERT.
	var schedule *models.ReportSchedule
	if in.Kind == models.ReportKindLost {
		schedule = buildSchedule(report.ReportedAt)
	}

	if err := s.reports.Create(ctx, report, schedule); err != nil {
		return nil, err
	}

	if err := s.notifier.NotifyAdmins(ctx, report.ID,
		fmt.Sprintf("New pending report submitted: %s.", report.ItemName)); err != nil {
		logger.Log.WithError(err).Warn("report submit: admin notification failed")
	}

	return report, nil
}

// buildSchedule рассчитывает расписание относительно даты подачи:
// первое предупреждение в полночь шестого дня, финальное — седьмого,
// удаление через 15 минут после финального предупреждения.
func buildSchedule(submittedAt time.Time) *models.ReportSchedule {
	year, month, day := submittedAt.Date()
	loc := submittedAt.Location()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, loc)

	return &models.ReportSchedule{
		FirstWarningAt: midnight.AddDate(0, 0, firstWarningAfterDays),
		FinalWarningAt: midnight.AddDate(0, 0, finalWarningAfterDays),
		DeleteAt:       midnight.AddDate(0, 0, finalWarningAfterDays).Add(deleteGraceMinutes * time.Minute),
	}
}

// Decide применяет администраторское решение к pending-заявке. Одобрение
// переводит заявку в approved и запускает подбор пары; отклонение — в
// rejected. В обоих случаях владелец получает уведомление.
func (s *ReportService) Decide(ctx context.Context, reportID uuid.UUID, approve bool) error {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return apperror.ErrReportNotFound
		}
		return err
	}

	if report.Status != models.ReportStatusPending {
		return apperror.ErrReportNotPending
	}

	if !approve {
		now := time.Now()
		if err := s.reports.TransitionStatus(ctx, reportID, models.ReportStatusPending, models.ReportStatusRejected, &now); err != nil {
			if errors.Is(err, repository.ErrReportStateChanged) {
				return apperror.New(apperror.ErrCodeConflict, "report was decided concurrently")
			}
			return err
		}

		if _, err := s.notifier.Create(ctx, report.UserID, reportID,
			fmt.Sprintf("Your report for '%s' has been rejected.", report.ItemName), true); err != nil {
			logger.Log.WithError(err).Warn("report decide: reject notification failed")
		}

		return nil
	}

	if err := s.reports.TransitionStatus(ctx, reportID, models.ReportStatusPending, models.ReportStatusApproved, nil); err != nil {
		if errors.Is(err, repository.ErrReportStateChanged) {
			return apperror.New(apperror.ErrCodeConflict, "report was decided concurrently")
		}
		return err
	}
	report.Status = models.ReportStatusApproved

	if _, err := s.notifier.Create(ctx, report.UserID, reportID,
		fmt.Sprintf("Your report for '%s' has been approved and posted.", report.ItemName), true); err != nil {
		logger.Log.WithError(err).Warn("report decide: approve notification failed")
	}

	// Заявка уже одобрена; неудача подбора пары не отменяет решение и
	// будет видна в логах. Совпадение может быть найдено позже, когда
	// одобрят встречную заявку.
	if _, err := s.matcher.OnReportApproved(ctx, report); err != nil {
		logger.Log.WithError(err).WithField("report_id", reportID).Error("report decide: matching failed")
	}

	return nil
}

// EditInput редактируемые поля заявки, nil — поле не меняется.
type EditInput struct {
	ItemName    *string
	Location    *string
	Description *string
}

// Edit обновляет поля заявки, пока она в статусе pending. Любой другой
// статус — недопустимый переход.
func (s *ReportService) Edit(ctx context.Context, reportID uuid.UUID, in EditInput) error {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return apperror.ErrReportNotFound
		}
		return err
	}

	if report.Status != models.ReportStatusPending {
		return apperror.ErrReportNotEditable
	}

	if err := s.reports.UpdateEditableFields(ctx, reportID, in.ItemName, in.Location, in.Description); err != nil {
		// Проверка статуса входит в сам UPDATE: если одобрение успело
		// раньше, правка отклоняется как недопустимый переход.
		if errors.Is(err, repository.ErrReportStateChanged) {
			return apperror.ErrReportNotEditable
		}
		return err
	}

	return nil
}

// Delete мягко удаляет заявку в любом статусе. Повторное удаление
// различимо: уже удалённая заявка и отсутствующая дают разные ошибки.
func (s *ReportService) Delete(ctx context.Context, reportID uuid.UUID) error {
	if err := s.reports.SoftDelete(ctx, reportID); err != nil {
		switch {
		case errors.Is(err, repository.ErrReportNotFound):
			return apperror.ErrReportNotFound
		case errors.Is(err, repository.ErrReportDeleted):
			return apperror.ErrReportDeleted
		default:
			return err
		}
	}

	return nil
}

// Get возвращает заявку с изображениями.
func (s *ReportService) Get(ctx context.Context, reportID uuid.UUID) (*models.Report, error) {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return nil, apperror.ErrReportNotFound
		}
		return nil, err
	}

	images, err := s.images.ListByReports(ctx, []uuid.UUID{report.ID})
	if err != nil {
		return nil, err
	}
	report.Images = images[report.ID]

	return report, nil
}

// SearchInput параметры поиска заявок.
type SearchInput struct {
	UserID *uuid.UUID
	Kind   string
	Status string
	Query  string
	Page   int
	Size   int
}

// SearchResult страница заявок.
type SearchResult struct {
	Items       []models.Report `json:"items"`
	TotalItems  int             `json:"total_items"`
	CurrentPage int             `json:"current_page"`
	TotalPages  int             `json:"total_pages"`
}

// Search возвращает страницу заявок по фильтру вместе с изображениями.
func (s *ReportService) Search(ctx context.Context, in SearchInput) (*SearchResult, error) {
	if in.Page < 1 {
		in.Page = 1
	}
	if in.Size <= 0 || in.Size > 100 {
		in.Size = 20
	}

	items, total, err := s.reports.Search(ctx, repository.SearchFilter{
		UserID: in.UserID,
		Kind:   in.Kind,
		Status: in.Status,
		Query:  in.Query,
		Limit:  in.Size,
		Offset: (in.Page - 1) * in.Size,
	})
	if err != nil {
		return nil, err
	}

	if len(items) > 0 {
		ids := make([]uuid.UUID, len(items))
		for i := range items {
			ids[i] = items[i].ID
		}

		grouped, err := s.images.ListByReports(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range items {
			items[i].Images = grouped[items[i].ID]
		}
	}

	totalPages := (total + in.Size - 1) / in.Size
	return &SearchResult{
		Items:       items,
		TotalItems:  total,
		CurrentPage: in.Page,
		TotalPages:  totalPages,
	}, nil
}

// DashboardStats сводка для админского дашборда.
type DashboardStats struct {
	TotalReports    int                     `json:"total_reports"`
	Claimed         int                     `json:"successfully_claimed"`
	Pending         int                     `json:"pending_action"`
	LostFoundRatio  string                  `json:"lost_found_ratio"`
	ReportsOverTime []repository.DailyCount `json:"reports_over_time"`
	TopLocations    []string                `json:"top_locations"`
}

// Dashboard собирает сводку по заявкам за последние days дней.
func (s *ReportService) Dashboard(ctx context.Context, days int) (*DashboardStats, error) {
	if days <= 0 || days > 365 {
		days = 30
	}

	total, err := s.reports.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	claimed, err := s.reports.CountByStatus(ctx, models.ReportStatusClaimed)
	if err != nil {
		return nil, err
	}
	pending, err := s.reports.CountByStatus(ctx, models.ReportStatusPending)
	if err != nil {
		return nil, err
	}
	lost, err := s.reports.CountByKind(ctx, models.ReportKindLost)
	if err != nil {
		return nil, err
	}
	found, err := s.reports.CountByKind(ctx, models.ReportKindFound)
	if err != nil {
		return nil, err
	}

	series, err := s.reports.ReportsOverTime(ctx, days)
	if err != nil {
		return nil, err
	}

	locations, err := s.reports.TopLocations(ctx, 5)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		TotalReports:    total,
		Claimed:         claimed,
		Pending:         pending,
		LostFoundRatio:  fmt.Sprintf("%d/%d", lost, found),
		ReportsOverTime: series,
		TopLocations:    locations,
	}, nil
}

// Schedule возвращает расписание удаления lost-заявки.
func (s *ReportService) Schedule(ctx context.Context, reportID uuid.UUID) (*models.ReportSchedule, error) {
	schedule, err := s.schedules.GetByReportID(ctx, reportID)
	if err != nil {
		if errors.Is(err, repository.ErrScheduleNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "report schedule not found")
		}
		return nil, err
	}

	return schedule, nil
}
