package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/recorever/recorever-backend/internal/models"
	"github.com/recorever/recorever-backend/internal/pkg/apperror"
	"github.com/recorever/recorever-backend/internal/repository"
)

type mockReportStore struct {
	mock.Mock
}

func (m *mockReportStore) Create(ctx context.Context, report *models.Report, schedule *models.ReportSchedule) error {
	args := m.Called(ctx, report, schedule)
	if args.Error(0) == nil {
		report.ID = uuid.New()
		if schedule != nil {
			schedule.ReportID = report.ID
		}
	}
	return args.Error(0)
}

func (m *mockReportStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *mockReportStore) GetByIDAnyState(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *mockReportStore) UpdateEditableFields(ctx context.Context, id uuid.UUID, itemName, location, description *string) error {
	args := m.Called(ctx, id, itemName, location, description)
	return args.Error(0)
}

func (m *mockReportStore) TransitionStatus(ctx context.Context, id uuid.UUID, fromStatus, toStatus string, resolvedAt *time.Time) error {
	args := m.Called(ctx, id, fromStatus, toStatus, resolvedAt)
	return args.Error(0)
}

func (m *mockReportStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReportStore) Search(ctx context.Context, f repository.SearchFilter) ([]models.Report, int, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]models.Report), args.Int(1), args.Error(2)
}

func (m *mockReportStore) CountAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockReportStore) CountByStatus(ctx context.Context, status string) (int, error) {
	args := m.Called(ctx, status)
	return args.Int(0), args.Error(1)
}

func (m *mockReportStore) CountByKind(ctx context.Context, kind string) (int, error) {
	args := m.Called(ctx, kind)
	return args.Int(0), args.Error(1)
}

func (m *mockReportStore) ReportsOverTime(ctx context.Context, days int) ([]repository.DailyCount, error) {
	args := m.Called(ctx, days)
	return args.Get(0).([]repository.DailyCount), args.Error(1)
}

func (m *mockReportStore) TopLocations(ctx context.Context, limit int) ([]string, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]string), args.Error(1)
}

type mockScheduleStore struct {
	mock.Mock
}

func (m *mockScheduleStore) GetByReportID(ctx context.Context, reportID uuid.UUID) (*models.ReportSchedule, error) {
	args := m.Called(ctx, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReportSchedule), args.Error(1)
}

type mockImageStore struct {
	mock.Mock
}

func (m *mockImageStore) ListByReports(ctx context.Context, reportIDs []uuid.UUID) (map[uuid.UUID][]models.Image, error) {
	args := m.Called(ctx, reportIDs)
	return args.Get(0).(map[uuid.UUID][]models.Image), args.Error(1)
}

type mockMatcher struct {
	mock.Mock
}

func (m *mockMatcher) OnReportApproved(ctx context.Context, report *models.Report) (*models.Match, error) {
	args := m.Called(ctx, report)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

// mockReportNotifier запоминает уведомления владельцам и администраторам.
type mockReportNotifier struct {
	userMessages  map[uuid.UUID][]string
	adminMessages []string
	adminErr      error
}

func newMockReportNotifier() *mockReportNotifier {
	return &mockReportNotifier{userMessages: make(map[uuid.UUID][]string)}
}

func (m *mockReportNotifier) Create(ctx context.Context, userID, reportID uuid.UUID, message string, privateUpdate bool) (*models.Notification, error) {
	m.userMessages[userID] = append(m.userMessages[userID], message)
	return &models.Notification{UserID: userID, ReportID: reportID, Message: message}, nil
}

func (m *mockReportNotifier) NotifyAdmins(ctx context.Context, reportID uuid.UUID, message string) error {
	m.adminMessages = append(m.adminMessages, message)
	return m.adminErr
}

func newReportService(reports *mockReportStore, schedules *mockScheduleStore, matcher *mockMatcher, notifier *mockReportNotifier) *ReportService {
	return NewReportService(reports, schedules, new(mockImageStore), matcher, notifier)
}

func TestReportService_Submit_LostCreatesSchedule(t *testing.T) {
	reports := new(mockReportStore)
	schedules := new(mockScheduleStore)
	notifier := newMockReportNotifier()
	svc := newReportService(reports, schedules, new(mockMatcher), notifier)
	ctx := context.Background()

	var schedule *models.ReportSchedule
	reports.On("Create", ctx, mock.AnythingOfType("*models.Report"), mock.AnythingOfType("*models.ReportSchedule")).
		Run(func(args mock.Arguments) {
			schedule = args.Get(2).(*models.ReportSchedule)
		}).Return(nil)

	report, err := svc.Submit(ctx, SubmitInput{
		UserID:   uuid.New(),
		Kind:     models.ReportKindLost,
		ItemName: "black wallet",
		Location: "Main Library",
	})

	assert.NoError(t, err)
	assert.Equal(t, models.ReportStatusPending, report.Status)
	assert.Nil(t, report.SurrenderCode)
	assert.NotNil(t, schedule)
	assert.Equal(t, report.ID, schedule.ReportID)
	assert.Equal(t, []string{"New pending report submitted: black wallet."}, notifier.adminMessages)
}

// Заявка и расписание передаются в хранилище одним вызовом: если вставка
// не удалась, подача завершается ошибкой и заявка не остаётся в базе без
// расписания.
func TestReportService_Submit_ScheduleInsertFailureFailsSubmit(t *testing.T) {
	reports := new(mockReportStore)
	notifier := newMockReportNotifier()
	svc := newReportService(reports, new(mockScheduleStore), new(mockMatcher), notifier)
	ctx := context.Background()

	storeErr := errors.New("report repository: create schedule pq: deadlock detected")
	reports.On("Create", ctx, mock.AnythingOfType("*models.Report"), mock.AnythingOfType("*models.ReportSchedule")).
		Return(storeErr)

	_, err := svc.Submit(ctx, SubmitInput{
		UserID:   uuid.New(),
		Kind:     models.ReportKindLost,
		ItemName: "black wallet",
		Location: "Main Library",
	})

	assert.ErrorIs(t, err, storeErr)
	reports.AssertNumberOfCalls(t, "Create", 1)
	assert.Empty(t, notifier.adminMessages)
}

func TestReportService_Submit_FoundIssuesSurrenderCode(t *testing.T) {
	reports := new(mockReportStore)
	schedules := new(mockScheduleStore)
	svc := newReportService(reports, schedules, new(mockMatcher), newMockReportNotifier())
	ctx := context.Background()

	reports.On("Create", ctx, mock.AnythingOfType("*models.Report"), (*models.ReportSchedule)(nil)).Return(nil)

	report, err := svc.Submit(ctx, SubmitInput{
		UserID:   uuid.New(),
		Kind:     models.ReportKindFound,
		ItemName: "umbrella",
		Location: "Cafeteria",
	})

	assert.NoError(t, err)
	assert.NotNil(t, report.SurrenderCode)
	assert.Len(t, *report.SurrenderCode, CodeLength)
	reports.AssertExpectations(t)
}

func TestReportService_Submit_InvalidKind(t *testing.T) {
	svc := newReportService(new(mockReportStore), new(mockScheduleStore), new(mockMatcher), newMockReportNotifier())

	_, err := svc.Submit(context.Background(), SubmitInput{
		UserID:   uuid.New(),
		Kind:     "stolen",
		ItemName: "wallet",
	})

	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeValidation, appErr.Code)
}

func TestBuildSchedule(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	submitted := time.Date(2026, time.March, 10, 14, 35, 12, 0, loc)

	schedule := buildSchedule(submitted)

	assert.Equal(t, time.Date(2026, time.March, 16, 0, 0, 0, 0, loc), schedule.FirstWarningAt)
	assert.Equal(t, time.Date(2026, time.March, 17, 0, 0, 0, 0, loc), schedule.FinalWarningAt)
	assert.Equal(t, time.Date(2026, time.March, 17, 0, 15, 0, 0, loc), schedule.DeleteAt)
}

func TestReportService_Decide_Approve(t *testing.T) {
	reports := new(mockReportStore)
	matcher := new(mockMatcher)
	notifier := newMockReportNotifier()
	svc := newReportService(reports, new(mockScheduleStore), matcher, notifier)
	ctx := context.Background()

	report := lostReport("wallet", "Main Library", "")
	report.Status = models.ReportStatusPending

	reports.On("GetByID", ctx, report.ID).Return(report, nil)
	reports.On("TransitionStatus", ctx, report.ID, models.ReportStatusPending, models.ReportStatusApproved, (*time.Time)(nil)).
		Return(nil)
	matcher.On("OnReportApproved", ctx, mock.MatchedBy(func(r *models.Report) bool {
		return r.ID == report.ID && r.Status == models.ReportStatusApproved
	})).Return(nil, nil)

	err := svc.Decide(ctx, report.ID, true)

	assert.NoError(t, err)
	assert.Equal(t, []string{"Your report for 'wallet' has been approved and posted."}, notifier.userMessages[report.UserID])
	matcher.AssertExpectations(t)
}

func TestReportService_Decide_Reject(t *testing.T) {
	reports := new(mockReportStore)
	notifier := newMockReportNotifier()
	svc := newReportService(reports, new(mockScheduleStore), new(mockMatcher), notifier)
	ctx := context.Background()

	report := lostReport("wallet", "Main Library", "")
	report.Status = models.ReportStatusPending

	reports.On("GetByID", ctx, report.ID).Return(report, nil)
	reports.On("TransitionStatus", ctx, report.ID, models.ReportStatusPending, models.ReportStatusRejected, mock.AnythingOfType("*time.Time")).
		Return(nil)

	err := svc.Decide(ctx, report.ID, false)

	assert.NoError(t, err)
	assert.Equal(t, []string{"Your report for 'wallet' has been rejected."}, notifier.userMessages[report.UserID])
}

func TestReportService_Decide_NotPending(t *testing.T) {
	reports := new(mockReportStore)
	svc := newReportService(reports, new(mockScheduleStore), new(mockMatcher), newMockReportNotifier())
	ctx := context.Background()

	report := lostReport("wallet", "Main Library", "")
	report.Status = models.ReportStatusApproved
	reports.On("GetByID", ctx, report.ID).Return(report, nil)

	err := svc.Decide(ctx, report.ID, true)

	assert.ErrorIs(t, err, apperror.ErrReportNotPending)
	reports.AssertNotCalled(t, "TransitionStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReportService_Decide_ConcurrentDecision(t *testing.T) {
	reports := new(mockReportStore)
	svc := newReportService(reports, new(mockScheduleStore), new(mockMatcher), newMockReportNotifier())
	ctx := context.Background()

	report := lostReport("wallet", "Main Library", "")
	report.Status = models.ReportStatusPending

	reports.On("GetByID", ctx, report.ID).Return(report, nil)
	reports.On("TransitionStatus", ctx, report.ID, models.ReportStatusPending, models.ReportStatusApproved, (*time.Time)(nil)).
		Return(repository.ErrReportStateChanged)

	err := svc.Decide(ctx, report.ID, true)

	assert.True(t, apperror.IsConflict(err))
}

func TestReportService_Decide_MatchingFailureDoesNotFailDecision(t *testing.T) {
	reports := new(mockReportStore)
	matcher := new(mockMatcher)
	svc := newReportService(reports, new(mockScheduleStore), matcher, newMockReportNotifier())
	ctx := context.Background()

	report := lostReport("wallet", "Main Library", "")
	report.Status = models.ReportStatusPending

	reports.On("GetByID", ctx, report.ID).Return(report, nil)
	reports.On("TransitionStatus", ctx, report.ID, models.ReportStatusPending, models.ReportStatusApproved, (*time.Time)(nil)).
		Return(nil)
	matcher.On("OnReportApproved", ctx, mock.Anything).Return(nil, errors.New("db down"))

	err := svc.Decide(ctx, report.ID, true)

	assert.NoError(t, err)
}

func TestReportService_Edit_NotPending(t *testing.T) {
	reports := new(mockReportStore)
	svc := newReportService(reports, new(mockScheduleStore), new(mockMatcher), newMockReportNotifier())
	ctx := context.Background()

	report := lostReport("wallet", "Main Library", "")
	report.Status = models.ReportStatusMatched
	reports.On("GetByID", ctx, report.ID).Return(report, nil)

	name := "brown wallet"
	err := svc.Edit(ctx, report.ID, EditInput{ItemName: &name})

	assert.ErrorIs(t, err, apperror.ErrReportNotEditable)
}

func TestReportService_Edit_LosesRaceWithApproval(t *testing.T) {
	reports := new(mockReportStore)
	svc := newReportService(reports, new(mockScheduleStore), new(mockMatcher), newMockReportNotifier())
	ctx := context.Background()

	report := lostReport("wallet", "Main Library", "")
	report.Status = models.ReportStatusPending
	reports.On("GetByID", ctx, report.ID).Return(report, nil)

	name := "brown wallet"
	reports.On("UpdateEditableFields", ctx, report.ID, &name, (*string)(nil), (*string)(nil)).
		Return(repository.ErrReportStateChanged)

	err := svc.Edit(ctx, report.ID, EditInput{ItemName: &name})

	assert.ErrorIs(t, err, apperror.ErrReportNotEditable)
}

func TestReportService_Delete_AlreadyDeleted(t *testing.T) {
	reports := new(mockReportStore)
	svc := newReportService(reports, new(mockScheduleStore), new(mockMatcher), newMockReportNotifier())
	ctx := context.Background()

	reportID := uuid.New()
	reports.On("SoftDelete", ctx, reportID).Return(repository.ErrReportDeleted)

	err := svc.Delete(ctx, reportID)

	assert.ErrorIs(t, err, apperror.ErrReportDeleted)
}

func TestReportService_Search_ClampsPagination(t *testing.T) {
	reports := new(mockReportStore)
	svc := newReportService(reports, new(mockScheduleStore), new(mockMatcher), newMockReportNotifier())
	ctx := context.Background()

	reports.On("Search", ctx, mock.MatchedBy(func(f repository.SearchFilter) bool {
		return f.Limit == 20 && f.Offset == 0
	})).Return([]models.Report{}, 0, nil)

	result, err := svc.Search(ctx, SearchInput{Page: -3, Size: 1000})

	assert.NoError(t, err)
	assert.Equal(t, 1, result.CurrentPage)
	assert.Equal(t, 0, result.TotalPages)
	reports.AssertExpectations(t)
}
