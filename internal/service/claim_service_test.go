package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/recorever/recorever-backend/internal/models"
	"github.com/recorever/recorever-backend/internal/pkg/apperror"
	"github.com/recorever/recorever-backend/internal/repository"
)

type mockClaimStore struct {
	mock.Mock
}

func (m *mockClaimStore) Create(ctx context.Context, claim *models.Claim) error {
	args := m.Called(ctx, claim)
	if args.Error(0) == nil {
		claim.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockClaimStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Claim, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Claim), args.Error(1)
}

func (m *mockClaimStore) ListByReport(ctx context.Context, reportID uuid.UUID) ([]models.Claim, error) {
	args := m.Called(ctx, reportID)
	return args.Get(0).([]models.Claim), args.Error(1)
}

func (m *mockClaimStore) ListByClaimant(ctx context.Context, claimantID uuid.UUID) ([]models.Claim, error) {
	args := m.Called(ctx, claimantID)
	return args.Get(0).([]models.Claim), args.Error(1)
}

func (m *mockClaimStore) ListAll(ctx context.Context, limit, offset int) ([]models.Claim, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.Claim), args.Error(1)
}

func (m *mockClaimStore) FindClaimCode(ctx context.Context, claimantID, reportID uuid.UUID) (string, error) {
	args := m.Called(ctx, claimantID, reportID)
	return args.String(0), args.Error(1)
}

func (m *mockClaimStore) Approve(ctx context.Context, p repository.ApproveParams) (*repository.ApproveResult, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.ApproveResult), args.Error(1)
}

func (m *mockClaimStore) Reject(ctx context.Context, claimID uuid.UUID, remarks, message string) (*models.Claim, *models.Notification, error) {
	args := m.Called(ctx, claimID, remarks, message)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.Claim), args.Get(1).(*models.Notification), args.Error(2)
}

type mockClaimReportReader struct {
	mock.Mock
}

func (m *mockClaimReportReader) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

// mockClaimNotifier записывает уведомления администраторам и live-доставки.
type mockClaimNotifier struct {
	adminMessages []string
	adminErr      error
	pushed        []models.Notification
}

func (m *mockClaimNotifier) NotifyAdmins(ctx context.Context, reportID uuid.UUID, message string) error {
	m.adminMessages = append(m.adminMessages, message)
	return m.adminErr
}

func (m *mockClaimNotifier) PushLive(notifications []models.Notification, privateUpdate bool) {
	m.pushed = append(m.pushed, notifications...)
}

func TestClaimService_Submit_Success(t *testing.T) {
	claims := new(mockClaimStore)
	reports := new(mockClaimReportReader)
	notifier := &mockClaimNotifier{}
	svc := NewClaimService(claims, reports, notifier)
	ctx := context.Background()

	report := foundReport("wallet", "Main Library", "")
	claimantID := uuid.New()

	reports.On("GetByID", ctx, report.ID).Return(&report, nil)
	claims.On("Create", ctx, mock.AnythingOfType("*models.Claim")).Return(nil)

	claim, err := svc.Submit(ctx, report.ID, claimantID)

	assert.NoError(t, err)
	assert.Equal(t, models.ClaimStatusPending, claim.Status)
	assert.Equal(t, claimantID, claim.ClaimantID)
	assert.Equal(t, []string{"New claim submitted for 'wallet'."}, notifier.adminMessages)
}

func TestClaimService_Submit_ReportAlreadyClaimed(t *testing.T) {
	claims := new(mockClaimStore)
	reports := new(mockClaimReportReader)
	svc := NewClaimService(claims, reports, &mockClaimNotifier{})
	ctx := context.Background()

	report := foundReport("wallet", "Main Library", "")
	report.Status = models.ReportStatusClaimed

	reports.On("GetByID", ctx, report.ID).Return(&report, nil)

	_, err := svc.Submit(ctx, report.ID, uuid.New())

	assert.ErrorIs(t, err, apperror.ErrReportAlreadyClaimed)
	claims.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestClaimService_Submit_ReportNotFound(t *testing.T) {
	claims := new(mockClaimStore)
	reports := new(mockClaimReportReader)
	svc := NewClaimService(claims, reports, &mockClaimNotifier{})
	ctx := context.Background()

	reportID := uuid.New()
	reports.On("GetByID", ctx, reportID).Return(nil, repository.ErrReportNotFound)

	_, err := svc.Submit(ctx, reportID, uuid.New())

	assert.ErrorIs(t, err, apperror.ErrReportNotFound)
}

func TestClaimService_Approve_Success(t *testing.T) {
	claims := new(mockClaimStore)
	reports := new(mockClaimReportReader)
	notifier := &mockClaimNotifier{}
	svc := NewClaimService(claims, reports, notifier)
	ctx := context.Background()

	report := foundReport("wallet", "Main Library", "")
	claimID := uuid.New()
	winnerID := uuid.New()
	pending := &models.Claim{ID: claimID, ReportID: report.ID, ClaimantID: winnerID, Status: models.ClaimStatusPending}

	claims.On("GetByID", ctx, claimID).Return(pending, nil)
	reports.On("GetByID", ctx, report.ID).Return(&report, nil)

	var captured repository.ApproveParams
	claims.On("Approve", ctx, mock.MatchedBy(func(p repository.ApproveParams) bool {
		captured = p
		return p.ClaimID == claimID && p.Code != ""
	})).Return(&repository.ApproveResult{
		Claim:         &models.Claim{ID: claimID, ReportID: report.ID, ClaimantID: winnerID, Status: models.ClaimStatusClaimed},
		RejectedCount: 2,
		Notifications: []models.Notification{
			{UserID: winnerID, ReportID: report.ID},
			{UserID: uuid.New(), ReportID: report.ID},
			{UserID: uuid.New(), ReportID: report.ID},
		},
	}, nil)

	approved, err := svc.Approve(ctx, claimID, "verified ownership")

	assert.NoError(t, err)
	assert.Equal(t, models.ClaimStatusClaimed, approved.Status)
	assert.Contains(t, captured.ApprovedMessage, "Your claim for 'wallet' has been approved.")
	assert.Contains(t, captured.ApprovedMessage, captured.Code)
	assert.Contains(t, captured.RejectedMessage, "awarded to another claimant")
	assert.Equal(t, "Item awarded to another claimant", captured.RejectedRemark)
	// Уведомления победителю и обоим проигравшим доставляются live.
	assert.Len(t, notifier.pushed, 3)
}

func TestClaimService_Approve_AlreadyResolved(t *testing.T) {
	claims := new(mockClaimStore)
	reports := new(mockClaimReportReader)
	svc := NewClaimService(claims, reports, &mockClaimNotifier{})
	ctx := context.Background()

	report := foundReport("wallet", "Main Library", "")
	claimID := uuid.New()
	pending := &models.Claim{ID: claimID, ReportID: report.ID, Status: models.ClaimStatusPending}

	claims.On("GetByID", ctx, claimID).Return(pending, nil)
	reports.On("GetByID", ctx, report.ID).Return(&report, nil)
	claims.On("Approve", ctx, mock.Anything).Return(nil, repository.ErrClaimResolved)

	_, err := svc.Approve(ctx, claimID, "")

	assert.ErrorIs(t, err, apperror.ErrClaimAlreadyResolved)
}

func TestClaimService_Reject_WithRemarks(t *testing.T) {
	claims := new(mockClaimStore)
	reports := new(mockClaimReportReader)
	notifier := &mockClaimNotifier{}
	svc := NewClaimService(claims, reports, notifier)
	ctx := context.Background()

	report := foundReport("wallet", "Main Library", "")
	claimID := uuid.New()
	claimantID := uuid.New()
	pending := &models.Claim{ID: claimID, ReportID: report.ID, ClaimantID: claimantID, Status: models.ClaimStatusPending}

	claims.On("GetByID", ctx, claimID).Return(pending, nil)
	reports.On("GetByID", ctx, report.ID).Return(&report, nil)

	wantMessage := "Your claim for 'wallet' has been rejected. Remarks: serial number did not match"
	rejected := &models.Claim{ID: claimID, ReportID: report.ID, ClaimantID: claimantID, Status: models.ClaimStatusRejected}
	notification := &models.Notification{UserID: claimantID, ReportID: report.ID, Message: wantMessage}
	claims.On("Reject", ctx, claimID, "serial number did not match", wantMessage).
		Return(rejected, notification, nil)

	got, err := svc.Reject(ctx, claimID, "serial number did not match")

	assert.NoError(t, err)
	assert.Equal(t, models.ClaimStatusRejected, got.Status)
	assert.Len(t, notifier.pushed, 1)
	claims.AssertExpectations(t)
}

func TestClaimService_Reject_WithoutRemarks(t *testing.T) {
	claims := new(mockClaimStore)
	reports := new(mockClaimReportReader)
	svc := NewClaimService(claims, reports, &mockClaimNotifier{})
	ctx := context.Background()

	report := foundReport("wallet", "Main Library", "")
	claimID := uuid.New()
	pending := &models.Claim{ID: claimID, ReportID: report.ID, ClaimantID: uuid.New(), Status: models.ClaimStatusPending}

	claims.On("GetByID", ctx, claimID).Return(pending, nil)
	reports.On("GetByID", ctx, report.ID).Return(&report, nil)
	claims.On("Reject", ctx, claimID, "", "Your claim for 'wallet' has been rejected.").
		Return(pending, &models.Notification{}, nil)

	_, err := svc.Reject(ctx, claimID, "")

	assert.NoError(t, err)
	claims.AssertExpectations(t)
}

func TestClaimService_ClaimCode_NotFound(t *testing.T) {
	claims := new(mockClaimStore)
	svc := NewClaimService(claims, new(mockClaimReportReader), &mockClaimNotifier{})
	ctx := context.Background()

	claimantID := uuid.New()
	reportID := uuid.New()
	claims.On("FindClaimCode", ctx, claimantID, reportID).Return("", repository.ErrClaimCodeNotFound)

	_, err := svc.ClaimCode(ctx, claimantID, reportID)

	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeNotFound, appErr.Code)
}
