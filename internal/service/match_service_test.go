package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/recorever/recorever-backend/internal/dto"
	"github.com/recorever/recorever-backend/internal/models"
	"github.com/recorever/recorever-backend/internal/repository"
)

type mockCandidateStore struct {
	mock.Mock
}

func (m *mockCandidateStore) ListApprovedByKind(ctx context.Context, kind string, excludeID uuid.UUID) ([]models.Report, error) {
	args := m.Called(ctx, kind, excludeID)
	return args.Get(0).([]models.Report), args.Error(1)
}

type mockMatchStore struct {
	mock.Mock
}

func (m *mockMatchStore) CreateForPair(ctx context.Context, p repository.PairParams) (*repository.PairResult, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PairResult), args.Error(1)
}

func (m *mockMatchStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *mockMatchStore) List(ctx context.Context, limit, offset int) ([]models.Match, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.Match), args.Error(1)
}

func (m *mockMatchStore) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// recordingNotifier запоминает переданные live-уведомления.
type recordingNotifier struct {
	pushed  []models.Notification
	private bool
}

func (r *recordingNotifier) PushLive(notifications []models.Notification, privateUpdate bool) {
	r.pushed = append(r.pushed, notifications...)
	r.private = privateUpdate
}

func lostReport(name, location, description string) *models.Report {
	return &models.Report{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Kind:        models.ReportKindLost,
		ItemName:    name,
		Location:    location,
		Description: description,
		Status:      models.ReportStatusApproved,
	}
}

func foundReport(name, location, description string) models.Report {
	r := lostReport(name, location, description)
	r.Kind = models.ReportKindFound
	return *r
}

func pairResultFor(p repository.PairParams) *repository.PairResult {
	return &repository.PairResult{
		Match: &models.Match{
			ID:            uuid.New(),
			LostReportID:  p.LostReportID,
			FoundReportID: p.FoundReportID,
			Status:        models.MatchStatusPending,
			Confidence:    p.Confidence,
		},
		Notifications: []models.Notification{
			{ID: uuid.New(), UserID: p.LostOwnerID, ReportID: p.LostReportID, Message: p.LostMessage},
			{ID: uuid.New(), UserID: p.FoundOwnerID, ReportID: p.FoundReportID, Message: p.FoundMessage},
		},
	}
}

func TestMatchService_OnReportApproved_HighConfidence(t *testing.T) {
	reports := new(mockCandidateStore)
	matches := new(mockMatchStore)
	notifier := &recordingNotifier{}
	svc := NewMatchService(reports, matches, notifier)
	ctx := context.Background()

	report := lostReport("black wallet", "Main Library", "black leather wallet with zipper")
	candidate := foundReport("wallet", "main library", "leather wallet, black, with zipper")

	reports.On("ListApprovedByKind", ctx, models.ReportKindFound, report.ID).
		Return([]models.Report{candidate}, nil)
	matches.On("CreateForPair", ctx, mock.MatchedBy(func(p repository.PairParams) bool {
		return p.LostReportID == report.ID &&
			p.FoundReportID == candidate.ID &&
			p.Confidence == models.ConfidenceHigh
	})).Return(pairResultFor(repository.PairParams{
		LostReportID:  report.ID,
		FoundReportID: candidate.ID,
		Confidence:    models.ConfidenceHigh,
		LostOwnerID:   report.UserID,
		FoundOwnerID:  candidate.UserID,
	}), nil)

	match, err := svc.OnReportApproved(ctx, report)

	assert.NoError(t, err)
	assert.NotNil(t, match)
	assert.Equal(t, models.ConfidenceHigh, match.Confidence)
	assert.Len(t, notifier.pushed, 2)
	assert.True(t, notifier.private)
	matches.AssertExpectations(t)
}

func TestMatchService_OnReportApproved_FoundReportOrientation(t *testing.T) {
	reports := new(mockCandidateStore)
	matches := new(mockMatchStore)
	svc := NewMatchService(reports, matches, &recordingNotifier{})
	ctx := context.Background()

	found := lostReport("blue umbrella", "Cafeteria", "")
	found.Kind = models.ReportKindFound
	lost := foundReport("umbrella", "Gym", "")
	lost.Kind = models.ReportKindLost

	reports.On("ListApprovedByKind", ctx, models.ReportKindLost, found.ID).
		Return([]models.Report{lost}, nil)
	// lost_report_id всегда указывает на lost-заявку вне зависимости от того,
	// какая из двух была одобрена последней.
	matches.On("CreateForPair", ctx, mock.MatchedBy(func(p repository.PairParams) bool {
		return p.LostReportID == lost.ID && p.FoundReportID == found.ID &&
			p.Confidence == models.ConfidenceLow
	})).Return(pairResultFor(repository.PairParams{
		LostReportID:  lost.ID,
		FoundReportID: found.ID,
		Confidence:    models.ConfidenceLow,
	}), nil)

	match, err := svc.OnReportApproved(ctx, found)

	assert.NoError(t, err)
	assert.NotNil(t, match)
	matches.AssertExpectations(t)
}

func TestMatchService_OnReportApproved_FirstCandidateWins(t *testing.T) {
	reports := new(mockCandidateStore)
	matches := new(mockMatchStore)
	svc := NewMatchService(reports, matches, &recordingNotifier{})
	ctx := context.Background()

	report := lostReport("wallet", "Main Library", "black leather wallet")
	// Первый кандидат совпадает только по имени, второй совпал бы и по
	// локации, но до него очередь не доходит.
	weak := foundReport("wallet", "Gym", "")
	strong := foundReport("wallet", "Main Library", "black leather wallet")

	reports.On("ListApprovedByKind", ctx, models.ReportKindFound, report.ID).
		Return([]models.Report{weak, strong}, nil)
	matches.On("CreateForPair", ctx, mock.MatchedBy(func(p repository.PairParams) bool {
		return p.FoundReportID == weak.ID && p.Confidence == models.ConfidenceLow
	})).Return(pairResultFor(repository.PairParams{
		LostReportID:  report.ID,
		FoundReportID: weak.ID,
	}), nil)

	match, err := svc.OnReportApproved(ctx, report)

	assert.NoError(t, err)
	assert.NotNil(t, match)
	matches.AssertNumberOfCalls(t, "CreateForPair", 1)
}

func TestMatchService_OnReportApproved_SkipsNonMatchingNames(t *testing.T) {
	reports := new(mockCandidateStore)
	matches := new(mockMatchStore)
	svc := NewMatchService(reports, matches, &recordingNotifier{})
	ctx := context.Background()

	report := lostReport("wallet", "Main Library", "")
	other := foundReport("umbrella", "Main Library", "")

	reports.On("ListApprovedByKind", ctx, models.ReportKindFound, report.ID).
		Return([]models.Report{other}, nil)

	match, err := svc.OnReportApproved(ctx, report)

	assert.NoError(t, err)
	assert.Nil(t, match)
	matches.AssertNotCalled(t, "CreateForPair", mock.Anything, mock.Anything)
}

func TestMatchService_OnReportApproved_RetriesNextCandidateOnRace(t *testing.T) {
	reports := new(mockCandidateStore)
	matches := new(mockMatchStore)
	svc := NewMatchService(reports, matches, &recordingNotifier{})
	ctx := context.Background()

	report := lostReport("wallet", "Main Library", "")
	taken := foundReport("wallet", "Gym", "")
	free := foundReport("wallet", "Cafeteria", "")

	reports.On("ListApprovedByKind", ctx, models.ReportKindFound, report.ID).
		Return([]models.Report{taken, free}, nil)
	// Первого кандидата успело занять конкурентное сопоставление.
	matches.On("CreateForPair", ctx, mock.MatchedBy(func(p repository.PairParams) bool {
		return p.FoundReportID == taken.ID
	})).Return(nil, repository.ErrReportStateChanged)
	matches.On("CreateForPair", ctx, mock.MatchedBy(func(p repository.PairParams) bool {
		return p.FoundReportID == free.ID
	})).Return(pairResultFor(repository.PairParams{
		LostReportID:  report.ID,
		FoundReportID: free.ID,
	}), nil)

	match, err := svc.OnReportApproved(ctx, report)

	assert.NoError(t, err)
	assert.NotNil(t, match)
	matches.AssertNumberOfCalls(t, "CreateForPair", 2)
}

func TestMatchService_OnReportApproved_NoCandidates(t *testing.T) {
	reports := new(mockCandidateStore)
	matches := new(mockMatchStore)
	svc := NewMatchService(reports, matches, &recordingNotifier{})
	ctx := context.Background()

	report := lostReport("wallet", "Main Library", "")
	reports.On("ListApprovedByKind", ctx, models.ReportKindFound, report.ID).
		Return([]models.Report{}, nil)

	match, err := svc.OnReportApproved(ctx, report)

	assert.NoError(t, err)
	assert.Nil(t, match)
}

// Уверенность сохраняется при выдаче списка: подпись строится из того же
// значения, что было записано при создании пары.
func TestMatchService_ListMatches_KeepsConfidence(t *testing.T) {
	matches := new(mockMatchStore)
	svc := NewMatchService(new(mockCandidateStore), matches, &recordingNotifier{})
	ctx := context.Background()

	stored := []models.Match{
		{ID: uuid.New(), Status: models.MatchStatusPending, Confidence: models.ConfidenceHigh},
		{ID: uuid.New(), Status: models.MatchStatusPending, Confidence: models.ConfidenceLow},
	}
	matches.On("List", ctx, 20, 0).Return(stored, nil)

	listed, err := svc.ListMatches(ctx, 0, 0)

	assert.NoError(t, err)
	assert.Len(t, listed, 2)
	assert.Equal(t, models.ConfidenceHigh, listed[0].Confidence)
	assert.Equal(t, "High-Confidence Match", dto.NewMatchResponse(&listed[0]).ConfidenceLabel)
	assert.Equal(t, "Low-Confidence Match", dto.NewMatchResponse(&listed[1]).ConfidenceLabel)
}
