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

type mockNotificationStore struct {
	mock.Mock
}

func (m *mockNotificationStore) Create(ctx context.Context, n *models.Notification) error {
	args := m.Called(ctx, n)
	if args.Error(0) == nil {
		n.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockNotificationStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

func (m *mockNotificationStore) List(ctx context.Context, userID uuid.UUID, limit, offset int, status string) ([]models.Notification, int, error) {
	args := m.Called(ctx, userID, limit, offset, status)
	return args.Get(0).([]models.Notification), args.Int(1), args.Error(2)
}

func (m *mockNotificationStore) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockNotificationStore) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockNotificationStore) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type mockAdminDirectory struct {
	ids []uuid.UUID
	err error
}

func (m *mockAdminDirectory) ListAdminIDs(ctx context.Context) ([]uuid.UUID, error) {
	return m.ids, m.err
}

func TestNotificationService_Create_PersistsWithoutPusher(t *testing.T) {
	store := new(mockNotificationStore)
	svc := NewNotificationService(store, &mockAdminDirectory{})
	ctx := context.Background()

	userID := uuid.New()
	reportID := uuid.New()
	store.On("Create", ctx, mock.AnythingOfType("*models.Notification")).Return(nil)

	// Pusher не установлен: уведомление просто персистится.
	n, err := svc.Create(ctx, userID, reportID, "Your report has been approved.", true)

	assert.NoError(t, err)
	assert.Equal(t, models.NotificationStatusUnread, n.Status)
	assert.Equal(t, userID, n.UserID)
	store.AssertExpectations(t)
}

func TestNotificationService_NotifyAdmins_WritesRowPerAdmin(t *testing.T) {
	store := new(mockNotificationStore)
	admins := &mockAdminDirectory{ids: []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}}
	svc := NewNotificationService(store, admins)
	ctx := context.Background()

	store.On("Create", ctx, mock.AnythingOfType("*models.Notification")).Return(nil)

	err := svc.NotifyAdmins(ctx, uuid.New(), "New pending report submitted: wallet.")

	assert.NoError(t, err)
	store.AssertNumberOfCalls(t, "Create", 3)
}

func TestNotificationService_List_ClampsAndCounts(t *testing.T) {
	store := new(mockNotificationStore)
	svc := NewNotificationService(store, &mockAdminDirectory{})
	ctx := context.Background()

	userID := uuid.New()
	store.On("List", ctx, userID, 20, 0, "").Return([]models.Notification{{}, {}}, 42, nil)
	store.On("CountUnread", ctx, userID).Return(7, nil)

	// Неизвестный статус фильтра игнорируется.
	result, err := svc.List(ctx, userID, 0, 0, "archived")

	assert.NoError(t, err)
	assert.Equal(t, 42, result.TotalItems)
	assert.Equal(t, 3, result.TotalPages)
	assert.Equal(t, 7, result.UnreadCount)
	store.AssertExpectations(t)
}

func TestNotificationService_MarkRead_ForeignNotification(t *testing.T) {
	store := new(mockNotificationStore)
	svc := NewNotificationService(store, &mockAdminDirectory{})
	ctx := context.Background()

	owner := uuid.New()
	notificationID := uuid.New()
	store.On("GetByID", ctx, notificationID).
		Return(&models.Notification{ID: notificationID, UserID: owner}, nil)

	err := svc.MarkRead(ctx, notificationID, uuid.New())

	assert.ErrorIs(t, err, apperror.ErrForbidden)
	store.AssertNotCalled(t, "MarkAsRead", mock.Anything, mock.Anything)
}

func TestNotificationService_MarkRead_NotFound(t *testing.T) {
	store := new(mockNotificationStore)
	svc := NewNotificationService(store, &mockAdminDirectory{})
	ctx := context.Background()

	notificationID := uuid.New()
	store.On("GetByID", ctx, notificationID).Return(nil, repository.ErrNotificationNotFound)

	err := svc.MarkRead(ctx, notificationID, uuid.New())

	assert.ErrorIs(t, err, apperror.ErrNotificationNotFound)
}
