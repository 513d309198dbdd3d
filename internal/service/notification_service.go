package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/recorever/recorever-backend/internal/goroutine"
	"github.com/recorever/recorever-backend/internal/metrics"
	"github.com/recorever/recorever-backend/internal/models"
	"github.com/recorever/recorever-backend/internal/pkg/apperror"
	"github.com/recorever/recorever-backend/internal/repository"
)

// NotificationStore описывает взаимодействие сервиса с журналом уведомлений.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int, status string) ([]models.Notification, int, error)
	MarkAsRead(ctx context.Context, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// AdminDirectory возвращает получателей служебных уведомлений.
type AdminDirectory interface {
	ListAdminIDs(ctx context.Context) ([]uuid.UUID, error)
}

// LivePusher доставляет уведомление подключённым клиентам. Доставка
// best-effort: ошибки обрабатываются внутри hub и не достигают домена.
type LivePusher interface {
	SendToUser(userID uuid.UUID, n models.Notification)
	BroadcastToAdmins(n models.Notification)
}

// NotificationService владеет журналом уведомлений и раздаёт live-пуши.
// Запись в журнал — источник истины; live-доставка лишь удобство и никогда
// не влияет на исход операции, которая её вызвала.
type NotificationService struct {
	store  NotificationStore
	admins AdminDirectory
	pusher LivePusher
}

// NewNotificationService создаёт сервис уведомлений.
func NewNotificationService(store NotificationStore, admins AdminDirectory) *NotificationService {
	return &NotificationService{store: store, admins: admins}
}

// SetPusher устанавливает канал live-доставки. До установки уведомления
// только персистятся.
func (s *NotificationService) SetPusher(pusher LivePusher) {
	s.pusher = pusher
}

// Create записывает уведомление и асинхронно доставляет его live.
// privateUpdate=true — только адресату, false — всем подключённым
// администраторам.
func (s *NotificationService) Create(ctx context.Context, userID, reportID uuid.UUID, message string, privateUpdate bool) (*models.Notification, error) {
	n := &models.Notification{
		UserID:   userID,
		ReportID: reportID,
		Message:  message,
		Status:   models.NotificationStatusUnread,
	}

	if err := s.store.Create(ctx, n); err != nil {
		return nil, err
	}

	channel := "admin_broadcast"
	if privateUpdate {
		channel = "private"
	}
	metrics.NotificationsCreated.WithLabelValues(channel).Inc()

	s.pushLiveAsync(*n, privateUpdate)

	return n, nil
}

// NotifyAdmins записывает уведомление каждому администратору и делает один
// live-броадкаст по админским подключениям.
func (s *NotificationService) NotifyAdmins(ctx context.Context, reportID uuid.UUID, message string) error {
	adminIDs, err := s.admins.ListAdminIDs(ctx)
	if err != nil {
		return err
	}

	var first *models.Notification
	for _, adminID := range adminIDs {
		n := &models.Notification{
			UserID:   adminID,
			ReportID: reportID,
			Message:  message,
			Status:   models.NotificationStatusUnread,
		}
		if err := s.store.Create(ctx, n); err != nil {
			return err
		}
		metrics.NotificationsCreated.WithLabelValues("admin_broadcast").Inc()
		if first == nil {
			first = n
		}
	}

	if first != nil {
		s.pushLiveAsync(*first, false)
	}

	return nil
}

// PushLive доставляет уже записанные уведомления (например, созданные внутри
// транзакции одобрения заявления) подключённым клиентам.
func (s *NotificationService) PushLive(notifications []models.Notification, privateUpdate bool) {
	for _, n := range notifications {
		metrics.NotificationsCreated.WithLabelValues("private").Inc()
		s.pushLiveAsync(n, privateUpdate)
	}
}

func (s *NotificationService) pushLiveAsync(n models.Notification, privateUpdate bool) {
	if s.pusher == nil {
		return
	}

	pusher := s.pusher
	goroutine.SafeGo(func() {
		if privateUpdate {
			pusher.SendToUser(n.UserID, n)
			return
		}
		pusher.BroadcastToAdmins(n)
	})
}

// ListResult страница журнала уведомлений.
type ListResult struct {
	Items       []models.Notification `json:"items"`
	TotalItems  int                   `json:"total_items"`
	CurrentPage int                   `json:"current_page"`
	TotalPages  int                   `json:"total_pages"`
	UnreadCount int                   `json:"unread_count"`
}

// List возвращает страницу уведомлений пользователя со счётчиком
// непрочитанных.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, page, size int, status string) (*ListResult, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	if status != models.NotificationStatusUnread && status != models.NotificationStatusRead {
		status = ""
	}

	items, total, err := s.store.List(ctx, userID, size, (page-1)*size, status)
	if err != nil {
		return nil, err
	}

	unread, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}

	totalPages := (total + size - 1) / size
	return &ListResult{
		Items:       items,
		TotalItems:  total,
		CurrentPage: page,
		TotalPages:  totalPages,
		UnreadCount: unread,
	}, nil
}

// MarkRead отмечает уведомление прочитанным. Чужое уведомление отметить
// нельзя.
func (s *NotificationService) MarkRead(ctx context.Context, id, actorID uuid.UUID) error {
	n, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return apperror.ErrNotificationNotFound
		}
		return err
	}

	if n.UserID != actorID {
		return apperror.ErrForbidden
	}

	return s.store.MarkAsRead(ctx, id)
}

// MarkAllRead отмечает все уведомления пользователя прочитанными.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.store.MarkAllAsRead(ctx, userID)
}

// CountUnread возвращает количество непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.store.CountUnread(ctx, userID)
}
