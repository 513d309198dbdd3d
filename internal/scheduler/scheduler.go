// Package scheduler периодически обходит расписания удаления lost-заявок:
// шлёт предупреждения владельцам и мягко удаляет просроченные заявки.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/recorever/recorever-backend/internal/logger"
	"github.com/recorever/recorever-backend/internal/metrics"
	"github.com/recorever/recorever-backend/internal/models"
	"github.com/recorever/recorever-backend/internal/repository"
)

// Clock абстрагирует текущее время для тестов.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock возвращает часы на основе time.Now.
func SystemClock() Clock { return systemClock{} }

// ScheduleStore описывает шаги sweep над хранилищем расписаний.
type ScheduleStore interface {
	DueFirstWarnings(ctx context.Context, now time.Time) ([]repository.DueItem, error)
	DueFinalWarnings(ctx context.Context, now time.Time) ([]repository.DueItem, error)
	DueDeletions(ctx context.Context, now time.Time) ([]repository.DueItem, error)
	CompleteFirstWarning(ctx context.Context, item repository.DueItem, message string) (*models.Notification, error)
	CompleteFinalWarning(ctx context.Context, item repository.DueItem, message string) (*models.Notification, error)
	CompleteDeletion(ctx context.Context, item repository.DueItem, message string) (*models.Notification, error)
}

// LivePusher доставляет записанные sweep-ом уведомления live.
type LivePusher interface {
	PushLive(notifications []models.Notification, privateUpdate bool)
}

// Sweeper выполняет периодический проход по расписаниям. Одновременно
// работает не больше одного прохода: затянувшийся tick не накладывается
// на следующий.
type Sweeper struct {
	schedules ScheduleStore
	pusher    LivePusher
	clock     Clock
	interval  time.Duration

	mu sync.Mutex
}

// NewSweeper создаёт Sweeper с системными часами.
func NewSweeper(schedules ScheduleStore, pusher LivePusher, interval time.Duration) *Sweeper {
	return &Sweeper{
		schedules: schedules,
		pusher:    pusher,
		clock:     SystemClock(),
		interval:  interval,
	}
}

// WithClock подменяет часы. Используется в тестах.
func (s *Sweeper) WithClock(clock Clock) *Sweeper {
	s.clock = clock
	return s
}

// Run запускает периодические проходы до отмены контекста.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Log.WithField("interval", s.interval.String()).Info("scheduler: sweep loop started")

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("scheduler: sweep loop stopped")
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				logger.Log.WithError(err).Error("scheduler: sweep failed")
			}
		}
	}
}

// Tick выполняет один проход: первые предупреждения, финальные
// предупреждения, удаления. Ошибка одного элемента не прерывает проход.
// Если предыдущий проход ещё идёт, новый пропускается.
func (s *Sweeper) Tick(ctx context.Context) error {
	if !s.mu.TryLock() {
		logger.Log.Warn("scheduler: previous sweep still running, skipping")
		return nil
	}
	defer s.mu.Unlock()

	start := time.Now()
	now := s.clock.Now()

	var pushed []models.Notification
	var errs []error

	firstDue, err := s.schedules.DueFirstWarnings(ctx, now)
	if err != nil {
		errs = append(errs, err)
	}
	for _, item := range firstDue {
		message := fmt.Sprintf(
			"Your report '%s' is scheduled for deletion in about 1 day. Status: %s. You may update it to keep it active.",
			item.ItemName, item.Status)
		n, err := s.schedules.CompleteFirstWarning(ctx, item, message)
		if err != nil {
			if !errors.Is(err, repository.ErrScheduleStepDone) {
				errs = append(errs, fmt.Errorf("first warning %s: %w", item.ReportID, err))
			}
			continue
		}
		pushed = append(pushed, *n)
	}

	finalDue, err := s.schedules.DueFinalWarnings(ctx, now)
	if err != nil {
		errs = append(errs, err)
	}
	for _, item := range finalDue {
		message := fmt.Sprintf(
			"FINAL WARNING: Your report '%s' will be deleted in 15 minutes due to inactivity. Status: %s.",
			item.ItemName, item.Status)
		n, err := s.schedules.CompleteFinalWarning(ctx, item, message)
		if err != nil {
			if !errors.Is(err, repository.ErrScheduleStepDone) {
				errs = append(errs, fmt.Errorf("final warning %s: %w", item.ReportID, err))
			}
			continue
		}
		pushed = append(pushed, *n)
	}

	deleteDue, err := s.schedules.DueDeletions(ctx, now)
	if err != nil {
		errs = append(errs, err)
	}
	var deleted int
	for _, item := range deleteDue {
		message := fmt.Sprintf(
			"NOTICE: Your report for '%s' has been deleted due to expiration.",
			item.ItemName)
		n, err := s.schedules.CompleteDeletion(ctx, item, message)
		if err != nil {
			if !errors.Is(err, repository.ErrScheduleStepDone) {
				errs = append(errs, fmt.Errorf("deletion %s: %w", item.ReportID, err))
			}
			continue
		}
		deleted++
		pushed = append(pushed, *n)
	}

	if len(pushed) > 0 {
		s.pusher.PushLive(pushed, true)
	}

	metrics.SweepDuration.Observe(time.Since(start).Seconds())
	if deleted > 0 {
		metrics.SweepDeletes.Add(float64(deleted))
	}

	if len(pushed) > 0 || len(errs) > 0 {
		logger.Log.WithFields(map[string]interface{}{
			"notified": len(pushed),
			"deleted":  deleted,
			"errors":   len(errs),
		}).Info("scheduler: sweep completed")
	}

	return errors.Join(errs...)
}
