package scheduler

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/recorever/recorever-backend/internal/logger"
	"github.com/recorever/recorever-backend/internal/models"
	"github.com/recorever/recorever-backend/internal/repository"
)

func TestMain(m *testing.M) {
	logger.Init("fatal")
	os.Exit(m.Run())
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

// fakeScheduleStore раздаёт due-элементы и записывает завершённые шаги.
type fakeScheduleStore struct {
	firstDue []repository.DueItem
	finalDue []repository.DueItem
	delDue   []repository.DueItem

	firstDone []repository.DueItem
	finalDone []repository.DueItem
	deleted   []repository.DueItem
	messages  []string

	stepErr map[uuid.UUID]error
}

func (f *fakeScheduleStore) DueFirstWarnings(ctx context.Context, now time.Time) ([]repository.DueItem, error) {
	return f.firstDue, nil
}

func (f *fakeScheduleStore) DueFinalWarnings(ctx context.Context, now time.Time) ([]repository.DueItem, error) {
	return f.finalDue, nil
}

func (f *fakeScheduleStore) DueDeletions(ctx context.Context, now time.Time) ([]repository.DueItem, error) {
	return f.delDue, nil
}

func (f *fakeScheduleStore) complete(item repository.DueItem, message string, done *[]repository.DueItem) (*models.Notification, error) {
	if err, ok := f.stepErr[item.ScheduleID]; ok {
		return nil, err
	}
	*done = append(*done, item)
	f.messages = append(f.messages, message)
	return &models.Notification{
		ID:       uuid.New(),
		UserID:   item.UserID,
		ReportID: item.ReportID,
		Message:  message,
		Status:   models.NotificationStatusUnread,
	}, nil
}

func (f *fakeScheduleStore) CompleteFirstWarning(ctx context.Context, item repository.DueItem, message string) (*models.Notification, error) {
	return f.complete(item, message, &f.firstDone)
}

func (f *fakeScheduleStore) CompleteFinalWarning(ctx context.Context, item repository.DueItem, message string) (*models.Notification, error) {
	return f.complete(item, message, &f.finalDone)
}

func (f *fakeScheduleStore) CompleteDeletion(ctx context.Context, item repository.DueItem, message string) (*models.Notification, error) {
	return f.complete(item, message, &f.deleted)
}

type fakePusher struct {
	pushed  []models.Notification
	private bool
	calls   int
}

func (f *fakePusher) PushLive(notifications []models.Notification, privateUpdate bool) {
	f.pushed = append(f.pushed, notifications...)
	f.private = privateUpdate
	f.calls++
}

func dueItem(name string) repository.DueItem {
	return repository.DueItem{
		ScheduleID: uuid.New(),
		ReportID:   uuid.New(),
		UserID:     uuid.New(),
		ItemName:   name,
		Status:     models.ReportStatusPending,
	}
}

func TestSweeper_Tick_ProcessesAllPhases(t *testing.T) {
	store := &fakeScheduleStore{
		firstDue: []repository.DueItem{dueItem("wallet")},
		finalDue: []repository.DueItem{dueItem("umbrella")},
		delDue:   []repository.DueItem{dueItem("backpack")},
	}
	pusher := &fakePusher{}
	now := time.Date(2026, time.March, 17, 0, 16, 0, 0, time.UTC)
	sweeper := NewSweeper(store, pusher, time.Minute).WithClock(fixedClock{now: now})

	if err := sweeper.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.firstDone) != 1 || len(store.finalDone) != 1 || len(store.deleted) != 1 {
		t.Fatalf("done counts = %d/%d/%d, want 1/1/1",
			len(store.firstDone), len(store.finalDone), len(store.deleted))
	}

	if len(pusher.pushed) != 3 {
		t.Errorf("pushed notifications = %d, want 3", len(pusher.pushed))
	}
	if !pusher.private {
		t.Error("sweep notifications must be delivered privately")
	}

	wantFragments := []string{
		"scheduled for deletion in about 1 day",
		"FINAL WARNING",
		"deleted due to expiration",
	}
	for i, fragment := range wantFragments {
		if !strings.Contains(store.messages[i], fragment) {
			t.Errorf("message %d = %q, want it to contain %q", i, store.messages[i], fragment)
		}
	}
}

func TestSweeper_Tick_SkipsAlreadyProcessedSteps(t *testing.T) {
	raced := dueItem("wallet")
	fresh := dueItem("umbrella")
	store := &fakeScheduleStore{
		firstDue: []repository.DueItem{raced, fresh},
		stepErr:  map[uuid.UUID]error{raced.ScheduleID: repository.ErrScheduleStepDone},
	}
	pusher := &fakePusher{}
	sweeper := NewSweeper(store, pusher, time.Minute).WithClock(fixedClock{now: time.Now()})

	// Шаг, обработанный конкурентным экземпляром, не считается ошибкой.
	if err := sweeper.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.firstDone) != 1 || store.firstDone[0].ScheduleID != fresh.ScheduleID {
		t.Errorf("only the unprocessed item must complete, done = %v", store.firstDone)
	}
	if len(pusher.pushed) != 1 {
		t.Errorf("pushed = %d, want 1", len(pusher.pushed))
	}
}

func TestSweeper_Tick_ItemFailureDoesNotStopSweep(t *testing.T) {
	broken := dueItem("wallet")
	healthy := dueItem("umbrella")
	store := &fakeScheduleStore{
		delDue:  []repository.DueItem{broken, healthy},
		stepErr: map[uuid.UUID]error{broken.ScheduleID: errors.New("connection reset")},
	}
	sweeper := NewSweeper(store, &fakePusher{}, time.Minute).WithClock(fixedClock{now: time.Now()})

	err := sweeper.Tick(context.Background())

	if err == nil {
		t.Fatal("expected aggregated error for the failed item")
	}
	if len(store.deleted) != 1 || store.deleted[0].ScheduleID != healthy.ScheduleID {
		t.Errorf("healthy item must still be deleted, deleted = %v", store.deleted)
	}
}

func TestSweeper_Tick_NothingDue(t *testing.T) {
	store := &fakeScheduleStore{}
	pusher := &fakePusher{}
	sweeper := NewSweeper(store, pusher, time.Minute).WithClock(fixedClock{now: time.Now()})

	if err := sweeper.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pusher.calls != 0 {
		t.Error("no live push expected when nothing is due")
	}
}

func TestSweeper_Tick_SkipsWhenPreviousSweepRunning(t *testing.T) {
	store := &fakeScheduleStore{firstDue: []repository.DueItem{dueItem("wallet")}}
	sweeper := NewSweeper(store, &fakePusher{}, time.Minute).WithClock(fixedClock{now: time.Now()})

	sweeper.mu.Lock()
	defer sweeper.mu.Unlock()

	if err := sweeper.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.firstDone) != 0 {
		t.Error("tick must be a no-op while another sweep holds the lock")
	}
}
