package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"OpenClaw/backend/go/internal/models"
	"OpenClaw/backend/go/pkg/logger"

	"gorm.io/gorm"
)

// memStore is an in-memory JobStore with the same Delete contract as the
// gorm-backed Store.
type memStore struct {
	mu   sync.Mutex
	jobs map[string]models.ScheduledJob
}

func newMemStore() *memStore {
	return &memStore{jobs: map[string]models.ScheduledJob{}}
}

func (m *memStore) Save(job *models.ScheduledJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = *job
	return nil
}

func (m *memStore) All() ([]models.ScheduledJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ScheduledJob, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j)
	}
	return out, nil
}

func (m *memStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.jobs, id)
	return nil
}

func (m *memStore) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.jobs[id]
	return ok
}

type chanNotifier chan string

func (c chanNotifier) Notify(ctx context.Context, text string) error {
	c <- text
	return nil
}

func testLog() *logger.Logger { return logger.New("test", "") }

func newValidationScheduler() *Scheduler {
	// 校验路径在触达存储之前就返回, 这里不需要真实的数据库。
	return New(nil, nil, nil, testLog())
}

func waitGone(t *testing.T, store *memStore, id string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for store.has(id) {
		if time.Now().After(deadline) {
			t.Fatalf("Job %s still persisted after firing", id)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSchedule_RequiresExactlyOneTrigger(t *testing.T) {
	s := newValidationScheduler()
	runAt := time.Now().Add(time.Hour)

	if _, _, err := s.Schedule(context.Background(), "do it", "x", nil, ""); err == nil {
		t.Error("Expected an error when neither trigger is given")
	}
	if _, _, err := s.Schedule(context.Background(), "do it", "x", &runAt, "0 9 * * *"); err == nil {
		t.Error("Expected an error when both triggers are given")
	}
}

func TestSchedule_RejectsInvalidCron(t *testing.T) {
	s := newValidationScheduler()
	if _, _, err := s.Schedule(context.Background(), "do it", "x", nil, "every morning"); err == nil {
		t.Error("Expected an invalid cron expression to be rejected")
	}
}

func TestSchedule_RejectsPastRunAt(t *testing.T) {
	s := newValidationScheduler()
	past := time.Now().Add(-time.Hour)
	if _, _, err := s.Schedule(context.Background(), "do it", "x", &past, ""); err == nil {
		t.Error("Expected a one-shot time in the past to be rejected")
	}
}

func TestNextFire_OneShotUsesRunAt(t *testing.T) {
	s := newValidationScheduler()
	runAt := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	job := &models.ScheduledJob{ID: "j1", Label: "x", RunAt: &runAt}

	next, err := s.nextFire(job, time.Now())
	if err != nil {
		t.Fatalf("nextFire() error = %v", err)
	}
	if !next.Equal(runAt) {
		t.Errorf("Expected run_at to be the fire time, got %v", next)
	}
}

func TestScheduler_OneShotFiresAndSelfDeletes(t *testing.T) {
	store := newMemStore()
	notes := make(chan string, 1)
	run := func(ctx context.Context, instruction string) (string, error) { return "OK", nil }
	s := New(store, run, chanNotifier(notes), testLog())
	defer s.Stop()

	runAt := time.Now().Add(50 * time.Millisecond)
	job, _, err := s.Schedule(context.Background(), "respond with OK", "ping", &runAt, "")
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}

	select {
	case text := <-notes:
		if !strings.Contains(text, "OK") {
			t.Errorf("Expected the run result in the notification, got %q", text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("One-shot job never fired")
	}

	waitGone(t, store, job.ID)
	if infos, _ := s.List(); len(infos) != 0 {
		t.Errorf("Expected an empty list after the one-shot fired, got %v", infos)
	}
}

func TestScheduler_OneShotDeletedEvenWhenRunPanics(t *testing.T) {
	store := newMemStore()
	notes := make(chan string, 1)
	run := func(ctx context.Context, instruction string) (string, error) { panic("boom") }
	s := New(store, run, chanNotifier(notes), testLog())
	defer s.Stop()

	runAt := time.Now().Add(30 * time.Millisecond)
	job, _, err := s.Schedule(context.Background(), "crash", "bad job", &runAt, "")
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}

	select {
	case text := <-notes:
		if !strings.Contains(text, "ERROR") {
			t.Errorf("Expected an error notification, got %q", text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Panicking job produced no notification")
	}

	// The row must be cleaned up even though the run crashed.
	waitGone(t, store, job.ID)
}

func TestScheduler_RecurringRowSurvivesFire(t *testing.T) {
	store := newMemStore()
	run := func(ctx context.Context, instruction string) (string, error) { return "done", nil }
	s := New(store, run, nil, testLog())
	defer s.Stop()

	job := &models.ScheduledJob{ID: "r1", Label: "daily", Instruction: "x", Cron: "0 9 * * *"}
	if err := store.Save(job); err != nil {
		t.Fatal(err)
	}

	s.fire(job)

	if !store.has("r1") {
		t.Error("Recurring row must never be auto-deleted")
	}
	if s.JobCount() != 1 {
		t.Errorf("Expected the recurring job to be re-armed, timers = %d", s.JobCount())
	}
}

func TestScheduler_RecurringKeptWhenRearmFails(t *testing.T) {
	store := newMemStore()
	run := func(ctx context.Context, instruction string) (string, error) { return "done", nil }
	s := New(store, run, nil, testLog())
	defer s.Stop()

	job := &models.ScheduledJob{ID: "r2", Label: "broken", Instruction: "x", Cron: "not a cron"}
	if err := store.Save(job); err != nil {
		t.Fatal(err)
	}

	s.fire(job)

	if !store.has("r2") {
		t.Error("Re-arm failure must not delete the persisted row")
	}
	if s.JobCount() != 0 {
		t.Errorf("Expected no timer after a failed re-arm, timers = %d", s.JobCount())
	}
}

func TestSchedulerStart_DiscardsStaleOneShots(t *testing.T) {
	store := newMemStore()
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	_ = store.Save(&models.ScheduledJob{ID: "stale", Label: "old", Instruction: "x", RunAt: &past})
	_ = store.Save(&models.ScheduledJob{ID: "fresh", Label: "new", Instruction: "x", RunAt: &future})

	s := New(store, nil, nil, testLog())
	defer s.Stop()
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if store.has("stale") {
		t.Error("Expected the expired one-shot to be dropped at startup")
	}
	if !store.has("fresh") {
		t.Error("Expected the future one-shot to survive startup")
	}
	if s.JobCount() != 1 {
		t.Errorf("Expected exactly one armed timer, got %d", s.JobCount())
	}
}

func TestCancel_UnknownJob(t *testing.T) {
	store := newMemStore()
	s := New(store, nil, nil, testLog())
	defer s.Stop()

	if err := s.Cancel("ghost"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound for an unknown id, got %v", err)
	}

	runAt := time.Now().Add(time.Hour)
	job, _, err := s.Schedule(context.Background(), "do it", "x", &runAt, "")
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if err := s.Cancel(job.ID); err != nil {
		t.Errorf("First cancel should succeed, got %v", err)
	}
	if err := s.Cancel(job.ID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Second cancel must report not-found, got %v", err)
	}
}
