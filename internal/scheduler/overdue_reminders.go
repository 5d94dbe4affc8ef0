package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/mrlokans/bibliotheque/internal/config"
	"github.com/mrlokans/bibliotheque/internal/tasks"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Enqueuer queues background tasks.
type Enqueuer interface {
	Enqueue(task backlite.Task) (string, error)
}

// ReminderRunner runs an overdue scan in the calling goroutine.
type ReminderRunner = tasks.ReminderRunner

// OverdueScheduler triggers the overdue reminder scan on a cron schedule.
// With a task queue the scan is enqueued, otherwise it runs in place.
type OverdueScheduler struct {
	config config.Reminders
	queue  Enqueuer
	runner ReminderRunner

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc

	// Separate from mu: Stop holds mu while waiting for a running job.
	runMu   sync.Mutex
	lastRun *time.Time
}

// NewOverdueScheduler creates a scheduler. queue may be nil.
func NewOverdueScheduler(cfg config.Reminders, queue Enqueuer, runner ReminderRunner) *OverdueScheduler {
	return &OverdueScheduler{
		config: cfg,
		queue:  queue,
		runner: runner,
		cron:   cron.New(cron.WithParser(cronParser)),
	}
}

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := cronParser.Parse(schedule)
	return err
}

// Start begins the scheduler if reminders are enabled
func (s *OverdueScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.config.Enabled {
		log.Printf("Overdue scheduler: disabled")
		return nil
	}

	if err := ValidateSchedule(s.config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.config.Schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.config.Schedule, func() {
		s.trigger(context.Background(), "cron")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminder job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	next := s.cron.Entry(entryID).Next
	log.Printf("Overdue scheduler: started with schedule '%s'. Next run: %v", s.config.Schedule, next)

	// Monitor for context cancellation
	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler
func (s *OverdueScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	// Stop accepting new jobs and wait for running jobs to complete
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}

	log.Printf("Overdue scheduler: stopped")
}

// RunNow triggers an immediate scan and returns the task ID when the scan
// was queued, or an empty string when it ran in place.
func (s *OverdueScheduler) RunNow(ctx context.Context, triggeredBy string) (string, error) {
	return s.trigger(ctx, triggeredBy)
}

// IsRunning returns whether the scheduler is active
func (s *OverdueScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next scan will occur
func (s *OverdueScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	entry := s.cron.Entry(s.entryID)
	if !entry.Valid() {
		return nil
	}
	t := entry.Next
	return &t
}

// LastRun returns when a scan was last triggered.
func (s *OverdueScheduler) LastRun() *time.Time {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.lastRun
}

func (s *OverdueScheduler) trigger(ctx context.Context, triggeredBy string) (string, error) {
	now := time.Now()
	s.runMu.Lock()
	s.lastRun = &now
	s.runMu.Unlock()

	if s.queue != nil {
		id, err := s.queue.Enqueue(tasks.OverdueRemindersTask{TriggeredBy: triggeredBy})
		if err != nil {
			log.Printf("Overdue scheduler: failed to enqueue scan: %v", err)
			return "", err
		}
		log.Printf("Overdue scheduler: scan queued as task %s (%s)", id, triggeredBy)
		return id, nil
	}

	if s.runner == nil {
		return "", fmt.Errorf("no reminder runner configured")
	}
	if _, err := s.runner.Run(ctx); err != nil {
		log.Printf("Overdue scheduler: scan failed: %v", err)
		return "", err
	}
	return "", nil
}
