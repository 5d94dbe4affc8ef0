package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bibliotheque/internal/services"
)

// ReminderRunner scans overdue loans and notifies their borrowers.
type ReminderRunner interface {
	Run(ctx context.Context) (services.ReminderResult, error)
}

// OverdueRemindersTask triggers one overdue scan.
type OverdueRemindersTask struct {
	TriggeredBy string `json:"triggered_by,omitempty"` // "cron", "admin" or "cli"
}

func (t OverdueRemindersTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "overdue_reminders",
		MaxAttempts: 2,
		Backoff:     10 * time.Minute,
		Timeout:     15 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   7 * 24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// OverdueRemindersProcessor runs the scan. Loans are stamped as they are
// reminded, so a retried task does not notify them twice.
func OverdueRemindersProcessor(runner ReminderRunner) backlite.QueueProcessor[OverdueRemindersTask] {
	return func(ctx context.Context, task OverdueRemindersTask) error {
		if runner == nil {
			return fmt.Errorf("reminder runner not configured")
		}
		result, err := runner.Run(ctx)
		if err != nil {
			return fmt.Errorf("overdue reminders: %w", err)
		}
		log.Printf("[TASK] Overdue reminders (%s): %d notified of %d", task.TriggeredBy, result.Notified, result.Scanned)
		return nil
	}
}

func NewOverdueRemindersQueue(runner ReminderRunner) backlite.Queue {
	return backlite.NewQueue(OverdueRemindersProcessor(runner))
}
