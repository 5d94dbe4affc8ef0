package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bibliotheque/internal/entities"
)

// AuditEventPurger lists and deletes audit events past retention.
type AuditEventPurger interface {
	EventsOlderThan(retention time.Duration) ([]entities.AuditEvent, error)
	DeleteOldEvents(retention time.Duration) (int64, error)
}

// AuditArchiver saves events before they are deleted.
type AuditArchiver interface {
	Archive(events []entities.AuditEvent) (string, error)
}

// CleanupAuditEventsTask removes audit events older than the configured retention period.
type CleanupAuditEventsTask struct {
	RetentionDays int `json:"retention_days"`
}

// Config returns the queue configuration for audit cleanup tasks.
func (t CleanupAuditEventsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "audit_cleanup",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupAuditEventsProcessor creates a processor function for CleanupAuditEventsTask.
// With an archiver the events are written out first and nothing is deleted
// when archiving fails.
func CleanupAuditEventsProcessor(purger AuditEventPurger, archiver AuditArchiver) backlite.QueueProcessor[CleanupAuditEventsTask] {
	return func(ctx context.Context, task CleanupAuditEventsTask) error {
		if purger == nil {
			return fmt.Errorf("audit event purger not configured")
		}

		retentionDays := task.RetentionDays
		if retentionDays <= 0 {
			retentionDays = 90
		}
		retention := time.Duration(retentionDays) * 24 * time.Hour

		if archiver != nil {
			events, err := purger.EventsOlderThan(retention)
			if err != nil {
				return fmt.Errorf("list expired audit events: %w", err)
			}
			if _, err := archiver.Archive(events); err != nil {
				return fmt.Errorf("archive audit events: %w", err)
			}
		}

		deleted, err := purger.DeleteOldEvents(retention)
		if err != nil {
			return fmt.Errorf("cleanup audit events: %w", err)
		}

		log.Printf("[TASK] Cleaned up %d audit events older than %d days", deleted, retentionDays)
		return nil
	}
}

// NewCleanupAuditEventsQueue creates a backlite queue for audit cleanup tasks.
func NewCleanupAuditEventsQueue(purger AuditEventPurger, archiver AuditArchiver) backlite.Queue {
	return backlite.NewQueue(CleanupAuditEventsProcessor(purger, archiver))
}
