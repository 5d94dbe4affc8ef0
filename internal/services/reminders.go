package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mrlokans/bibliotheque/internal/database/loans"
)

// ReminderResult summarizes one overdue scan.
type ReminderResult struct {
	Scanned    int `json:"scanned"`
	Notified   int `json:"notified"`
	MailFailed int `json:"mail_failed"`
}

// ReminderService notifies borrowers of overdue loans. A loan is reminded
// at most once per MinInterval.
type ReminderService struct {
	loans         *loans.Repository
	notifications *NotificationService
	minInterval   time.Duration
	now           func() time.Time
}

func NewReminderService(loanRepo *loans.Repository, notificationService *NotificationService, minInterval time.Duration) *ReminderService {
	if minInterval <= 0 {
		minInterval = 24 * time.Hour
	}
	return &ReminderService{
		loans:         loanRepo,
		notifications: notificationService,
		minInterval:   minInterval,
		now:           time.Now,
	}
}

// Run reminds every overdue loan that is due for it and stamps it.
func (s *ReminderService) Run(ctx context.Context) (ReminderResult, error) {
	var result ReminderResult
	now := s.now()

	due, err := s.loans.DueForReminder(now, s.minInterval)
	if err != nil {
		return result, fmt.Errorf("failed to list overdue loans: %w", err)
	}
	result.Scanned = len(due)

	for i := range due {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		loan := &due[i]
		mailErr, err := s.notifications.NotifyOverdue(ctx, loan)
		if err != nil {
			log.Printf("Reminders: loan %d skipped: %v", loan.ID, err)
			continue
		}
		if mailErr != nil {
			result.MailFailed++
			log.Printf("Reminders: email for loan %d failed: %v", loan.ID, mailErr)
		}
		if err := s.loans.MarkReminded(loan.ID, now); err != nil {
			return result, fmt.Errorf("failed to stamp loan %d: %w", loan.ID, err)
		}
		result.Notified++
	}

	log.Printf("Reminders: %d overdue loans, %d notified, %d emails failed", result.Scanned, result.Notified, result.MailFailed)
	return result, nil
}
