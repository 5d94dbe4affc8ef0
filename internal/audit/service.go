package audit

import (
	"fmt"
	"log"
	"sync"
	"time"

	"gorm.io/datatypes"

	"github.com/mrlokans/bibliotheque/internal/database/audit"
	"github.com/mrlokans/bibliotheque/internal/entities"
)

// Service provides high-level audit logging functionality.
type Service struct {
	repo *audit.Repository
	wg   sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("Failed to log audit event %s: %v", event.Action, err)
		}
	}()
}

// Wait blocks until every pending asynchronous write has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// LogLoanReturn records an administrator marking a loan as returned.
func (s *Service) LogLoanReturn(actorID, loanID, bookID uint, ip string) {
	s.LogAsync(&entities.AuditEvent{
		UserID:      actorID,
		EventType:   entities.AuditEventLoan,
		Action:      "loan_return",
		Description: fmt.Sprintf("Loan %d marked as returned", loanID),
		EntityType:  "loan",
		EntityID:    &loanID,
		Details:     datatypes.JSONMap{"book_id": bookID},
		IPAddress:   ip,
		Status:      entities.AuditStatusSuccess,
	})
}

// LogLoanCreate records a loan created by an administrator on behalf of a user.
func (s *Service) LogLoanCreate(actorID, loanID, userID, bookID uint, ip string) {
	s.LogAsync(&entities.AuditEvent{
		UserID:      actorID,
		EventType:   entities.AuditEventLoan,
		Action:      "loan_create",
		Description: fmt.Sprintf("Loan %d created for user %d", loanID, userID),
		EntityType:  "loan",
		EntityID:    &loanID,
		Details:     datatypes.JSONMap{"book_id": bookID, "user_id": userID},
		IPAddress:   ip,
		Status:      entities.AuditStatusSuccess,
	})
}

// LogDelete records a deletion event.
func (s *Service) LogDelete(actorID uint, entityType string, entityID uint, entityName, ip string) {
	s.LogAsync(&entities.AuditEvent{
		UserID:      actorID,
		EventType:   entities.AuditEventDelete,
		Action:      entityType + "_delete",
		Description: "Deleted " + entityType + ": " + truncate(entityName, 400),
		EntityType:  entityType,
		EntityID:    &entityID,
		IPAddress:   ip,
		Status:      entities.AuditStatusSuccess,
	})
}

// LogUserToggle records a change of a user's verification flag.
func (s *Service) LogUserToggle(actorID, userID uint, verified bool, ip string) {
	state := "disabled"
	if verified {
		state = "enabled"
	}
	s.LogAsync(&entities.AuditEvent{
		UserID:      actorID,
		EventType:   entities.AuditEventUser,
		Action:      "user_toggle",
		Description: fmt.Sprintf("User %d %s", userID, state),
		EntityType:  "user",
		EntityID:    &userID,
		Details:     datatypes.JSONMap{"is_verified": verified},
		IPAddress:   ip,
		Status:      entities.AuditStatusSuccess,
	})
}

// LogPasswordReset records a reset link or temporary password issued by an
// administrator. A mail failure is stored as a warning.
func (s *Service) LogPasswordReset(actorID, userID uint, method, ip string, mailErr error) {
	event := &entities.AuditEvent{
		UserID:      actorID,
		EventType:   entities.AuditEventAuth,
		Action:      "password_reset",
		Description: fmt.Sprintf("Password reset (%s) for user %d", method, userID),
		EntityType:  "user",
		EntityID:    &userID,
		Details:     datatypes.JSONMap{"method": method},
		IPAddress:   ip,
		Status:      entities.AuditStatusSuccess,
	}
	if mailErr != nil {
		event.Status = entities.AuditStatusWarning
		event.ErrorMsg = truncate(mailErr.Error(), 500)
	}
	s.LogAsync(event)
}

// LogContactReply records an administrator answering a contact message.
func (s *Service) LogContactReply(actorID, messageID uint, ip string, mailErr error) {
	event := &entities.AuditEvent{
		UserID:      actorID,
		EventType:   entities.AuditEventContact,
		Action:      "contact_reply",
		Description: fmt.Sprintf("Reply sent for contact message %d", messageID),
		EntityType:  "contact_message",
		EntityID:    &messageID,
		IPAddress:   ip,
		Status:      entities.AuditStatusSuccess,
	}
	if mailErr != nil {
		event.Status = entities.AuditStatusWarning
		event.ErrorMsg = truncate(mailErr.Error(), 500)
	}
	s.LogAsync(event)
}

// LogBroadcast records a notification sent to every user.
func (s *Service) LogBroadcast(actorID uint, title string, recipients int, ip string) {
	s.LogAsync(&entities.AuditEvent{
		UserID:      actorID,
		EventType:   entities.AuditEventNotification,
		Action:      "notification_broadcast",
		Description: truncate(title, 500),
		Details:     datatypes.JSONMap{"recipients": recipients},
		IPAddress:   ip,
		Status:      entities.AuditStatusSuccess,
	})
}

// LogAuth records an authentication event.
func (s *Service) LogAuth(userID uint, action, ip string, success bool) {
	event := &entities.AuditEvent{
		UserID:    userID,
		EventType: entities.AuditEventAuth,
		Action:    action,
		IPAddress: ip,
		Status:    entities.AuditStatusSuccess,
	}
	if !success {
		event.Status = entities.AuditStatusFailed
	}
	s.LogAsync(event)
}

// ListEvents retrieves paginated audit events.
func (s *Service) ListEvents(f audit.Filter, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.ListEvents(f, limit, offset)
}

// EventsOlderThan returns the events a retention run would remove.
func (s *Service) EventsOlderThan(retention time.Duration) ([]entities.AuditEvent, error) {
	return s.repo.EventsBefore(time.Now().Add(-retention))
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
