package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/bibliotheque/internal/database/contacts"
	"github.com/mrlokans/bibliotheque/internal/database/users"
	"github.com/mrlokans/bibliotheque/internal/entities"
	"github.com/mrlokans/bibliotheque/internal/mailer"
)

// ContactInput is a message submitted through the public contact form.
type ContactInput struct {
	LastName  string                   `json:"last_name" form:"last_name" validate:"required,max=100"`
	FirstName string                   `json:"first_name" form:"first_name" validate:"max=100"`
	Email     string                   `json:"email" form:"email" validate:"required,email,max=255"`
	Subject   string                   `json:"subject" form:"subject" validate:"required,max=255"`
	Message   string                   `json:"message" form:"message" validate:"required"`
	Category  entities.ContactCategory `json:"category" form:"category" validate:"omitempty,oneof=question information important technical"`
}

// DirectMessageInput is a message written by an administrator to one user.
type DirectMessageInput struct {
	RecipientID uint                     `json:"recipient_id" form:"recipient_id" validate:"required"`
	Subject     string                   `json:"subject" form:"subject" validate:"required,max=255"`
	Message     string                   `json:"message" form:"message" validate:"required"`
	Category    entities.ContactCategory `json:"category" form:"category" validate:"omitempty,oneof=question information important technical"`
}

// ContactPatch holds the back-office edits of a message. Nil fields are
// left unchanged.
type ContactPatch struct {
	Status   *entities.ContactStatus   `json:"status" form:"status" validate:"omitempty,oneof=new in_progress resolved"`
	Category *entities.ContactCategory `json:"category" form:"category" validate:"omitempty,oneof=question information important technical"`
	Reply    *string                   `json:"reply" form:"reply"`
	IsRead   *bool                     `json:"is_read" form:"is_read"`
}

// OwnMessageEdit is what a patron may change on a message they sent.
type OwnMessageEdit struct {
	Subject string `json:"subject" form:"subject" validate:"required,max=255"`
	Message string `json:"message" form:"message" validate:"required"`
}

type ContactService struct {
	store         *contacts.Repository
	users         *users.Repository
	notifications *NotificationService
	sender        mailer.Sender
	composer      *mailer.Composer
	validate      *validator.Validate
	now           func() time.Time
}

func NewContactService(
	store *contacts.Repository,
	userRepo *users.Repository,
	notificationService *NotificationService,
	sender mailer.Sender,
	composer *mailer.Composer,
) *ContactService {
	return &ContactService{
		store:         store,
		users:         userRepo,
		notifications: notificationService,
		sender:        sender,
		composer:      composer,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		now:           time.Now,
	}
}

// Submit stores a message from the public form and notifies administrators.
func (s *ContactService) Submit(ctx context.Context, in ContactInput) (*entities.ContactMessage, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Category == "" {
		in.Category = entities.ContactCategoryQuestion
	}

	msg := &entities.ContactMessage{
		LastName:  in.LastName,
		FirstName: in.FirstName,
		Email:     in.Email,
		Subject:   in.Subject,
		Message:   in.Message,
		SentAt:    s.now(),
		Status:    entities.ContactStatusNew,
		Type:      entities.ContactTypeUserToAdmin,
		Category:  in.Category,
	}
	if err := s.store.CreateMessage(msg); err != nil {
		return nil, fmt.Errorf("failed to save contact message: %w", err)
	}

	if _, err := s.notifications.NotifyAdminsOfContact(ctx, msg); err != nil {
		return msg, fmt.Errorf("message saved but admins were not notified: %w", err)
	}
	return msg, nil
}

// MessageUser sends a direct message from an administrator: the message is
// stored, the recipient is notified in-app and by email. A mail failure is
// returned as warn.
func (s *ContactService) MessageUser(ctx context.Context, admin *entities.User, in DirectMessageInput) (msg *entities.ContactMessage, warn error, err error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, nil, err
	}
	recipient, err := s.users.GetUserByID(in.RecipientID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, ErrInvalidRecipient
		}
		return nil, nil, err
	}
	if in.Category == "" {
		in.Category = entities.ContactCategoryInformation
	}

	msg = &entities.ContactMessage{
		LastName:    admin.LastName,
		FirstName:   admin.FirstName,
		Email:       admin.Email,
		Subject:     in.Subject,
		Message:     in.Message,
		SentAt:      s.now(),
		Status:      entities.ContactStatusNew,
		Type:        entities.ContactTypeAdminToUser,
		Category:    in.Category,
		RecipientID: &recipient.ID,
	}
	if msg.LastName == "" {
		msg.LastName = "Administration"
	}
	if err := s.store.CreateMessage(msg); err != nil {
		return nil, nil, fmt.Errorf("failed to save message: %w", err)
	}
	msg.Recipient = recipient

	if _, err := s.notifications.NotifyAdminMessage(ctx, recipient, msg); err != nil {
		return msg, nil, err
	}

	email, err := s.composer.AdminMessage(recipient, in.Subject, in.Message)
	if err != nil {
		return msg, err, nil
	}
	return msg, s.sender.Send(ctx, email), nil
}

// Update applies back-office edits. The first non-empty reply on a message
// that was never answered stamps RepliedAt, marks it read, emails the
// sender and notifies their account. Later edits of the reply do not
// repeat those side effects. A mail failure is returned as warn and does
// not roll back the update.
func (s *ContactService) Update(ctx context.Context, id uint, patch ContactPatch) (msg *entities.ContactMessage, warn error, err error) {
	if err := s.validate.Struct(patch); err != nil {
		return nil, nil, err
	}
	msg, err = s.store.GetMessageByID(id)
	if err != nil {
		return nil, nil, err
	}

	wasAnswered := msg.RepliedAt != nil

	if patch.Status != nil {
		msg.Status = *patch.Status
	}
	if patch.Category != nil {
		msg.Category = *patch.Category
	}
	if patch.IsRead != nil {
		msg.IsRead = *patch.IsRead
	}
	if patch.Reply != nil {
		msg.Reply = strings.TrimSpace(*patch.Reply)
	}

	firstReply := !wasAnswered && msg.Reply != ""
	if firstReply {
		now := s.now()
		msg.RepliedAt = &now
		msg.IsRead = true
	}

	if err := s.store.SaveMessage(msg); err != nil {
		return nil, nil, fmt.Errorf("failed to update contact message: %w", err)
	}
	if !firstReply {
		return msg, nil, nil
	}

	if _, err := s.notifications.NotifyContactReply(ctx, msg); err != nil {
		return msg, nil, err
	}
	email, err := s.composer.ContactReply(msg)
	if err != nil {
		return msg, err, nil
	}
	return msg, s.sender.Send(ctx, email), nil
}

// ShowForAdmin returns a message and marks messages from users as read.
func (s *ContactService) ShowForAdmin(id uint) (*entities.ContactMessage, error) {
	msg, err := s.store.GetMessageByID(id)
	if err != nil {
		return nil, err
	}
	if msg.Type == entities.ContactTypeUserToAdmin && !msg.IsRead {
		if err := s.store.MarkRead(msg.ID); err != nil {
			return nil, err
		}
		msg.IsRead = true
	}
	return msg, nil
}

func (s *ContactService) List(f contacts.Filter, limit, offset int) ([]entities.ContactMessage, int64, error) {
	return s.store.List(f, limit, offset)
}

func (s *ContactService) Delete(id uint) error {
	return s.store.DeleteMessage(id)
}

func (s *ContactService) CountUnreadFromUsers() (int64, error) {
	return s.store.CountUnreadFromUsers()
}

func (s *ContactService) CountUnreadForUser(user *entities.User) (int64, error) {
	return s.store.CountUnreadForUser(user.ID)
}

// ListForUser returns the patron's sent and received messages.
func (s *ContactService) ListForUser(user *entities.User) ([]entities.ContactMessage, error) {
	return s.store.ListForUser(user.ID, user.Email)
}

func ownsMessage(user *entities.User, msg *entities.ContactMessage) bool {
	switch msg.Type {
	case entities.ContactTypeAdminToUser:
		return msg.RecipientID != nil && *msg.RecipientID == user.ID
	default:
		return strings.EqualFold(msg.Email, user.Email)
	}
}

// ShowForUser returns a message the patron sent or received. Received
// messages are marked read.
func (s *ContactService) ShowForUser(user *entities.User, id uint) (*entities.ContactMessage, error) {
	msg, err := s.store.GetMessageByID(id)
	if err != nil {
		return nil, err
	}
	if !ownsMessage(user, msg) {
		return nil, ErrForbidden
	}
	if msg.Type == entities.ContactTypeAdminToUser && !msg.IsRead {
		if err := s.store.MarkRead(msg.ID); err != nil {
			return nil, err
		}
		msg.IsRead = true
	}
	return msg, nil
}

// EditOwn lets a patron rewrite a message they sent while it is unanswered.
func (s *ContactService) EditOwn(user *entities.User, id uint, in OwnMessageEdit) (*entities.ContactMessage, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	msg, err := s.store.GetMessageByID(id)
	if err != nil {
		return nil, err
	}
	if msg.Type != entities.ContactTypeUserToAdmin || !ownsMessage(user, msg) {
		return nil, ErrForbidden
	}
	if msg.HasReply() {
		return nil, ErrAlreadyReplied
	}
	msg.Subject = in.Subject
	msg.Message = in.Message
	if err := s.store.SaveMessage(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// DeleteOwn removes a message the patron sent or received.
func (s *ContactService) DeleteOwn(user *entities.User, id uint) error {
	msg, err := s.store.GetMessageByID(id)
	if err != nil {
		return err
	}
	if !ownsMessage(user, msg) {
		return ErrForbidden
	}
	return s.store.DeleteMessage(id)
}
