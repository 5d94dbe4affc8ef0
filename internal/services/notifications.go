package services

import (
	"context"
	"fmt"
	"log"

	"gorm.io/datatypes"

	"github.com/mrlokans/bibliotheque/internal/database/notifications"
	"github.com/mrlokans/bibliotheque/internal/database/users"
	"github.com/mrlokans/bibliotheque/internal/entities"
	"github.com/mrlokans/bibliotheque/internal/mailer"
)

// NotificationInput is the content of one in-app notification. Link is a
// site-relative path used for the email button and stored in Data as
// "action_url".
type NotificationInput struct {
	Title   string
	Message string
	Type    entities.NotificationType
	Data    map[string]any
	Link    string
}

func (in NotificationInput) data() datatypes.JSONMap {
	if len(in.Data) == 0 && in.Link == "" {
		return nil
	}
	m := datatypes.JSONMap{}
	for k, v := range in.Data {
		m[k] = v
	}
	if in.Link != "" {
		m["action_url"] = in.Link
	}
	return m
}

// NotificationService creates in-app notifications and, on request, mirrors
// them by email. Email failures are logged and never undo the notification.
type NotificationService struct {
	store    *notifications.Repository
	users    *users.Repository
	sender   mailer.Sender
	composer *mailer.Composer
}

func NewNotificationService(store *notifications.Repository, userRepo *users.Repository, sender mailer.Sender, composer *mailer.Composer) *NotificationService {
	return &NotificationService{
		store:    store,
		users:    userRepo,
		sender:   sender,
		composer: composer,
	}
}

// CreateForUser stores a notification for user and optionally emails it.
func (s *NotificationService) CreateForUser(ctx context.Context, user *entities.User, in NotificationInput, sendEmail bool) (*entities.Notification, error) {
	n := &entities.Notification{
		UserID:  user.ID,
		Title:   in.Title,
		Message: in.Message,
		Type:    in.Type,
		Data:    in.data(),
	}
	if n.Type == "" {
		n.Type = entities.NotificationTypeInfo
	}
	if err := s.store.Create(n); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	if sendEmail && user.Email != "" {
		if err := s.email(ctx, user, in); err != nil {
			log.Printf("Notifications: email to %s failed: %v", user.Email, err)
		}
	}
	return n, nil
}

func (s *NotificationService) email(ctx context.Context, user *entities.User, in NotificationInput) error {
	msg, err := s.composer.Notification(user, in.Title, in.Message, in.Link)
	if err != nil {
		return err
	}
	return s.sender.Send(ctx, msg)
}

// CreateForAllUsers notifies every user one by one and returns how many
// notifications were created.
func (s *NotificationService) CreateForAllUsers(ctx context.Context, in NotificationInput, sendEmail bool) (int, error) {
	all, err := s.users.ListAll()
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}
	count := 0
	for i := range all {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		if _, err := s.CreateForUser(ctx, &all[i], in, sendEmail); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// NotifyAdminsOfContact alerts every administrator about a new contact message.
func (s *NotificationService) NotifyAdminsOfContact(ctx context.Context, msg *entities.ContactMessage) (int, error) {
	admins, err := s.users.ListAdmins()
	if err != nil {
		return 0, fmt.Errorf("failed to list admins: %w", err)
	}
	in := NotificationInput{
		Title:   "Nouveau message de contact",
		Message: fmt.Sprintf("Nouveau message de %s : %s", msg.SenderName(), msg.Subject),
		Type:    entities.NotificationTypeContactMessage,
		Data:    map[string]any{"contact_id": msg.ID},
		Link:    fmt.Sprintf("/admin/contacts/%d", msg.ID),
	}
	for i := range admins {
		if _, err := s.CreateForUser(ctx, &admins[i], in, true); err != nil {
			return i, err
		}
	}
	return len(admins), nil
}

// NotifyContactReply tells the account behind msg.Email that an answer is
// available. The reply itself is emailed by the caller. Senders without an
// account are skipped.
func (s *NotificationService) NotifyContactReply(ctx context.Context, msg *entities.ContactMessage) (*entities.Notification, error) {
	user, err := s.users.GetUserByEmail(msg.Email)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return s.CreateForUser(ctx, user, NotificationInput{
		Title:   "Réponse à votre message",
		Message: "L'administrateur a répondu à votre message : " + msg.Subject,
		Type:    entities.NotificationTypeContactReply,
		Data:    map[string]any{"contact_id": msg.ID},
		Link:    "/contact/mine",
	}, false)
}

// NotifyAdminMessage records an in-app copy of a direct admin message.
func (s *NotificationService) NotifyAdminMessage(ctx context.Context, user *entities.User, msg *entities.ContactMessage) (*entities.Notification, error) {
	return s.CreateForUser(ctx, user, NotificationInput{
		Title:   msg.Subject,
		Message: msg.Message,
		Type:    entities.NotificationTypeAdminMessage,
		Data:    map[string]any{"contact_id": msg.ID},
		Link:    "/contact/mine",
	}, false)
}

// NotifyNewBook announces a book to every user, without email.
func (s *NotificationService) NotifyNewBook(ctx context.Context, book *entities.Book) (int, error) {
	return s.CreateForAllUsers(ctx, NotificationInput{
		Title:   "Nouveau livre disponible !",
		Message: fmt.Sprintf("Le livre \"%s\" a été ajouté à la bibliothèque.", book.Title),
		Type:    entities.NotificationTypeNewBook,
		Data:    map[string]any{"book_id": book.ID},
		Link:    fmt.Sprintf("/books/%d", book.ID),
	}, false)
}

// NotifyOverdue stores an overdue notification for the loan's borrower and
// emails a reminder. A failed email is reported through mailErr; the
// notification is kept either way.
func (s *NotificationService) NotifyOverdue(ctx context.Context, loan *entities.Loan) (mailErr error, err error) {
	if loan.User == nil || loan.Book == nil {
		return nil, fmt.Errorf("loan %d is missing its user or book", loan.ID)
	}
	_, err = s.CreateForUser(ctx, loan.User, NotificationInput{
		Title:   "Emprunt en retard",
		Message: fmt.Sprintf("Le livre \"%s\" devait être rendu le %s.", loan.Book.Title, loan.DueAt.Format("02/01/2006")),
		Type:    entities.NotificationTypeOverdue,
		Data:    map[string]any{"loan_id": loan.ID, "book_id": loan.BookID},
		Link:    "/loans",
	}, false)
	if err != nil {
		return nil, err
	}

	msg, err := s.composer.OverdueReminder(loan.User, loan, loan.Book.Title)
	if err != nil {
		return err, nil
	}
	return s.sender.Send(ctx, msg), nil
}
