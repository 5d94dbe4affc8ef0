package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/bibliotheque/internal/auth"
	"github.com/mrlokans/bibliotheque/internal/config"
	"github.com/mrlokans/bibliotheque/internal/database/authors"
	"github.com/mrlokans/bibliotheque/internal/database/books"
	"github.com/mrlokans/bibliotheque/internal/database/contacts"
	"github.com/mrlokans/bibliotheque/internal/database/dbtest"
	"github.com/mrlokans/bibliotheque/internal/database/loans"
	"github.com/mrlokans/bibliotheque/internal/database/notifications"
	"github.com/mrlokans/bibliotheque/internal/database/reviews"
	"github.com/mrlokans/bibliotheque/internal/database/users"
	"github.com/mrlokans/bibliotheque/internal/database/wishlists"
	"github.com/mrlokans/bibliotheque/internal/entities"
	"github.com/mrlokans/bibliotheque/internal/mailer"
	"github.com/mrlokans/bibliotheque/internal/mailer/mailertest"
	"github.com/mrlokans/bibliotheque/internal/uploads"
)

type fixture struct {
	db   *gorm.DB
	mail *mailertest.Recorder

	users         *users.Repository
	loanRepo      *loans.Repository
	notifications *notifications.Repository
	contactRepo   *contacts.Repository

	notifier  *NotificationService
	contacts  *ContactService
	loans     *LoanService
	catalog   *CatalogService
	reviews   *ReviewService
	dashboard *DashboardService
	reminders *ReminderService
	accounts  *AccountService
	auth      *auth.Service
	tokens    *auth.ResetTokens
	files     *uploads.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t).DB
	mail := &mailertest.Recorder{}
	composer := mailer.NewComposer("http://localhost")

	userRepo := users.NewRepository(db)
	bookRepo := books.NewRepository(db)
	loanRepo := loans.NewRepository(db)
	notificationRepo := notifications.NewRepository(db)
	contactRepo := contacts.NewRepository(db)
	reviewRepo := reviews.NewRepository(db)
	wishlistRepo := wishlists.NewRepository(db)

	dir := t.TempDir()
	files := uploads.NewStore(config.Uploads{
		ImageDir:       filepath.Join(dir, "images"),
		PDFDir:         filepath.Join(dir, "pdfs"),
		MaxUploadBytes: 1 << 20,
		MaxImageWidth:  800,
		MaxImageHeight: 800,
	})

	notifier := NewNotificationService(notificationRepo, userRepo, mail, composer)
	authService := auth.NewService(db, config.Auth{Mode: config.AuthModeLocal, BcryptCost: 4})
	tokens := auth.NewResetTokens([]byte("test-secret"), time.Hour)
	return &fixture{
		db:            db,
		mail:          mail,
		users:         userRepo,
		loanRepo:      loanRepo,
		notifications: notificationRepo,
		contactRepo:   contactRepo,
		notifier:      notifier,
		contacts:      NewContactService(contactRepo, userRepo, notifier, mail, composer),
		loans:         NewLoanService(loanRepo),
		catalog:       NewCatalogService(bookRepo, authors.NewRepository(db), files, notifier),
		reviews:       NewReviewService(reviewRepo, bookRepo),
		dashboard:     NewDashboardService(bookRepo, userRepo, loanRepo, contactRepo, reviewRepo, wishlistRepo),
		reminders:     NewReminderService(loanRepo, notifier, 24*time.Hour),
		accounts:      NewAccountService(authService, userRepo, tokens, mail, composer),
		auth:          authService,
		tokens:        tokens,
		files:         files,
	}
}

func (f *fixture) user(t *testing.T, email string) *entities.User {
	return dbtest.CreateUser(t, f.db, email, entities.UserRoleUser)
}

func (f *fixture) admin(t *testing.T, email string) *entities.User {
	return dbtest.CreateUser(t, f.db, email, entities.UserRoleAdmin)
}

func (f *fixture) unread(t *testing.T, userID uint) []entities.Notification {
	t.Helper()
	list, err := f.notifications.ListUnread(userID, 50)
	require.NoError(t, err)
	return list
}
