package entrypoint

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mrlokans/bibliotheque/internal/audit"
	"github.com/mrlokans/bibliotheque/internal/auth"
	"github.com/mrlokans/bibliotheque/internal/config"
	"github.com/mrlokans/bibliotheque/internal/database"
	auditrepo "github.com/mrlokans/bibliotheque/internal/database/audit"
	"github.com/mrlokans/bibliotheque/internal/database/authors"
	"github.com/mrlokans/bibliotheque/internal/database/books"
	"github.com/mrlokans/bibliotheque/internal/database/categories"
	"github.com/mrlokans/bibliotheque/internal/database/contacts"
	"github.com/mrlokans/bibliotheque/internal/database/loans"
	"github.com/mrlokans/bibliotheque/internal/database/notifications"
	"github.com/mrlokans/bibliotheque/internal/database/publishers"
	"github.com/mrlokans/bibliotheque/internal/database/reviews"
	"github.com/mrlokans/bibliotheque/internal/database/users"
	"github.com/mrlokans/bibliotheque/internal/database/wishlists"
	"github.com/mrlokans/bibliotheque/internal/mailer"
	"github.com/mrlokans/bibliotheque/internal/services"
	"github.com/mrlokans/bibliotheque/internal/uploads"
)

// App holds the database, repositories and services shared by the server
// and the command line tools.
type App struct {
	Config   *config.Config
	Database *database.Database

	Users         *users.Repository
	Books         *books.Repository
	Authors       *authors.Repository
	Categories    *categories.Repository
	Publishers    *publishers.Repository
	Loans         *loans.Repository
	Reviews       *reviews.Repository
	Wishlists     *wishlists.Repository
	Contacts      *contacts.Repository
	Notifications *notifications.Repository

	Mail     mailer.Sender
	Composer *mailer.Composer
	Uploads  *uploads.Store
	Auditor  *audit.Service
	Auth     *auth.Service
	Tokens   *auth.ResetTokens

	Notifier       *services.NotificationService
	CatalogService *services.CatalogService
	LoanService    *services.LoanService
	ReviewService  *services.ReviewService
	ContactService *services.ContactService
	AccountService *services.AccountService
	Dashboard      *services.DashboardService
	Reminders      *services.ReminderService

	// Secret signs reset links and CSRF tokens.
	Secret []byte
}

// Build opens the database and wires every repository and service.
func Build(cfg *config.Config) (*App, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	sender, err := mailer.NewSender(cfg.Mail)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}

	secret, err := sessionSecret(cfg.Auth)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	app := &App{
		Config:        cfg,
		Database:      db,
		Users:         users.NewRepository(db.DB),
		Books:         books.NewRepository(db.DB),
		Authors:       authors.NewRepository(db.DB),
		Categories:    categories.NewRepository(db.DB),
		Publishers:    publishers.NewRepository(db.DB),
		Loans:         loans.NewRepository(db.DB),
		Reviews:       reviews.NewRepository(db.DB),
		Wishlists:     wishlists.NewRepository(db.DB),
		Contacts:      contacts.NewRepository(db.DB),
		Notifications: notifications.NewRepository(db.DB),
		Mail:          sender,
		Composer:      mailer.NewComposer(cfg.Library.BaseURL),
		Uploads:       uploads.NewStore(cfg.Uploads),
		Auditor:       audit.NewService(auditrepo.NewRepository(db.DB)),
		Auth:          auth.NewService(db.DB, cfg.Auth),
		Tokens:        auth.NewResetTokens(secret, cfg.Library.ResetTokenTTL),
		Secret:        secret,
	}

	app.Notifier = services.NewNotificationService(app.Notifications, app.Users, app.Mail, app.Composer)
	app.CatalogService = services.NewCatalogService(app.Books, app.Authors, app.Uploads, app.Notifier)
	app.LoanService = services.NewLoanService(app.Loans)
	app.ReviewService = services.NewReviewService(app.Reviews, app.Books)
	app.ContactService = services.NewContactService(app.Contacts, app.Users, app.Notifier, app.Mail, app.Composer)
	app.AccountService = services.NewAccountService(app.Auth, app.Users, app.Tokens, app.Mail, app.Composer)
	app.Dashboard = services.NewDashboardService(app.Books, app.Users, app.Loans, app.Contacts, app.Reviews, app.Wishlists)
	app.Reminders = services.NewReminderService(app.Loans, app.Notifier, cfg.Reminders.MinInterval)

	return app, nil
}

// Close waits for pending audit writes and closes the database.
func (a *App) Close() {
	a.Auditor.Wait()
	if err := a.Database.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}

// SessionDB returns the SQL handle sessions are stored in. SQLite keeps
// them in the main database; with PostgreSQL they go to a SQLite file next
// to the configured database path.
func (a *App) SessionDB() (*sql.DB, func(), error) {
	if !database.IsPostgres(a.Database.DB) {
		sqlDB, err := a.Database.DB.DB()
		return sqlDB, func() {}, err
	}

	path := sessionsPath(a.Config.Database.Path)
	sqlDB, err := sql.Open("sqlite3", path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to open session database: %w", err)
	}
	log.Printf("Sessions stored in %s", path)
	return sqlDB, func() { _ = sqlDB.Close() }, nil
}

func sessionsPath(mainDBPath string) string {
	ext := filepath.Ext(mainDBPath)
	return strings.TrimSuffix(mainDBPath, ext) + "-sessions" + ext
}

// sessionSecret uses the configured secret (hex or raw) or generates one
// for this run.
func sessionSecret(cfg config.Auth) ([]byte, error) {
	if cfg.SessionSecret != "" {
		if decoded, err := hex.DecodeString(cfg.SessionSecret); err == nil {
			return decoded, nil
		}
		return []byte(cfg.SessionSecret), nil
	}

	secret, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session secret: %w", err)
	}
	log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist sessions and reset links across restarts)")
	return hex.DecodeString(secret)
}
