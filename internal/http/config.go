package http

import (
	"github.com/mrlokans/bibliotheque/internal/audit"
	"github.com/mrlokans/bibliotheque/internal/auth"
	"github.com/mrlokans/bibliotheque/internal/config"
	"github.com/mrlokans/bibliotheque/internal/database"
	"github.com/mrlokans/bibliotheque/internal/database/authors"
	"github.com/mrlokans/bibliotheque/internal/database/books"
	"github.com/mrlokans/bibliotheque/internal/database/categories"
	"github.com/mrlokans/bibliotheque/internal/database/notifications"
	"github.com/mrlokans/bibliotheque/internal/database/publishers"
	"github.com/mrlokans/bibliotheque/internal/database/wishlists"
	"github.com/mrlokans/bibliotheque/internal/scheduler"
	"github.com/mrlokans/bibliotheque/internal/services"
	"github.com/mrlokans/bibliotheque/internal/tasks"
	"github.com/mrlokans/bibliotheque/internal/uploads"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router. This replaces the long parameter list
// in NewRouter for better maintainability.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Auditor  *audit.Service

	// Repositories read directly by controllers
	Books         *books.Repository
	Authors       *authors.Repository
	Categories    *categories.Repository
	Publishers    *publishers.Repository
	Wishlists     *wishlists.Repository
	Notifications *notifications.Repository

	// Services
	Catalog       *services.CatalogService
	Loans         *services.LoanService
	Reviews       *services.ReviewService
	Contacts      *services.ContactService
	Notifier      *services.NotificationService
	Accounts      *services.AccountService
	Dashboard     *services.DashboardService
	Uploads       *uploads.Store
	ReminderSched *scheduler.OverdueScheduler

	// Authentication
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	AuthMiddleware *auth.Middleware
	ResetTokens    *auth.ResetTokens
	AuthConfig     config.Auth
	CSRFSecret     []byte
	SecureCookies  bool

	// UI paths. An empty TemplatesPath serves JSON everywhere.
	TemplatesPath string
	StaticPath    string
	AssetOrigins  []string

	// Application info
	Version string

	// Task queue client (optional)
	TaskClient *tasks.Client
}
