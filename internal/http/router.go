package http

import (
	"html/template"
	"log"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bibliotheque/internal/auth"
	"github.com/mrlokans/bibliotheque/internal/entities"
	"github.com/mrlokans/bibliotheque/internal/uploads"
)

// templateFuncs are available to every page template.
var templateFuncs = template.FuncMap{
	"subtract": func(a, b int) int {
		return a - b
	},
	"authors": func(book entities.Book) string {
		return strings.Join(book.AuthorNames(), ", ")
	},
}

// loadTemplates parses the page templates, reporting false when there are
// none to serve.
func loadTemplates(router *gin.Engine, path string) bool {
	if path == "" {
		return false
	}
	matches, err := filepath.Glob(filepath.Join(path, "*.html"))
	if err != nil || len(matches) == 0 {
		log.Printf("No page templates under %q, serving JSON", path)
		return false
	}
	tmpl := template.Must(template.New("").Funcs(templateFuncs).ParseFiles(matches...))
	router.SetHTMLTemplate(tmpl)
	return true
}

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware(cfg.AssetOrigins...))

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.AuthService))
	}

	// Session runs after CSRF so session context isn't overwritten by CSRF's request replacement
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	} else {
		// No auth - anonymous visitor
		router.Use(func(c *gin.Context) {
			c.Set(auth.ContextKeyUserID, auth.DefaultUserID)
			c.Set(auth.ContextKeyAuthType, auth.AuthTypeNone)
			c.Next()
		})
	}

	// Inject auth data for templates
	router.Use(AuthContextMiddleware(cfg.AuthConfig.Mode, cfg.SessionManager, cfg.Notifications, cfg.Contacts))

	hasTemplates := loadTemplates(router, cfg.TemplatesPath)
	if cfg.StaticPath != "" {
		router.Static("/static", cfg.StaticPath)
	}
	if cfg.Uploads != nil {
		// Covers and photos are public; PDFs only leave through the download route
		router.Static("/uploads/images", cfg.Uploads.Dir(uploads.KindImage))
	}

	// Health endpoints
	health := NewHealthController(cfg.Database, cfg.Uploads, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Auth pages
	if cfg.AuthService != nil && cfg.SessionManager != nil {
		authController, err := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.ResetTokens, cfg.TemplatesPath, cfg.AuthConfig)
		if err != nil {
			log.Printf("Auth routes disabled: %v", err)
		} else {
			authController.RegisterRoutes(router)
		}
	}

	// Public catalog
	ui := NewUIController(cfg.Books, cfg.Categories, hasTemplates)
	catalog := NewCatalogController(cfg.Books, cfg.Authors, cfg.Categories, cfg.Publishers, cfg.Wishlists, cfg.Reviews, cfg.Uploads)
	contact := NewContactController(cfg.Contacts)

	router.GET("/", ui.HomePage)
	router.GET("/books/:id/download", catalog.Download)

	api := router.Group("/api")
	api.GET("/books", catalog.Search)
	api.GET("/books/popular", catalog.Popular)
	api.GET("/books/:id", catalog.GetBook)
	api.GET("/books/:id/reviews", catalog.BookReviews)
	api.GET("/authors", catalog.ListAuthors)
	api.GET("/authors/:id", catalog.GetAuthor)
	api.GET("/categories", catalog.ListCategories)
	api.GET("/publishers", catalog.ListPublishers)
	api.POST("/contact", contact.Submit)

	// Everything below needs a signed-in user
	member := api.Group("")
	if cfg.AuthMiddleware != nil {
		member.Use(cfg.AuthMiddleware.RequireAuth())
	}

	loansController := NewLoansController(cfg.Loans)
	member.GET("/loans", loansController.MyLoans)
	member.POST("/books/:id/borrow", loansController.Borrow)
	member.POST("/loans/:id/extend", loansController.Extend)

	wishlist := NewWishlistController(cfg.Wishlists, cfg.Books)
	member.GET("/wishlist", wishlist.List)
	member.GET("/wishlist/:bookId", wishlist.Contains)
	member.POST("/wishlist/:bookId", wishlist.Add)
	member.DELETE("/wishlist/:bookId", wishlist.Remove)

	reviewsController := NewReviewsController(cfg.Reviews)
	member.POST("/books/:id/reviews", reviewsController.Create)
	member.PUT("/reviews/:id", reviewsController.Edit)

	notificationsController := NewNotificationsController(cfg.Notifications)
	member.GET("/notifications", notificationsController.List)
	member.GET("/notifications/unread", notificationsController.Unread)
	member.POST("/notifications/:id/read", notificationsController.MarkRead)
	member.POST("/notifications/read-all", notificationsController.MarkAllRead)

	member.GET("/contact/mine", contact.Mine)
	member.GET("/contact/mine/:id", contact.ShowMine)
	member.PUT("/contact/mine/:id", contact.EditMine)
	member.DELETE("/contact/mine/:id", contact.DeleteMine)

	profile := NewProfileController(cfg.Accounts)
	member.GET("/profile", profile.Show)
	member.POST("/profile", profile.Update)
	member.POST("/profile/password", profile.ChangePassword)

	if cfg.AuthService != nil {
		tokenController := auth.NewAPITokenController(cfg.AuthService)
		member.POST("/auth/token", tokenController.GenerateToken)
		member.DELETE("/auth/token", tokenController.RevokeToken)
	}

	registerAdminRoutes(router, cfg)

	return router
}

// registerAdminRoutes mounts the back-office under /admin.
func registerAdminRoutes(router *gin.Engine, cfg RouterConfig) {
	admin := router.Group("/admin")
	if cfg.AuthMiddleware != nil {
		admin.Use(cfg.AuthMiddleware.RequireRole(entities.UserRoleAdmin))
	}

	ac := NewAdminController(cfg)
	admin.GET("/dashboard", ac.Dashboard)

	admin.POST("/books", ac.CreateBook)
	admin.PUT("/books/:id", ac.UpdateBook)
	admin.DELETE("/books/:id", ac.DeleteBook)

	admin.POST("/authors", ac.CreateAuthor)
	admin.PUT("/authors/:id", ac.UpdateAuthor)
	admin.DELETE("/authors/:id", ac.DeleteAuthor)

	admin.POST("/categories", ac.CreateCategory)
	admin.PUT("/categories/:id", ac.UpdateCategory)
	admin.DELETE("/categories/:id", ac.DeleteCategory)

	admin.POST("/publishers", ac.CreatePublisher)
	admin.PUT("/publishers/:id", ac.UpdatePublisher)
	admin.DELETE("/publishers/:id", ac.DeletePublisher)

	admin.GET("/users", ac.ListUsers)
	admin.POST("/users", ac.CreateUser)
	admin.GET("/users/:id", ac.GetUser)
	admin.PUT("/users/:id", ac.UpdateUser)
	admin.DELETE("/users/:id", ac.DeleteUser)
	admin.POST("/users/:id/toggle", ac.ToggleUser)
	admin.POST("/users/:id/send-reset", ac.SendResetPassword)
	admin.POST("/users/:id/temp-password", ac.TemporaryPassword)

	admin.GET("/loans", ac.ListLoans)
	admin.POST("/loans", ac.CreateLoan)
	admin.POST("/loans/reminders", ac.RunReminders)
	admin.GET("/loans/:id", ac.GetLoan)
	admin.PUT("/loans/:id", ac.UpdateLoan)
	admin.POST("/loans/:id/return", ac.ReturnLoan)
	admin.DELETE("/loans/:id", ac.DeleteLoan)

	admin.GET("/reviews", ac.ListReviews)
	admin.POST("/reviews/:id/toggle", ac.ToggleReview)
	admin.DELETE("/reviews/:id", ac.DeleteReview)

	admin.GET("/wishlists", ac.ListWishlists)
	admin.DELETE("/wishlists/:id", ac.DeleteWishlistItem)

	admin.GET("/contacts", ac.ListContacts)
	admin.POST("/contacts/send", ac.MessageUser)
	admin.GET("/contacts/:id", ac.ShowContact)
	admin.PUT("/contacts/:id", ac.UpdateContact)
	admin.DELETE("/contacts/:id", ac.DeleteContact)

	admin.POST("/notifications/broadcast", ac.Broadcast)

	if cfg.Auditor != nil {
		auditController := NewAuditController(cfg.Auditor)
		admin.GET("/audit", auditController.GetAuditEvents)
	}

	if cfg.TaskClient != nil {
		tasksController := NewTasksController(cfg.TaskClient)
		admin.GET("/tasks/types", tasksController.ListTaskTypes)
		admin.GET("/tasks/:id", tasksController.GetTaskStatus)
		admin.POST("/tasks/:type/run", tasksController.RunTask)
	}
}
