package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bibliotheque/internal/audit"
	"github.com/mrlokans/bibliotheque/internal/auth"
	"github.com/mrlokans/bibliotheque/internal/config"
	http_controllers "github.com/mrlokans/bibliotheque/internal/http"
	"github.com/mrlokans/bibliotheque/internal/scheduler"
	"github.com/mrlokans/bibliotheque/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT; SIGKILL can't be caught
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work before the server so no task outlives the database
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Bibliothèque v%s", version)

	app, err := Build(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.FromAppConfig(cfg.Tasks))
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		// A nil *Archiver must not reach the queue as a non-nil interface
		var archiver tasks.AuditArchiver
		if cfg.Audit.ArchiveDir != "" {
			archiver = audit.NewArchiver(cfg.Audit.ArchiveDir)
		}

		taskClient.Register(
			tasks.NewOverdueRemindersQueue(app.Reminders),
			tasks.NewNotificationBroadcastQueue(app.Notifier),
			tasks.NewCleanupAuditEventsQueue(app.Auditor, archiver),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	// Overdue reminders run on a cron schedule, through the queue when there is one
	var queue scheduler.Enqueuer
	if taskClient != nil {
		queue = taskClient
	}
	reminders := scheduler.NewOverdueScheduler(cfg.Reminders, queue, app.Reminders)
	if err := reminders.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start reminder scheduler: %v", err)
	}

	var authMiddleware *auth.Middleware
	var sessionManager *auth.SessionManager
	var csrfSecret []byte

	if cfg.Auth.Mode == config.AuthModeLocal {
		log.Printf("Authentication mode: local")

		sessionDB, closeSessions, err := app.SessionDB()
		if err != nil {
			log.Fatalf("Failed to get SQL DB for sessions: %v", err)
		}
		defer closeSessions()

		sessionManager, err = auth.NewSessionManager(sessionDB, cfg.Auth)
		if err != nil {
			log.Fatalf("Failed to initialize session manager: %v", err)
		}
		csrfSecret = app.Secret

		hasUsers, _ := app.Auth.HasUsers()
		if !hasUsers {
			log.Printf("No users found. Visit /setup to create an administrator account.")
		}
	} else {
		log.Printf("Authentication mode: none (every visitor acts as the first administrator)")
	}
	authMiddleware = auth.NewMiddleware(app.Auth, sessionManager, cfg.Auth)

	routerCfg := http_controllers.RouterConfig{
		Database:       app.Database,
		Auditor:        app.Auditor,
		Books:          app.Books,
		Authors:        app.Authors,
		Categories:     app.Categories,
		Publishers:     app.Publishers,
		Wishlists:      app.Wishlists,
		Notifications:  app.Notifications,
		Catalog:        app.CatalogService,
		Loans:          app.LoanService,
		Reviews:        app.ReviewService,
		Contacts:       app.ContactService,
		Notifier:       app.Notifier,
		Accounts:       app.AccountService,
		Dashboard:      app.Dashboard,
		Uploads:        app.Uploads,
		ReminderSched:  reminders,
		AuthService:    app.Auth,
		SessionManager: sessionManager,
		AuthMiddleware: authMiddleware,
		ResetTokens:    app.Tokens,
		AuthConfig:     cfg.Auth,
		CSRFSecret:     csrfSecret,
		SecureCookies:  cfg.Auth.SecureCookies,
		TemplatesPath:  cfg.UI.TemplatesPath,
		StaticPath:     cfg.UI.StaticPath,
		Version:        version,
		TaskClient:     taskClient,
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		reminders.Stop()
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
