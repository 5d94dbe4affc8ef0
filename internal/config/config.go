package config

import (
	"time"

	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // Single implicit admin, no login (local development)
	AuthModeLocal AuthMode = "local" // Local user database with sessions
)

type (
	Config struct {
		HTTP
		Global
		Database
		UI
		Uploads
		Mail
		Library
		Reminders
		Audit
		Tasks
		Auth
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Driver DatabaseDriver
		Path   string // SQLite file
		DSN    string // PostgreSQL connection string
	}
	UI struct {
		TemplatesPath string
		StaticPath    string
	}
	Uploads struct {
		ImageDir       string
		PDFDir         string
		MaxUploadBytes int64
		MaxImageWidth  int // Covers wider or taller than this are scaled down
		MaxImageHeight int
	}
	Mail struct {
		Enabled  bool
		Host     string
		Port     int
		Username string
		Password string
		From     string
		UseTLS   bool
	}
	Library struct {
		BaseURL       string        // Used to build absolute links in emails
		ResetTokenTTL time.Duration // Password reset link validity
	}
	Reminders struct {
		Enabled     bool
		Schedule    string        // Cron format: "0 8 * * *" = daily at 08:00
		MinInterval time.Duration // Minimum delay between two reminders for the same loan
	}
	Audit struct {
		RetentionDays int
		ArchiveDir    string // Purged events are written here as JSON; empty disables archiving
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Auth struct {
		Mode            AuthMode
		SessionSecret   string
		SessionLifetime time.Duration
		TokenExpiry     time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_driver", string(DatabaseDriverSQLite))
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_dsn", "")
	v.SetDefault("templates_path", "./templates")
	v.SetDefault("static_path", "./static")

	// Upload defaults
	v.SetDefault("upload_image_dir", DefaultImageUploadDir)
	v.SetDefault("upload_pdf_dir", DefaultPDFUploadDir)
	v.SetDefault("upload_max_bytes", 20<<20) // 20 MiB
	v.SetDefault("upload_max_image_width", 800)
	v.SetDefault("upload_max_image_height", 1200)

	// Mail defaults
	v.SetDefault("mail_enabled", false)
	v.SetDefault("mail_host", "localhost")
	v.SetDefault("mail_port", 1025)
	v.SetDefault("mail_username", "")
	v.SetDefault("mail_password", "")
	v.SetDefault("mail_from", "bibliotheque@localhost")
	v.SetDefault("mail_use_tls", false)

	// Library defaults
	v.SetDefault("library_base_url", "http://localhost:8188")
	v.SetDefault("library_reset_token_ttl", "1h")

	// Reminder defaults
	v.SetDefault("reminders_enabled", true)
	v.SetDefault("reminders_schedule", "0 8 * * *") // Daily at 08:00
	v.SetDefault("reminders_min_interval", "24h")

	v.SetDefault("audit_retention_days", 90)
	v.SetDefault("audit_archive_dir", "./data/audit")

	// Auth defaults
	v.SetDefault("auth_mode", "local")
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h")  // 24 hours
	v.SetDefault("auth_token_expiry", "720h")     // 30 days
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)     // HTTPS-only cookies
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Driver: DatabaseDriver(v.GetString("DATABASE_DRIVER")),
			Path:   v.GetString("DATABASE_PATH"),
			DSN:    v.GetString("DATABASE_DSN"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
		},
		Uploads: Uploads{
			ImageDir:       v.GetString("UPLOAD_IMAGE_DIR"),
			PDFDir:         v.GetString("UPLOAD_PDF_DIR"),
			MaxUploadBytes: v.GetInt64("UPLOAD_MAX_BYTES"),
			MaxImageWidth:  v.GetInt("UPLOAD_MAX_IMAGE_WIDTH"),
			MaxImageHeight: v.GetInt("UPLOAD_MAX_IMAGE_HEIGHT"),
		},
		Mail: Mail{
			Enabled:  v.GetBool("MAIL_ENABLED"),
			Host:     v.GetString("MAIL_HOST"),
			Port:     v.GetInt("MAIL_PORT"),
			Username: v.GetString("MAIL_USERNAME"),
			Password: v.GetString("MAIL_PASSWORD"),
			From:     v.GetString("MAIL_FROM"),
			UseTLS:   v.GetBool("MAIL_USE_TLS"),
		},
		Library: Library{
			BaseURL:       v.GetString("LIBRARY_BASE_URL"),
			ResetTokenTTL: v.GetDuration("LIBRARY_RESET_TOKEN_TTL"),
		},
		Reminders: Reminders{
			Enabled:     v.GetBool("REMINDERS_ENABLED"),
			Schedule:    v.GetString("REMINDERS_SCHEDULE"),
			MinInterval: v.GetDuration("REMINDERS_MIN_INTERVAL"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
			ArchiveDir:    v.GetString("AUDIT_ARCHIVE_DIR"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Auth: Auth{
			Mode:             AuthMode(v.GetString("AUTH_MODE")),
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			TokenExpiry:      v.GetDuration("AUTH_TOKEN_EXPIRY"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
	}
}
