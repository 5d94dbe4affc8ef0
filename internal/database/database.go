package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bibliotheque/internal/config"
	"github.com/mrlokans/bibliotheque/internal/entities"
)

// ErrNotFound is returned by repositories when a record does not exist.
var ErrNotFound = errors.New("record not found")

// NotFound maps gorm.ErrRecordNotFound to ErrNotFound and leaves other errors untouched.
func NotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Models lists every entity managed by AutoMigrate.
func Models() []any {
	return []any{
		&entities.User{},
		&entities.Category{},
		&entities.Publisher{},
		&entities.Author{},
		&entities.Book{},
		&entities.Loan{},
		&entities.Review{},
		&entities.WishlistItem{},
		&entities.ContactMessage{},
		&entities.Notification{},
		&entities.AuditEvent{},
	}
}

type Database struct {
	DB *gorm.DB
}

type Option func(*gorm.Config)

// WithLogLevel overrides the GORM log level (Info by default).
func WithLogLevel(level logger.LogLevel) Option {
	return func(c *gorm.Config) {
		c.Logger = logger.Default.LogMode(level)
	}
}

// NewDatabase opens (or creates) an SQLite database file and migrates it.
func NewDatabase(dbPath string, opts ...Option) (*Database, error) {
	return open(sqlite.Open(sqliteDSN(dbPath)), dbPath, opts...)
}

// sqliteDSN turns on WAL, matching the task queue sharing the file, and makes
// concurrent writers wait for the lock instead of failing with SQLITE_BUSY.
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_journal=WAL&_busy_timeout=5000"
}

// Open connects to the database selected by cfg.Driver.
func Open(cfg config.Database, opts ...Option) (*Database, error) {
	switch cfg.Driver {
	case config.DatabaseDriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("DATABASE_DSN is required for the postgres driver")
		}
		return open(postgres.Open(cfg.DSN), "postgres", opts...)
	case config.DatabaseDriverSQLite, "":
		return NewDatabase(cfg.Path, opts...)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func open(dialector gorm.Dialector, label string, opts ...Option) (*Database, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	}
	for _, opt := range opts {
		opt(gormCfg)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Printf("Database initialized successfully at %s", label)

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// IsPostgres reports whether db talks to PostgreSQL. Row locks are only
// requested there; SQLite serialises writers on its own.
func IsPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}
