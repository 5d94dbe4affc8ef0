package config

// Default paths for databases and uploads
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./bibliotheque.db"

	// DefaultImageUploadDir holds book covers and author photos
	DefaultImageUploadDir = "./uploads/images"

	// DefaultPDFUploadDir holds book PDFs
	DefaultPDFUploadDir = "./uploads/pdf"
)

type DatabaseDriver string

const (
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
)
