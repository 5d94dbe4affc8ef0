// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup (SQLite or PostgreSQL), migrations
//	├── books/           # Catalog: books, availability, ratings, search
//	├── authors/         # Author CRUD
//	├── categories/      # Category CRUD with book counts
//	├── publishers/      # Publisher CRUD with book counts
//	├── loans/           # Loans, overdue scans, borrowing statistics
//	├── reviews/         # Reviews and moderation
//	├── wishlists/       # Saved books per user
//	├── contacts/        # Contact messages between users and admins
//	├── notifications/   # In-app notifications
//	├── users/           # User listing and administration
//	└── audit/           # Audit trail of admin actions
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	db, err := database.Open(cfg.Database)
//
//	booksRepo := books.NewRepository(db.DB)
//	loansRepo := loans.NewRepository(db.DB)
//
//	book, err := booksRepo.GetBookByID(123)
//	active, err := loansRepo.CountActiveForBook(book.ID)
//
// Repositories translate gorm.ErrRecordNotFound into database.ErrNotFound so
// callers never depend on GORM directly.
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Implement the interface the consuming controller or service declares
//  5. Add compile-time interface check: var _ SomeInterface = (*Repository)(nil)
package database
