// Package loans provides database operations for book loans.
//
// Borrowing checks availability and inserts the loan in one transaction.
// On PostgreSQL the book row is locked for the duration so two requests
// cannot both take the last copy.
package loans

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/bibliotheque/internal/database"
	"github.com/mrlokans/bibliotheque/internal/entities"
)

var ErrNoCopiesAvailable = errors.New("no copies available for this book")

// Filter narrows List results. Status accepts "borrowed", "returned" or "overdue".
type Filter struct {
	Status entities.LoanStatus
	UserID uint
	BookID uint
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateIfAvailable inserts the loan when the book still has a free copy.
func (r *Repository) CreateIfAvailable(loan *entities.Loan) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		bookQuery := tx.Select("id", "quantity")
		if database.IsPostgres(tx) {
			bookQuery = bookQuery.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var book entities.Book
		if err := bookQuery.First(&book, loan.BookID).Error; err != nil {
			return database.NotFound(err)
		}

		var active int64
		if err := tx.Model(&entities.Loan{}).
			Where("book_id = ? AND status = ?", loan.BookID, entities.LoanStatusBorrowed).
			Count(&active).Error; err != nil {
			return err
		}
		if book.AvailableFrom(active) <= 0 {
			return ErrNoCopiesAvailable
		}

		if err := tx.Create(loan).Error; err != nil {
			return fmt.Errorf("failed to create loan: %w", err)
		}
		return nil
	})
}

func (r *Repository) GetLoanByID(id uint) (*entities.Loan, error) {
	var loan entities.Loan
	if err := r.db.Preload("Book").Preload("User").First(&loan, id).Error; err != nil {
		return nil, database.NotFound(err)
	}
	return &loan, nil
}

func (r *Repository) SaveLoan(loan *entities.Loan) error {
	return r.db.Omit(clause.Associations).Save(loan).Error
}

func (r *Repository) DeleteLoan(id uint) error {
	result := r.db.Delete(&entities.Loan{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// ListByUser returns all loans of a user, current ones first, newest first.
func (r *Repository) ListByUser(userID uint) ([]entities.Loan, error) {
	var list []entities.Loan
	err := r.db.Preload("Book").
		Where("user_id = ?", userID).
		Order("CASE WHEN status = 'borrowed' THEN 0 ELSE 1 END, borrowed_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

// List returns a page of loans matching the filter, newest first.
func (r *Repository) List(f Filter, now time.Time, limit, offset int) ([]entities.Loan, int64, error) {
	query := r.applyFilter(r.db.Model(&entities.Loan{}), f, now)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var list []entities.Loan
	err := r.applyFilter(r.db.Preload("Book").Preload("User"), f, now).
		Order("borrowed_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&list).Error
	return list, total, err
}

func (r *Repository) applyFilter(q *gorm.DB, f Filter, now time.Time) *gorm.DB {
	switch f.Status {
	case entities.LoanStatusOverdue:
		q = q.Where("status = ? AND due_at < ?", entities.LoanStatusBorrowed, now)
	case entities.LoanStatusBorrowed, entities.LoanStatusReturned:
		q = q.Where("status = ?", f.Status)
	}
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.BookID != 0 {
		q = q.Where("book_id = ?", f.BookID)
	}
	return q
}

// HasActiveLoan reports whether the user currently holds a copy of the book.
func (r *Repository) HasActiveLoan(userID, bookID uint) (bool, error) {
	var n int64
	err := r.db.Model(&entities.Loan{}).
		Where("user_id = ? AND book_id = ? AND status = ?", userID, bookID, entities.LoanStatusBorrowed).
		Count(&n).Error
	return n > 0, err
}

func (r *Repository) CountActive() (int64, error) {
	var n int64
	err := r.db.Model(&entities.Loan{}).Where("status = ?", entities.LoanStatusBorrowed).Count(&n).Error
	return n, err
}

func (r *Repository) CountActiveForUser(userID uint) (int64, error) {
	var n int64
	err := r.db.Model(&entities.Loan{}).
		Where("user_id = ? AND status = ?", userID, entities.LoanStatusBorrowed).
		Count(&n).Error
	return n, err
}

func (r *Repository) CountOverdue(now time.Time) (int64, error) {
	var n int64
	err := r.db.Model(&entities.Loan{}).
		Where("status = ? AND due_at < ?", entities.LoanStatusBorrowed, now).
		Count(&n).Error
	return n, err
}

// DueForReminder returns overdue loans that were never reminded or were
// last reminded before now - minInterval.
func (r *Repository) DueForReminder(now time.Time, minInterval time.Duration) ([]entities.Loan, error) {
	var list []entities.Loan
	err := r.db.Preload("Book").Preload("User").
		Where("status = ? AND due_at < ?", entities.LoanStatusBorrowed, now).
		Where("(last_reminder_at IS NULL OR last_reminder_at < ?)", now.Add(-minInterval)).
		Order("due_at ASC").
		Find(&list).Error
	return list, err
}

func (r *Repository) MarkReminded(loanID uint, at time.Time) error {
	return r.db.Model(&entities.Loan{}).Where("id = ?", loanID).Update("last_reminder_at", at).Error
}

// TopBorrowed ranks books by total number of loans.
func (r *Repository) TopBorrowed(limit int) ([]entities.BookTally, error) {
	var rows []entities.BookTally
	err := r.db.Table("loans").
		Select("books.id AS book_id, books.title AS title, COUNT(loans.id) AS total").
		Joins("JOIN books ON books.id = loans.book_id").
		Group("books.id, books.title").
		Order("total DESC, books.id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *Repository) Latest(limit int) ([]entities.Loan, error) {
	var list []entities.Loan
	err := r.db.Preload("Book").Preload("User").Order("created_at DESC, id DESC").Limit(limit).Find(&list).Error
	return list, err
}
