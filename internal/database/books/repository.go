// Package books provides database operations for the catalog: books, their
// availability, their average rating and the search query builder.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	page, total, err := repo.Search(books.SearchCriteria{CategoryIDs: []uint{1, 2}})
package books

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/bibliotheque/internal/database"
	"github.com/mrlokans/bibliotheque/internal/entities"
)

var (
	ErrHasActiveLoans = errors.New("book still has borrowed copies")
	ErrUnknownAuthor  = errors.New("unknown author")
)

// Repository handles all catalog database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) preloaded() *gorm.DB {
	return r.db.Preload("Category").Preload("Publisher").Preload("Authors", func(db *gorm.DB) *gorm.DB {
		return db.Order("authors.last_name ASC")
	})
}

// GetBookByID retrieves a book with its relations, free copies and rating.
func (r *Repository) GetBookByID(id uint) (*entities.Book, error) {
	var book entities.Book
	if err := r.preloaded().First(&book, id).Error; err != nil {
		return nil, database.NotFound(err)
	}
	list := []entities.Book{book}
	if err := r.decorate(list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// CreateBook inserts a book and links it to the given authors.
func (r *Repository) CreateBook(book *entities.Book, authorIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		authors, err := loadAuthors(tx, authorIDs)
		if err != nil {
			return err
		}
		book.Authors = authors
		if err := tx.Omit("Authors.*").Create(book).Error; err != nil {
			return fmt.Errorf("failed to create book: %w", err)
		}
		return nil
	})
}

// UpdateBook saves the book columns and replaces its author list.
func (r *Repository) UpdateBook(book *entities.Book, authorIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		authors, err := loadAuthors(tx, authorIDs)
		if err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(book).Error; err != nil {
			return fmt.Errorf("failed to update book: %w", err)
		}
		if err := tx.Model(book).Association("Authors").Replace(authors); err != nil {
			return fmt.Errorf("failed to update book authors: %w", err)
		}
		book.Authors = authors
		return nil
	})
}

// DeleteBook removes a book together with its returned loans, reviews and
// wishlist entries. Books with borrowed copies cannot be deleted. The
// deleted row is returned so the caller can remove its files.
func (r *Repository) DeleteBook(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&book, id).Error; err != nil {
			return database.NotFound(err)
		}

		var active int64
		if err := tx.Model(&entities.Loan{}).
			Where("book_id = ? AND status = ?", id, entities.LoanStatusBorrowed).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return ErrHasActiveLoans
		}

		for _, model := range []any{&entities.Loan{}, &entities.Review{}, &entities.WishlistItem{}} {
			if err := tx.Where("book_id = ?", id).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to delete dependents of book %d: %w", id, err)
			}
		}
		if err := tx.Model(&book).Association("Authors").Clear(); err != nil {
			return err
		}
		return tx.Delete(&book).Error
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// Search returns one page of books matching every criterion, plus the total count.
func (r *Repository) Search(c SearchCriteria) ([]entities.Book, int64, error) {
	query := r.applyCriteria(r.db.Model(&entities.Book{}), c)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count books: %w", err)
	}

	page, perPage := c.Pagination()
	var list []entities.Book
	err := r.applyCriteria(r.preloaded().Model(&entities.Book{}), c).
		Order(c.orderClause()).
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&list).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search books: %w", err)
	}

	if err := r.decorate(list); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *Repository) applyCriteria(q *gorm.DB, c SearchCriteria) *gorm.DB {
	if text := strings.TrimSpace(c.Query); text != "" {
		like := "%" + strings.ToLower(text) + "%"
		q = q.Where("(LOWER(books.title) LIKE ? OR LOWER(books.summary) LIKE ? OR LOWER(books.isbn) LIKE ?)", like, like, like)
	}
	if c.MinPrice != nil {
		q = q.Where("books.price >= ?", *c.MinPrice)
	}
	if c.MaxPrice != nil {
		q = q.Where("books.price <= ?", *c.MaxPrice)
	}

	if author := strings.TrimSpace(c.Author); author != "" {
		if id, err := strconv.ParseUint(author, 10, 64); err == nil {
			q = q.Where("EXISTS (SELECT 1 FROM book_authors ba WHERE ba.book_id = books.id AND ba.author_id = ?)", id)
		} else {
			like := "%" + strings.ToLower(author) + "%"
			q = q.Where(`EXISTS (SELECT 1 FROM book_authors ba JOIN authors a ON a.id = ba.author_id
				WHERE ba.book_id = books.id AND (LOWER(a.last_name) LIKE ? OR LOWER(a.first_name) LIKE ?))`, like, like)
		}
	}
	if len(c.AuthorIDs) > 0 {
		q = q.Where("EXISTS (SELECT 1 FROM book_authors ba WHERE ba.book_id = books.id AND ba.author_id IN ?)", c.AuthorIDs)
	}

	q = filterByReference(q, "books.publisher_id", "publishers", c.Publisher)
	if len(c.PublisherIDs) > 0 {
		q = q.Where("books.publisher_id IN ?", c.PublisherIDs)
	}
	q = filterByReference(q, "books.category_id", "categories", c.Category)
	if len(c.CategoryIDs) > 0 {
		q = q.Where("books.category_id IN ?", c.CategoryIDs)
	}

	if c.Availability == AvailabilityAvailable {
		q = q.Where("books.quantity > (SELECT COUNT(*) FROM loans WHERE loans.book_id = books.id AND loans.status = ?)",
			entities.LoanStatusBorrowed)
	}

	if minRating, ok := c.MinRating(); ok {
		// Books without active reviews have a NULL average and never match.
		q = q.Where("(SELECT AVG(reviews.rating) FROM reviews WHERE reviews.book_id = books.id AND reviews.is_active = ?) >= ?",
			true, minRating)
	}
	return q
}

// filterByReference matches a many-to-one column by id, or by part of the
// referenced row's name when value is not numeric.
func filterByReference(q *gorm.DB, column, table, value string) *gorm.DB {
	value = strings.TrimSpace(value)
	if value == "" {
		return q
	}
	if id, err := strconv.ParseUint(value, 10, 64); err == nil {
		return q.Where(column+" = ?", id)
	}
	return q.Where(column+" IN (SELECT id FROM "+table+" WHERE LOWER(name) LIKE ?)", "%"+strings.ToLower(value)+"%")
}

// Popular returns books ordered by number of reviews.
func (r *Repository) Popular(limit int) ([]entities.Book, error) {
	var list []entities.Book
	err := r.preloaded().
		Order("(SELECT COUNT(*) FROM reviews WHERE reviews.book_id = books.id) DESC, books.id ASC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, r.decorate(list)
}

// Latest returns the most recently added books.
func (r *Repository) Latest(limit int) ([]entities.Book, error) {
	var list []entities.Book
	if err := r.preloaded().Order("books.created_at DESC, books.id DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, r.decorate(list)
}

func (r *Repository) CountBooks() (int64, error) {
	var n int64
	err := r.db.Model(&entities.Book{}).Count(&n).Error
	return n, err
}

// AvailableCopies returns quantity minus borrowed loans, floored at zero.
func (r *Repository) AvailableCopies(bookID uint) (int, error) {
	return availableCopies(r.db, bookID)
}

func availableCopies(tx *gorm.DB, bookID uint) (int, error) {
	var book entities.Book
	if err := tx.Select("id", "quantity").First(&book, bookID).Error; err != nil {
		return 0, database.NotFound(err)
	}
	var active int64
	if err := tx.Model(&entities.Loan{}).
		Where("book_id = ? AND status = ?", bookID, entities.LoanStatusBorrowed).
		Count(&active).Error; err != nil {
		return 0, err
	}
	return book.AvailableFrom(active), nil
}

// AverageRating returns the mean rating of active reviews rounded to one
// decimal, or 0 when there are none.
func (r *Repository) AverageRating(bookID uint) (float64, error) {
	var row struct {
		Avg *float64
	}
	err := r.db.Model(&entities.Review{}).
		Select("AVG(rating) AS avg").
		Where("book_id = ? AND is_active = ?", bookID, true).
		Scan(&row).Error
	if err != nil {
		return 0, err
	}
	if row.Avg == nil {
		return 0, nil
	}
	return entities.RoundRating(*row.Avg), nil
}

// decorate fills the computed availability and rating fields with two
// grouped queries for the whole slice.
func (r *Repository) decorate(list []entities.Book) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]uint, len(list))
	for i := range list {
		ids[i] = list[i].ID
	}

	var loanRows []struct {
		BookID uint
		Total  int64
	}
	if err := r.db.Model(&entities.Loan{}).
		Select("book_id, COUNT(*) AS total").
		Where("book_id IN ? AND status = ?", ids, entities.LoanStatusBorrowed).
		Group("book_id").
		Scan(&loanRows).Error; err != nil {
		return fmt.Errorf("failed to count active loans: %w", err)
	}
	active := make(map[uint]int64, len(loanRows))
	for _, row := range loanRows {
		active[row.BookID] = row.Total
	}

	var ratingRows []struct {
		BookID uint
		Avg    float64
		Total  int64
	}
	if err := r.db.Model(&entities.Review{}).
		Select("book_id, AVG(rating) AS avg, COUNT(*) AS total").
		Where("book_id IN ? AND is_active = ?", ids, true).
		Group("book_id").
		Scan(&ratingRows).Error; err != nil {
		return fmt.Errorf("failed to compute ratings: %w", err)
	}
	ratings := make(map[uint]int, len(ratingRows))
	for i, row := range ratingRows {
		ratings[row.BookID] = i
	}

	for i := range list {
		list[i].AvailableCopies = list[i].AvailableFrom(active[list[i].ID])
		if idx, ok := ratings[list[i].ID]; ok {
			list[i].AverageRating = entities.RoundRating(ratingRows[idx].Avg)
			list[i].ReviewCount = ratingRows[idx].Total
		}
	}
	return nil
}

func loadAuthors(tx *gorm.DB, ids []uint) ([]entities.Author, error) {
	if len(ids) == 0 {
		return []entities.Author{}, nil
	}
	var authors []entities.Author
	if err := tx.Where("id IN ?", ids).Find(&authors).Error; err != nil {
		return nil, err
	}
	if len(authors) != len(uniqueIDs(ids)) {
		return nil, ErrUnknownAuthor
	}
	return authors, nil
}

func uniqueIDs(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
