// Package wishlists provides database operations for saved books.
//
// A user can save a book once. The repository checks for an existing row
// before inserting, and the (user_id, book_id) unique index catches the
// remaining race.
package wishlists

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bibliotheque/internal/database"
	"github.com/mrlokans/bibliotheque/internal/entities"
)

var (
	ErrAlreadyInWishlist = errors.New("book is already in the wishlist")
	ErrNotInWishlist     = errors.New("book is not in the wishlist")
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Add(userID, bookID uint, at time.Time) (*entities.WishlistItem, error) {
	exists, err := r.Contains(userID, bookID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyInWishlist
	}

	item := &entities.WishlistItem{UserID: userID, BookID: bookID, AddedAt: at}
	if err := r.db.Create(item).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyInWishlist
		}
		return nil, err
	}
	return item, nil
}

func (r *Repository) Remove(userID, bookID uint) error {
	result := r.db.Where("user_id = ? AND book_id = ?", userID, bookID).Delete(&entities.WishlistItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotInWishlist
	}
	return nil
}

func (r *Repository) Contains(userID, bookID uint) (bool, error) {
	var n int64
	err := r.db.Model(&entities.WishlistItem{}).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Count(&n).Error
	return n > 0, err
}

// ListByUser returns the user's saved books, most recent first.
func (r *Repository) ListByUser(userID uint) ([]entities.WishlistItem, error) {
	var list []entities.WishlistItem
	err := r.db.Preload("Book").Preload("Book.Authors").
		Where("user_id = ?", userID).
		Order("added_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

// List returns a page of every wishlist entry for administration.
func (r *Repository) List(limit, offset int) ([]entities.WishlistItem, int64, error) {
	var total int64
	if err := r.db.Model(&entities.WishlistItem{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 50
	}
	var list []entities.WishlistItem
	err := r.db.Preload("Book").Preload("User").
		Order("added_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&list).Error
	return list, total, err
}

func (r *Repository) DeleteItem(id uint) error {
	result := r.db.Delete(&entities.WishlistItem{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// TopWishlisted ranks books by number of users who saved them.
func (r *Repository) TopWishlisted(limit int) ([]entities.BookTally, error) {
	var rows []entities.BookTally
	err := r.db.Table("wishlist_items").
		Select("books.id AS book_id, books.title AS title, COUNT(wishlist_items.id) AS total").
		Joins("JOIN books ON books.id = wishlist_items.book_id").
		Group("books.id, books.title").
		Order("total DESC, books.id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
