// Package reviews provides database operations for book reviews.
package reviews

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/bibliotheque/internal/database"
	"github.com/mrlokans/bibliotheque/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateReview inserts a review. GORM skips a false IsActive on insert and
// reads the column default back into the struct, so the requested flag is
// captured first and written explicitly.
func (r *Repository) CreateReview(review *entities.Review) error {
	active := review.IsActive
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(review).Error; err != nil {
			return err
		}
		if !active {
			if err := tx.Model(review).Update("is_active", false).Error; err != nil {
				return err
			}
			review.IsActive = false
		}
		return nil
	})
}

func (r *Repository) GetReviewByID(id uint) (*entities.Review, error) {
	var review entities.Review
	if err := r.db.Preload("User").Preload("Book").First(&review, id).Error; err != nil {
		return nil, database.NotFound(err)
	}
	return &review, nil
}

func (r *Repository) SaveReview(review *entities.Review) error {
	return r.db.Omit(clause.Associations).Save(review).Error
}

func (r *Repository) SetActive(id uint, active bool) error {
	result := r.db.Model(&entities.Review{}).Where("id = ?", id).Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteReview(id uint) error {
	result := r.db.Delete(&entities.Review{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// ListActiveForBook returns the visible reviews of a book, newest first.
func (r *Repository) ListActiveForBook(bookID uint) ([]entities.Review, error) {
	var list []entities.Review
	err := r.db.Preload("User").
		Where("book_id = ? AND is_active = ?", bookID, true).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

// FindByUserAndBook returns the user's review of a book, if any.
func (r *Repository) FindByUserAndBook(userID, bookID uint) (*entities.Review, error) {
	var review entities.Review
	if err := r.db.Where("user_id = ? AND book_id = ?", userID, bookID).First(&review).Error; err != nil {
		return nil, database.NotFound(err)
	}
	return &review, nil
}

// List returns a page of all reviews for moderation, newest first.
func (r *Repository) List(limit, offset int) ([]entities.Review, int64, error) {
	var total int64
	if err := r.db.Model(&entities.Review{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 50
	}
	var list []entities.Review
	err := r.db.Preload("User").Preload("Book").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&list).Error
	return list, total, err
}

func (r *Repository) Latest(limit int) ([]entities.Review, error) {
	list, _, err := r.List(limit, 0)
	return list, err
}
