// Package categories provides database operations for book categories.
package categories

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/bibliotheque/internal/database"
	"github.com/mrlokans/bibliotheque/internal/entities"
)

var ErrNameTaken = errors.New("a category with this name already exists")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListCategories returns every category with its number of books.
func (r *Repository) ListCategories() ([]entities.Category, error) {
	var list []entities.Category
	if err := r.db.Order("name ASC").Find(&list).Error; err != nil {
		return nil, err
	}

	var counts []struct {
		CategoryID uint
		Total      int64
	}
	err := r.db.Model(&entities.Book{}).
		Select("category_id, COUNT(*) AS total").
		Where("category_id IS NOT NULL").
		Group("category_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byID[c.CategoryID] = c.Total
	}
	for i := range list {
		list[i].BookCount = byID[list[i].ID]
	}
	return list, nil
}

func (r *Repository) GetCategoryByID(id uint) (*entities.Category, error) {
	var category entities.Category
	if err := r.db.First(&category, id).Error; err != nil {
		return nil, database.NotFound(err)
	}
	return &category, nil
}

func (r *Repository) CreateCategory(category *entities.Category) error {
	if err := r.checkName(category.Name, 0); err != nil {
		return err
	}
	return r.db.Create(category).Error
}

func (r *Repository) UpdateCategory(category *entities.Category) error {
	if err := r.checkName(category.Name, category.ID); err != nil {
		return err
	}
	return r.db.Save(category).Error
}

// DeleteCategory removes the category; its books become uncategorised.
func (r *Repository) DeleteCategory(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entities.Book{}).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
			return err
		}
		result := tx.Delete(&entities.Category{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return database.ErrNotFound
		}
		return nil
	})
}

func (r *Repository) checkName(name string, exceptID uint) error {
	var n int64
	err := r.db.Model(&entities.Category{}).
		Where("LOWER(name) = ? AND id <> ?", strings.ToLower(strings.TrimSpace(name)), exceptID).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrNameTaken
	}
	return nil
}
