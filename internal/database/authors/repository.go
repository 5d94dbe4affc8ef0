// Package authors provides database operations for authors.
package authors

import (
	"strings"

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

// ListAuthors returns authors ordered by name, optionally filtered by part
// of the first or last name.
func (r *Repository) ListAuthors(query string) ([]entities.Author, error) {
	q := r.db.Order("last_name ASC, first_name ASC")
	if query = strings.TrimSpace(query); query != "" {
		like := "%" + strings.ToLower(query) + "%"
		q = q.Where("(LOWER(last_name) LIKE ? OR LOWER(first_name) LIKE ?)", like, like)
	}
	var list []entities.Author
	err := q.Find(&list).Error
	return list, err
}

// GetAuthorByID retrieves an author with the books they wrote.
func (r *Repository) GetAuthorByID(id uint) (*entities.Author, error) {
	var author entities.Author
	err := r.db.Preload("Books", func(db *gorm.DB) *gorm.DB {
		return db.Order("books.title ASC")
	}).First(&author, id).Error
	if err != nil {
		return nil, database.NotFound(err)
	}
	return &author, nil
}

func (r *Repository) CreateAuthor(author *entities.Author) error {
	return r.db.Omit(clause.Associations).Create(author).Error
}

func (r *Repository) UpdateAuthor(author *entities.Author) error {
	return r.db.Omit(clause.Associations).Save(author).Error
}

// DeleteAuthor unlinks the author from their books and deletes it. The
// deleted row is returned so the caller can remove the photo.
func (r *Repository) DeleteAuthor(id uint) (*entities.Author, error) {
	var author entities.Author
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&author, id).Error; err != nil {
			return database.NotFound(err)
		}
		if err := tx.Model(&author).Association("Books").Clear(); err != nil {
			return err
		}
		return tx.Delete(&author).Error
	})
	if err != nil {
		return nil, err
	}
	return &author, nil
}
