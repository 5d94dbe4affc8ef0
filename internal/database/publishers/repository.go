// Package publishers provides database operations for publishers.
package publishers

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/bibliotheque/internal/database"
	"github.com/mrlokans/bibliotheque/internal/entities"
)

var ErrNameTaken = errors.New("a publisher with this name already exists")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListPublishers returns every publisher with its number of books.
func (r *Repository) ListPublishers() ([]entities.Publisher, error) {
	var list []entities.Publisher
	if err := r.db.Order("name ASC").Find(&list).Error; err != nil {
		return nil, err
	}

	var counts []struct {
		PublisherID uint
		Total       int64
	}
	err := r.db.Model(&entities.Book{}).
		Select("publisher_id, COUNT(*) AS total").
		Where("publisher_id IS NOT NULL").
		Group("publisher_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byID[c.PublisherID] = c.Total
	}
	for i := range list {
		list[i].BookCount = byID[list[i].ID]
	}
	return list, nil
}

func (r *Repository) GetPublisherByID(id uint) (*entities.Publisher, error) {
	var publisher entities.Publisher
	if err := r.db.First(&publisher, id).Error; err != nil {
		return nil, database.NotFound(err)
	}
	return &publisher, nil
}

func (r *Repository) CreatePublisher(publisher *entities.Publisher) error {
	if err := r.checkName(publisher.Name, 0); err != nil {
		return err
	}
	return r.db.Create(publisher).Error
}

func (r *Repository) UpdatePublisher(publisher *entities.Publisher) error {
	if err := r.checkName(publisher.Name, publisher.ID); err != nil {
		return err
	}
	return r.db.Save(publisher).Error
}

// DeletePublisher removes the publisher and detaches its books.
func (r *Repository) DeletePublisher(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entities.Book{}).Where("publisher_id = ?", id).Update("publisher_id", nil).Error; err != nil {
			return err
		}
		result := tx.Delete(&entities.Publisher{}, id)
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
	err := r.db.Model(&entities.Publisher{}).
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
