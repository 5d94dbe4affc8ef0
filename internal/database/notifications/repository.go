// Package notifications provides database operations for in-app
// notifications.
package notifications

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bibliotheque/internal/database"
	"github.com/mrlokans/bibliotheque/internal/entities"
)

// createBatchSize bounds the rows per INSERT during a fan-out.
const createBatchSize = 200

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(n *entities.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	return r.db.Create(n).Error
}

// CreateMany inserts a batch of notifications in a single transaction.
func (r *Repository) CreateMany(list []entities.Notification) error {
	if len(list) == 0 {
		return nil
	}
	now := time.Now()
	for i := range list {
		if list[i].CreatedAt.IsZero() {
			list[i].CreatedAt = now
		}
	}
	return r.db.CreateInBatches(list, createBatchSize).Error
}

// ListUnread returns the user's unread notifications, newest first.
func (r *Repository) ListUnread(userID uint, limit int) ([]entities.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	var list []entities.Notification
	err := r.db.
		Where("user_id = ? AND is_read = ?", userID, false).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *Repository) ListByUser(userID uint, limit, offset int) ([]entities.Notification, int64, error) {
	query := r.db.Model(&entities.Notification{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 50
	}

	var list []entities.Notification
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&list).Error
	return list, total, err
}

func (r *Repository) CountUnread(userID uint) (int64, error) {
	var n int64
	err := r.db.Model(&entities.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}

// MarkRead flags one notification as read. A notification owned by another
// user is reported as not found.
func (r *Repository) MarkRead(id, userID uint) error {
	result := r.db.Model(&entities.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var n int64
		if err := r.db.Model(&entities.Notification{}).Where("id = ? AND user_id = ?", id, userID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return database.ErrNotFound
		}
	}
	return nil
}

// MarkAllRead flags every unread notification of the user and returns how
// many changed.
func (r *Repository) MarkAllRead(userID uint) (int64, error) {
	result := r.db.Model(&entities.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

func (r *Repository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := r.db.Where("created_at < ? AND is_read = ?", cutoff, true).Delete(&entities.Notification{})
	return result.RowsAffected, result.Error
}
