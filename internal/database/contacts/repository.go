// Package contacts provides database operations for contact messages
// exchanged between users and administrators.
package contacts

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/bibliotheque/internal/database"
	"github.com/mrlokans/bibliotheque/internal/entities"
)

// Filter narrows admin listings. Zero values match everything.
type Filter struct {
	Type       entities.ContactType
	Status     entities.ContactStatus
	UnreadOnly bool
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateMessage(msg *entities.ContactMessage) error {
	return r.db.Omit(clause.Associations).Create(msg).Error
}

func (r *Repository) GetMessageByID(id uint) (*entities.ContactMessage, error) {
	var msg entities.ContactMessage
	if err := r.db.Preload("Recipient").First(&msg, id).Error; err != nil {
		return nil, database.NotFound(err)
	}
	return &msg, nil
}

func (r *Repository) SaveMessage(msg *entities.ContactMessage) error {
	return r.db.Omit(clause.Associations).Save(msg).Error
}

func (r *Repository) DeleteMessage(id uint) error {
	result := r.db.Delete(&entities.ContactMessage{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (r *Repository) MarkRead(id uint) error {
	return r.db.Model(&entities.ContactMessage{}).Where("id = ?", id).Update("is_read", true).Error
}

// List returns a page of messages for the back-office, newest first.
func (r *Repository) List(f Filter, limit, offset int) ([]entities.ContactMessage, int64, error) {
	var total int64
	if err := r.applyFilter(r.db.Model(&entities.ContactMessage{}), f).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 50
	}
	var list []entities.ContactMessage
	err := r.applyFilter(r.db.Preload("Recipient"), f).
		Order("sent_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&list).Error
	return list, total, err
}

func (r *Repository) applyFilter(q *gorm.DB, f Filter) *gorm.DB {
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.UnreadOnly {
		q = q.Where("is_read = ?", false)
	}
	return q
}

// ListForUser returns the messages a user sent (matched by email) and the
// ones administrators addressed to them, newest first.
func (r *Repository) ListForUser(userID uint, email string) ([]entities.ContactMessage, error) {
	var list []entities.ContactMessage
	err := r.db.
		Where("(type = ? AND LOWER(email) = ?) OR (type = ? AND recipient_id = ?)",
			entities.ContactTypeUserToAdmin, strings.ToLower(email),
			entities.ContactTypeAdminToUser, userID).
		Order("sent_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

func (r *Repository) CountUnreadFromUsers() (int64, error) {
	var n int64
	err := r.db.Model(&entities.ContactMessage{}).
		Where("type = ? AND is_read = ?", entities.ContactTypeUserToAdmin, false).
		Count(&n).Error
	return n, err
}

func (r *Repository) CountUnreadForUser(userID uint) (int64, error) {
	var n int64
	err := r.db.Model(&entities.ContactMessage{}).
		Where("type = ? AND recipient_id = ? AND is_read = ?", entities.ContactTypeAdminToUser, userID, false).
		Count(&n).Error
	return n, err
}

// LatestFromUsers returns the most recent messages sent to administrators.
func (r *Repository) LatestFromUsers(limit int) ([]entities.ContactMessage, error) {
	list, _, err := r.List(Filter{Type: entities.ContactTypeUserToAdmin}, limit, 0)
	return list, err
}
