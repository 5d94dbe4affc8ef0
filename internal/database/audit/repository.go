// Package audit stores the trail of administrative actions.
package audit

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bibliotheque/internal/database"
	"github.com/mrlokans/bibliotheque/internal/entities"
)

// Filter narrows event listings. Zero values match everything.
type Filter struct {
	UserID     uint
	EventType  entities.AuditEventType
	EntityType string
	EntityID   uint
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// LogEvent saves an audit event to the database.
func (r *Repository) LogEvent(event *entities.AuditEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return r.db.Create(event).Error
}

// ListEvents retrieves paginated audit events, most recent first.
func (r *Repository) ListEvents(f Filter, limit, offset int) ([]entities.AuditEvent, int64, error) {
	query := r.filtered(f)

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

	var events []entities.AuditEvent
	err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&events).Error
	return events, total, err
}

// EventsSince retrieves audit events created after since.
func (r *Repository) EventsSince(f Filter, since time.Time) ([]entities.AuditEvent, error) {
	var events []entities.AuditEvent
	err := r.filtered(f).Where("created_at > ?", since).Order("created_at DESC").Find(&events).Error
	return events, err
}

func (r *Repository) filtered(f Filter) *gorm.DB {
	query := r.db.Model(&entities.AuditEvent{})
	if f.UserID > 0 {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.EventType != "" {
		query = query.Where("event_type = ?", f.EventType)
	}
	if f.EntityType != "" {
		query = query.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID > 0 {
		query = query.Where("entity_id = ?", f.EntityID)
	}
	return query
}

// EventsBefore returns the events created before cutoff, oldest first.
func (r *Repository) EventsBefore(cutoff time.Time) ([]entities.AuditEvent, error) {
	var events []entities.AuditEvent
	err := r.db.Where("created_at < ?", cutoff).Order("created_at ASC, id ASC").Find(&events).Error
	return events, err
}

// DeleteOldEvents removes audit events older than the specified time.
// Returns the number of deleted events.
func (r *Repository) DeleteOldEvents(olderThan time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", olderThan).Delete(&entities.AuditEvent{})
	return result.RowsAffected, result.Error
}

func (r *Repository) GetEventByID(id uint) (*entities.AuditEvent, error) {
	var event entities.AuditEvent
	if err := r.db.First(&event, id).Error; err != nil {
		return nil, database.NotFound(err)
	}
	return &event, nil
}
