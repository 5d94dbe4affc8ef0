package entities

import (
	"time"

	"gorm.io/datatypes"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	BookID    uint      `gorm:"index;not null" json:"book_id"`
	Book      *Book     `gorm:"foreignKey:BookID" json:"book,omitempty"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment,omitempty"`
	IsActive  bool      `gorm:"index;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Review) TableName() string {
	return "reviews"
}

func ValidRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}

type WishlistItem struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	UserID  uint      `gorm:"uniqueIndex:idx_wishlist_user_book;not null" json:"user_id"`
	User    *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	BookID  uint      `gorm:"uniqueIndex:idx_wishlist_user_book;index;not null" json:"book_id"`
	Book    *Book     `gorm:"foreignKey:BookID" json:"book,omitempty"`
	AddedAt time.Time `gorm:"not null" json:"added_at"`
}

func (WishlistItem) TableName() string {
	return "wishlist_items"
}

type NotificationType string

const (
	NotificationTypeInfo           NotificationType = "info"
	NotificationTypeContactMessage NotificationType = "contact_message"
	NotificationTypeContactReply   NotificationType = "contact_response"
	NotificationTypeAdminMessage   NotificationType = "admin_message"
	NotificationTypeNewBook        NotificationType = "new_book"
	NotificationTypeOverdue        NotificationType = "overdue"
	NotificationTypeAnnouncement   NotificationType = "announcement"
)

type Notification struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	UserID    uint              `gorm:"index;not null" json:"user_id"`
	User      *User             `gorm:"foreignKey:UserID" json:"-"`
	Title     string            `gorm:"size:255;not null" json:"title"`
	Message   string            `gorm:"type:text" json:"message"`
	Type      NotificationType  `gorm:"index;size:50" json:"type"`
	IsRead    bool              `gorm:"index;default:false" json:"is_read"`
	Data      datatypes.JSONMap `json:"data,omitempty"`
	CreatedAt time.Time         `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
