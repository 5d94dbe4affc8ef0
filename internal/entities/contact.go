package entities

import (
	"strings"
	"time"
)

type ContactType string

const (
	ContactTypeUserToAdmin ContactType = "user_to_admin"
	ContactTypeAdminToUser ContactType = "admin_to_user"
)

type ContactStatus string

const (
	ContactStatusNew        ContactStatus = "new"
	ContactStatusInProgress ContactStatus = "in_progress"
	ContactStatusResolved   ContactStatus = "resolved"
)

type ContactCategory string

const (
	ContactCategoryQuestion    ContactCategory = "question"
	ContactCategoryInformation ContactCategory = "information"
	ContactCategoryImportant   ContactCategory = "important"
	ContactCategoryTechnical   ContactCategory = "technical"
)

type ContactMessage struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	LastName    string          `gorm:"size:100;not null" json:"last_name"`
	FirstName   string          `gorm:"size:100" json:"first_name,omitempty"`
	Email       string          `gorm:"index;size:255;not null" json:"email"`
	Subject     string          `gorm:"size:255;not null" json:"subject"`
	Message     string          `gorm:"type:text;not null" json:"message"`
	SentAt      time.Time       `gorm:"index;not null" json:"sent_at"`
	IsRead      bool            `gorm:"index;default:false" json:"is_read"`
	Status      ContactStatus   `gorm:"size:20;default:'new'" json:"status"`
	Reply       string          `gorm:"type:text" json:"reply,omitempty"`
	RepliedAt   *time.Time      `json:"replied_at,omitempty"`
	RecipientID *uint           `gorm:"index" json:"recipient_id,omitempty"`
	Recipient   *User           `gorm:"foreignKey:RecipientID" json:"recipient,omitempty"`
	Type        ContactType     `gorm:"index;size:20;not null;default:'user_to_admin'" json:"type"`
	Category    ContactCategory `gorm:"size:20" json:"category,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (ContactMessage) TableName() string {
	return "contact_messages"
}

func (m *ContactMessage) SenderName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

func (m *ContactMessage) HasReply() bool {
	return m.RepliedAt != nil
}

func ValidContactCategory(c ContactCategory) bool {
	switch c {
	case ContactCategoryQuestion, ContactCategoryInformation, ContactCategoryImportant, ContactCategoryTechnical:
		return true
	}
	return false
}

func ValidContactStatus(s ContactStatus) bool {
	switch s {
	case ContactStatusNew, ContactStatusInProgress, ContactStatusResolved:
		return true
	}
	return false
}
