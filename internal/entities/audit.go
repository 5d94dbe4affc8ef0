package entities

import (
	"time"

	"gorm.io/datatypes"
)

type AuditEventType string

const (
	AuditEventLoan         AuditEventType = "loan"
	AuditEventDelete       AuditEventType = "delete"
	AuditEventUser         AuditEventType = "user"
	AuditEventAuth         AuditEventType = "auth"
	AuditEventContact      AuditEventType = "contact"
	AuditEventNotification AuditEventType = "notification"
)

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusWarning AuditStatus = "warning"
	AuditStatusFailed  AuditStatus = "failed"
)

type AuditEvent struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	UserID      uint              `gorm:"index" json:"user_id"` // acting user
	EventType   AuditEventType    `gorm:"index;size:50" json:"event_type"`
	Action      string            `gorm:"size:100" json:"action"` // e.g. "loan_return", "user_toggle"
	Description string            `gorm:"size:500" json:"description"`
	EntityType  string            `gorm:"size:50" json:"entity_type"`
	EntityID    *uint             `gorm:"index" json:"entity_id,omitempty"`
	Details     datatypes.JSONMap `json:"details,omitempty"`
	IPAddress   string            `gorm:"size:45" json:"ip_address,omitempty"`
	Status      AuditStatus       `gorm:"size:20" json:"status"`
	ErrorMsg    string            `gorm:"size:500" json:"error_msg,omitempty"`
	CreatedAt   time.Time         `gorm:"index" json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
