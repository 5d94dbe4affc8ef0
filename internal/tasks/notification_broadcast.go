package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bibliotheque/internal/entities"
	"github.com/mrlokans/bibliotheque/internal/services"
)

// Broadcaster creates one notification per user.
type Broadcaster interface {
	CreateForAllUsers(ctx context.Context, in services.NotificationInput, sendEmail bool) (int, error)
}

// NotificationBroadcastTask is an announcement sent to every user in the
// background.
type NotificationBroadcastTask struct {
	Title     string                    `json:"title"`
	Message   string                    `json:"message"`
	Type      entities.NotificationType `json:"type"`
	Link      string                    `json:"link,omitempty"`
	SendEmail bool                      `json:"send_email"`
	ActorID   uint                      `json:"actor_id"`
}

func (t NotificationBroadcastTask) Config() backlite.QueueConfig {
	// A retry would notify every user again.
	return backlite.QueueConfig{
		Name:        "notification_broadcast",
		MaxAttempts: 1,
		Timeout:     30 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   7 * 24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

func NotificationBroadcastProcessor(broadcaster Broadcaster) backlite.QueueProcessor[NotificationBroadcastTask] {
	return func(ctx context.Context, task NotificationBroadcastTask) error {
		if broadcaster == nil {
			return fmt.Errorf("broadcaster not configured")
		}
		notificationType := task.Type
		if notificationType == "" {
			notificationType = entities.NotificationTypeAnnouncement
		}
		sent, err := broadcaster.CreateForAllUsers(ctx, services.NotificationInput{
			Title:   task.Title,
			Message: task.Message,
			Type:    notificationType,
			Link:    task.Link,
		}, task.SendEmail)
		if err != nil {
			return fmt.Errorf("broadcast %q: %w", task.Title, err)
		}
		log.Printf("[TASK] Broadcast %q delivered to %d users (requested by user %d)", task.Title, sent, task.ActorID)
		return nil
	}
}

func NewNotificationBroadcastQueue(broadcaster Broadcaster) backlite.Queue {
	return backlite.NewQueue(NotificationBroadcastProcessor(broadcaster))
}
