package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bibliotheque/internal/database/notifications"
)

const unreadNotificationsLimit = 20

type NotificationsController struct {
	store *notifications.Repository
}

func NewNotificationsController(store *notifications.Repository) *NotificationsController {
	return &NotificationsController{store: store}
}

// Unread returns the caller's latest unread notifications and their total.
// GET /api/notifications/unread
func (nc *NotificationsController) Unread(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	list, err := nc.store.ListUnread(user.ID, unreadNotificationsLimit)
	if err != nil {
		respondInternalError(c, err, "list notifications")
		return
	}
	count, err := nc.store.CountUnread(user.ID)
	if err != nil {
		respondInternalError(c, err, "count notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count, "notifications": list})
}

// List pages through all of the caller's notifications.
// GET /api/notifications
func (nc *NotificationsController) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	limit, offset := parsePagination(c)

	list, total, err := nc.store.ListByUser(user.ID, limit, offset)
	if err != nil {
		respondInternalError(c, err, "list notifications")
		return
	}
	c.JSON(http.StatusOK, newPaginatedResponse(list, total, limit, offset))
}

// MarkRead marks one of the caller's notifications as read.
// POST /api/notifications/:id/read
func (nc *NotificationsController) MarkRead(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := nc.store.MarkRead(id, user.ID); err != nil {
		respondServiceError(c, err, "notification")
		return
	}
	respondSuccess(c, "notification marked as read")
}

// MarkAllRead marks every notification of the caller as read.
// POST /api/notifications/read-all
func (nc *NotificationsController) MarkAllRead(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	marked, err := nc.store.MarkAllRead(user.ID)
	if err != nil {
		respondInternalError(c, err, "mark notifications read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": marked})
}
