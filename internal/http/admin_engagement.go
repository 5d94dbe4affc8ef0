package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bibliotheque/internal/database/contacts"
	"github.com/mrlokans/bibliotheque/internal/entities"
	"github.com/mrlokans/bibliotheque/internal/services"
	"github.com/mrlokans/bibliotheque/internal/tasks"
)

// BroadcastInput is a notification sent to every user.
type BroadcastInput struct {
	Title     string                    `json:"title" form:"title" validate:"required,max=200"`
	Message   string                    `json:"message" form:"message" validate:"required"`
	Type      entities.NotificationType `json:"type" form:"type"`
	Link      string                    `json:"link" form:"link" validate:"omitempty,max=255"`
	SendEmail bool                      `json:"send_email" form:"send_email"`
	Async     bool                      `json:"async" form:"async"`
}

// ListReviews lists every review, hidden ones included.
// GET /admin/reviews
func (ac *AdminController) ListReviews(c *gin.Context) {
	limit, offset := parsePagination(c)
	list, total, err := ac.reviews.List(limit, offset)
	if err != nil {
		respondInternalError(c, err, "list reviews")
		return
	}
	c.JSON(http.StatusOK, newPaginatedResponse(list, total, limit, offset))
}

// ToggleReview shows or hides a review.
// POST /admin/reviews/:id/toggle
func (ac *AdminController) ToggleReview(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	visible, err := ac.reviews.Toggle(id)
	if err != nil {
		respondServiceError(c, err, "review")
		return
	}
	text := "Avis masqué."
	if visible {
		text = "Avis publié."
	}
	respondFlash(c, ac.sessions, http.StatusOK, text, nil, "", gin.H{"id": id, "is_active": visible})
}

// DeleteReview removes a review.
// DELETE /admin/reviews/:id
func (ac *AdminController) DeleteReview(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ac.reviews.Delete(id); err != nil {
		respondServiceError(c, err, "review")
		return
	}
	ac.logDelete(c, "review", id, "")
	respondFlash(c, ac.sessions, http.StatusOK, "Avis supprimé.", nil, "", nil)
}

// ListWishlists lists wishlist entries of every user.
// GET /admin/wishlists
func (ac *AdminController) ListWishlists(c *gin.Context) {
	limit, offset := parsePagination(c)
	list, total, err := ac.wishlists.List(limit, offset)
	if err != nil {
		respondInternalError(c, err, "list wishlists")
		return
	}
	c.JSON(http.StatusOK, newPaginatedResponse(list, total, limit, offset))
}

// DeleteWishlistItem removes one wishlist entry.
// DELETE /admin/wishlists/:id
func (ac *AdminController) DeleteWishlistItem(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ac.wishlists.DeleteItem(id); err != nil {
		respondServiceError(c, err, "wishlist item")
		return
	}
	ac.logDelete(c, "wishlist", id, "")
	respondFlash(c, ac.sessions, http.StatusOK, "Élément retiré de la liste de souhaits.", nil, "", nil)
}

// ListContacts lists messages filtered by direction, status and read state.
// GET /admin/contacts?type=&status=&unread=
func (ac *AdminController) ListContacts(c *gin.Context) {
	filter := contacts.Filter{
		Type:       entities.ContactType(c.Query("type")),
		Status:     entities.ContactStatus(c.Query("status")),
		UnreadOnly: c.Query("unread") == "1" || c.Query("unread") == "true",
	}
	switch filter.Type {
	case "", entities.ContactTypeUserToAdmin, entities.ContactTypeAdminToUser:
	default:
		respondBadRequest(c, "invalid type")
		return
	}
	switch filter.Status {
	case "", entities.ContactStatusNew, entities.ContactStatusInProgress, entities.ContactStatusResolved:
	default:
		respondBadRequest(c, "invalid status")
		return
	}

	limit, offset := parsePagination(c)
	list, total, err := ac.contacts.List(filter, limit, offset)
	if err != nil {
		respondInternalError(c, err, "list contacts")
		return
	}
	c.JSON(http.StatusOK, newPaginatedResponse(list, total, limit, offset))
}

// ShowContact returns a message and marks it read.
// GET /admin/contacts/:id
func (ac *AdminController) ShowContact(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	msg, err := ac.contacts.ShowForAdmin(id)
	if err != nil {
		respondServiceError(c, err, "message")
		return
	}
	c.JSON(http.StatusOK, msg)
}

// UpdateContact edits status or category, or answers the message. The
// first reply emails and notifies the sender; a failed email is a warning.
// PUT /admin/contacts/:id
func (ac *AdminController) UpdateContact(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var patch services.ContactPatch
	if err := c.ShouldBind(&patch); err != nil {
		respondBadRequest(c, "invalid message form: "+err.Error())
		return
	}

	msg, warn, err := ac.contacts.Update(c.Request.Context(), id, patch)
	if err != nil {
		respondServiceError(c, err, "message")
		return
	}
	if patch.Reply != nil && ac.auditor != nil {
		ac.auditor.LogContactReply(ac.actorID(c), msg.ID, c.ClientIP(), warn)
	}

	text := "Message mis à jour."
	if patch.Reply != nil {
		text = "Réponse envoyée."
	}
	respondFlash(c, ac.sessions, http.StatusOK, text,
		warn, "Réponse enregistrée, mais l'email n'a pas pu être envoyé.", msg)
}

// DeleteContact removes a message.
// DELETE /admin/contacts/:id
func (ac *AdminController) DeleteContact(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ac.contacts.Delete(id); err != nil {
		respondServiceError(c, err, "message")
		return
	}
	ac.logDelete(c, "contact_message", id, "")
	respondFlash(c, ac.sessions, http.StatusOK, "Message supprimé.", nil, "", nil)
}

// MessageUser writes to one user, by email and as a notification.
// POST /admin/contacts/send
func (ac *AdminController) MessageUser(c *gin.Context) {
	admin, ok := currentUser(c)
	if !ok {
		return
	}
	var in services.DirectMessageInput
	if err := c.ShouldBind(&in); err != nil {
		respondBadRequest(c, "invalid message form: "+err.Error())
		return
	}

	msg, warn, err := ac.contacts.MessageUser(c.Request.Context(), admin, in)
	if err != nil {
		respondServiceError(c, err, "user")
		return
	}
	respondFlash(c, ac.sessions, http.StatusCreated, "Message envoyé.",
		warn, "Message enregistré, mais l'email n'a pas pu être envoyé.", msg)
}

// Broadcast sends a notification to every user. With async set the work
// goes to the task queue and the answer is 202 with the task ID.
// POST /admin/notifications/broadcast
func (ac *AdminController) Broadcast(c *gin.Context) {
	var in BroadcastInput
	if err := c.ShouldBind(&in); err != nil {
		respondBadRequest(c, "invalid notification form: "+err.Error())
		return
	}
	if err := validate.Struct(in); err != nil {
		respondServiceError(c, err, "notification")
		return
	}
	if in.Type == "" {
		in.Type = entities.NotificationTypeAnnouncement
	}
	actorID := ac.actorID(c)

	if in.Async && ac.tasks != nil {
		taskID, err := ac.tasks.Enqueue(tasks.NotificationBroadcastTask{
			Title:     in.Title,
			Message:   in.Message,
			Type:      in.Type,
			Link:      in.Link,
			SendEmail: in.SendEmail,
			ActorID:   actorID,
		})
		if err != nil {
			respondInternalError(c, err, "enqueue broadcast")
			return
		}
		respondFlash(c, ac.sessions, http.StatusAccepted, "Envoi de la notification planifié.", nil, "", gin.H{"task_id": taskID})
		return
	}

	sent, err := ac.notifier.CreateForAllUsers(c.Request.Context(), services.NotificationInput{
		Title:   in.Title,
		Message: in.Message,
		Type:    in.Type,
		Link:    in.Link,
	}, in.SendEmail)
	if err != nil {
		respondInternalError(c, err, "broadcast")
		return
	}
	if ac.auditor != nil {
		ac.auditor.LogBroadcast(actorID, in.Title, sent, c.ClientIP())
	}
	respondFlash(c, ac.sessions, http.StatusOK, "Notification envoyée.", nil, "", gin.H{"recipients": sent})
}

// Dashboard returns the back-office counters and latest activity.
// GET /admin/dashboard
func (ac *AdminController) Dashboard(c *gin.Context) {
	stats, err := ac.dashboard.Stats()
	if err != nil {
		respondInternalError(c, err, "dashboard")
		return
	}
	c.JSON(http.StatusOK, stats)
}
