package http

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bibliotheque/internal/auth"
	"github.com/mrlokans/bibliotheque/internal/services"
)

// ContactController handles the public contact form and a patron's own
// messages.
type ContactController struct {
	contacts *services.ContactService
}

func NewContactController(contactService *services.ContactService) *ContactController {
	return &ContactController{contacts: contactService}
}

// Submit stores a message for the administrators. A signed-in patron's
// email and names fill the blanks of the form.
// POST /api/contact
func (cc *ContactController) Submit(c *gin.Context) {
	var in services.ContactInput
	if err := c.ShouldBind(&in); err != nil {
		respondBadRequest(c, "invalid contact payload")
		return
	}
	if user := auth.GetUser(c); user != nil {
		if in.Email == "" {
			in.Email = user.Email
		}
		if in.LastName == "" {
			in.LastName = user.LastName
		}
		if in.FirstName == "" {
			in.FirstName = user.FirstName
		}
	}

	msg, err := cc.contacts.Submit(c.Request.Context(), in)
	if err != nil && msg == nil {
		respondServiceError(c, err, "message")
		return
	}
	if err != nil {
		log.Printf("Contact message %d: %v", msg.ID, err)
	}
	respondCreated(c, msg)
}

// Mine lists the messages the caller sent or received.
// GET /api/contact/mine
func (cc *ContactController) Mine(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	list, err := cc.contacts.ListForUser(user)
	if err != nil {
		respondInternalError(c, err, "list own messages")
		return
	}
	unread, err := cc.contacts.CountUnreadForUser(user)
	if err != nil {
		respondInternalError(c, err, "count own messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "unread": unread})
}

// ShowMine returns one of the caller's messages, marking a received one read.
// GET /api/contact/mine/:id
func (cc *ContactController) ShowMine(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	msg, err := cc.contacts.ShowForUser(user, id)
	if err != nil {
		respondServiceError(c, err, "message")
		return
	}
	c.JSON(http.StatusOK, msg)
}

// EditMine rewrites a sent message that has not been answered yet.
// PUT /api/contact/mine/:id
func (cc *ContactController) EditMine(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var in services.OwnMessageEdit
	if err := c.ShouldBind(&in); err != nil {
		respondBadRequest(c, "invalid message payload")
		return
	}

	msg, err := cc.contacts.EditOwn(user, id, in)
	if err != nil {
		respondServiceError(c, err, "message")
		return
	}
	c.JSON(http.StatusOK, msg)
}

// DeleteMine removes a message the caller sent or received.
// DELETE /api/contact/mine/:id
func (cc *ContactController) DeleteMine(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := cc.contacts.DeleteOwn(user, id); err != nil {
		respondServiceError(c, err, "message")
		return
	}
	respondSuccess(c, "message deleted")
}
