package http

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bibliotheque/internal/auth"
	"github.com/mrlokans/bibliotheque/internal/config"
	"github.com/mrlokans/bibliotheque/internal/database/notifications"
	"github.com/mrlokans/bibliotheque/internal/services"
)

// AuthTemplateData holds authentication info for templates.
type AuthTemplateData struct {
	Enabled             bool   // Whether auth is enabled (AuthModeLocal)
	LoggedIn            bool   // Whether user is logged in
	Email               string // Current user's email (empty if not logged in)
	DisplayName         string
	IsAdmin             bool
	UnreadNotifications int64
	UnreadMessages      int64 // user messages awaiting an admin, admins only
	CSRFToken           string
	Flashes             []auth.Flash
}

// AuthContextMiddleware injects authentication data into Gin context for templates.
// Only page requests pay for the unread counters; API requests get the
// bare identity.
func AuthContextMiddleware(authMode config.AuthMode, sm *auth.SessionManager, store *notifications.Repository, contactService *services.ContactService) gin.HandlerFunc {
	authEnabled := authMode == config.AuthModeLocal

	return func(c *gin.Context) {
		authData := AuthTemplateData{
			Enabled:   authEnabled,
			CSRFToken: auth.GetCSRFToken(c),
		}

		if user := auth.GetUser(c); user != nil {
			authData.LoggedIn = true
			authData.Email = user.Email
			authData.DisplayName = user.DisplayName()
			authData.IsAdmin = user.IsAdmin()

			if !auth.IsAPIRequest(c) {
				if store != nil {
					if n, err := store.CountUnread(user.ID); err == nil {
						authData.UnreadNotifications = n
					} else {
						log.Printf("Failed to count unread notifications for user %d: %v", user.ID, err)
					}
				}
				if authData.IsAdmin && contactService != nil {
					if n, err := contactService.CountUnreadFromUsers(); err == nil {
						authData.UnreadMessages = n
					} else {
						log.Printf("Failed to count unread messages: %v", err)
					}
				}
			}
		}

		if sm != nil && !auth.IsAPIRequest(c) {
			authData.Flashes = sm.PopFlashes(c.Request)
		}

		c.Set("auth_template_data", authData)
		c.Next()
	}
}

// GetAuthTemplateData retrieves auth data from context for use in templates.
func GetAuthTemplateData(c *gin.Context) AuthTemplateData {
	if data, exists := c.Get("auth_template_data"); exists {
		if authData, ok := data.(AuthTemplateData); ok {
			return authData
		}
	}
	return AuthTemplateData{}
}
