package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bibliotheque/internal/audit"
	auditrepo "github.com/mrlokans/bibliotheque/internal/database/audit"
	"github.com/mrlokans/bibliotheque/internal/entities"
)

type AuditController struct {
	auditService *audit.Service
}

func NewAuditController(auditService *audit.Service) *AuditController {
	return &AuditController{
		auditService: auditService,
	}
}

// GetAuditEvents returns paginated audit events, newest first.
// GET /admin/audit?type=&user_id=&entity_type=&entity_id=
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	userID, ok := optionalQueryID(c, "user_id")
	if !ok {
		return
	}
	entityID, ok := optionalQueryID(c, "entity_id")
	if !ok {
		return
	}
	eventType := entities.AuditEventType(c.Query("type"))
	if eventType != "" && !knownEventType(eventType) {
		respondBadRequest(c, "invalid type")
		return
	}

	limit, offset := parsePagination(c)
	events, total, err := ac.auditService.ListEvents(auditrepo.Filter{
		UserID:     userID,
		EventType:  eventType,
		EntityType: c.Query("entity_type"),
		EntityID:   entityID,
	}, limit, offset)
	if err != nil {
		respondInternalError(c, err, "list audit events")
		return
	}

	resp := newPaginatedResponse(events, total, limit, offset)
	c.JSON(http.StatusOK, gin.H{
		"events":       resp.Data,
		"total_events": resp.Total,
		"limit":        resp.Limit,
		"offset":       resp.Offset,
		"has_more":     resp.HasMore,
		"total_pages":  resp.TotalPages,
		"event_types":  getEventTypes(),
	})
}

func knownEventType(t entities.AuditEventType) bool {
	for _, opt := range getEventTypes() {
		if opt.Value != "" && opt.Value == string(t) {
			return true
		}
	}
	return false
}

func getEventTypes() []EventTypeOption {
	return []EventTypeOption{
		{Value: "", Label: "Tous les événements"},
		{Value: string(entities.AuditEventLoan), Label: "Emprunts"},
		{Value: string(entities.AuditEventDelete), Label: "Suppressions"},
		{Value: string(entities.AuditEventUser), Label: "Utilisateurs"},
		{Value: string(entities.AuditEventAuth), Label: "Authentification"},
		{Value: string(entities.AuditEventContact), Label: "Messages"},
		{Value: string(entities.AuditEventNotification), Label: "Notifications"},
	}
}

type EventTypeOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}
