package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/bibliotheque/internal/auth"
	"github.com/mrlokans/bibliotheque/internal/database"
	"github.com/mrlokans/bibliotheque/internal/database/books"
	"github.com/mrlokans/bibliotheque/internal/database/categories"
	"github.com/mrlokans/bibliotheque/internal/database/loans"
	"github.com/mrlokans/bibliotheque/internal/database/publishers"
	"github.com/mrlokans/bibliotheque/internal/database/wishlists"
	"github.com/mrlokans/bibliotheque/internal/entities"
	"github.com/mrlokans/bibliotheque/internal/services"
	"github.com/mrlokans/bibliotheque/internal/uploads"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// FlashResponse answers back-office actions. The flash is what a browser
// client shows after the action, warning level when a side effect failed.
type FlashResponse struct {
	Message string     `json:"message"`
	Flash   auth.Flash `json:"flash"`
	Data    any        `json:"data,omitempty"`
}

// PaginatedResponse wraps paginated data with metadata.
type PaginatedResponse struct {
	Data       any   `json:"data"`
	Total      int64 `json:"total"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	HasMore    bool  `json:"has_more"`
	TotalPages int   `json:"total_pages,omitempty"`
}

func newPaginatedResponse(data any, total int64, limit, offset int) PaginatedResponse {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return PaginatedResponse{
		Data:       data,
		Total:      total,
		Limit:      limit,
		Offset:     offset,
		HasMore:    int64(offset+limit) < total,
		TotalPages: totalPages,
	}
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: "bad_request"})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found", Code: "not_found"})
}

func respondForbidden(c *gin.Context, message string) {
	c.JSON(http.StatusForbidden, ErrorResponse{Error: message, Code: "forbidden"})
}

func respondUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required", Code: "unauthorized"})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: "internal"})
}

// respondError sends an error response with the given status code.
// Use the specific helpers (respondBadRequest, respondNotFound, etc.) when possible.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// respondServiceError maps a domain error to its HTTP status. resource names
// the missing record for 404s; anything unknown is a logged 500.
func respondServiceError(c *gin.Context, err error, resource string) {
	var invalid validator.ValidationErrors
	if errors.As(err, &invalid) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation failed",
			Code:    "validation",
			Details: validationDetails(invalid),
		})
		return
	}

	switch {
	case errors.Is(err, database.ErrNotFound), errors.Is(err, auth.ErrUserNotFound):
		respondNotFound(c, resource)
	case errors.Is(err, wishlists.ErrNotInWishlist):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "not_found"})
	case errors.Is(err, services.ErrForbidden):
		respondForbidden(c, err.Error())
	case errors.Is(err, books.ErrHasActiveLoans),
		errors.Is(err, categories.ErrNameTaken),
		errors.Is(err, publishers.ErrNameTaken),
		errors.Is(err, auth.ErrUserExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "conflict"})
	case errors.Is(err, uploads.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: err.Error(), Code: "too_large"})
	case errors.Is(err, loans.ErrNoCopiesAvailable),
		errors.Is(err, entities.ErrLoanOverdue),
		errors.Is(err, entities.ErrLoanReturned),
		errors.Is(err, wishlists.ErrAlreadyInWishlist),
		errors.Is(err, services.ErrInvalidRating),
		errors.Is(err, services.ErrInvalidDueDate),
		errors.Is(err, services.ErrInvalidRecipient),
		errors.Is(err, services.ErrAlreadyReplied),
		errors.Is(err, books.ErrUnknownAuthor),
		errors.Is(err, uploads.ErrUnsupportedType),
		errors.Is(err, uploads.ErrEmptyFile),
		errors.Is(err, auth.ErrInvalidPassword),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrPasswordTooLong),
		errors.Is(err, auth.ErrPasswordRequired),
		errors.Is(err, auth.ErrEmailRequired),
		errors.Is(err, auth.ErrEmailInvalid),
		errors.Is(err, auth.ErrInvalidRole),
		errors.Is(err, auth.ErrLastNameTooLong):
		respondBadRequest(c, err.Error())
	default:
		respondInternalError(c, err, c.FullPath())
	}
}

// validationDetails lists the failing rule of every invalid field.
func validationDetails(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		details[fe.Field()] = fe.Tag()
	}
	return details
}

// --- Success Response Helpers ---

// respondSuccess sends a 200 OK response with a message.
func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

// respondCreated sends a 201 Created response with data.
func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// respondAccepted sends a 202 Accepted response (for async operations).
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// respondFlash answers a back-office action. A non-nil warn turns the flash
// into a warning carrying warnText. The flash is also queued in the session
// for the next page a browser loads.
func respondFlash(c *gin.Context, sm *auth.SessionManager, status int, text string, warn error, warnText string, data any) {
	flash := auth.Flash{Level: auth.FlashSuccess, Text: text}
	if warn != nil {
		log.Printf("Admin action %s completed with warning: %v", c.FullPath(), warn)
		flash = auth.Flash{Level: auth.FlashWarning, Text: warnText}
	}
	if sm != nil {
		sm.AddFlash(c.Request, flash.Level, flash.Text)
	}
	c.JSON(status, FlashResponse{Message: text, Flash: flash, Data: data})
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Param(paramName)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// parseQueryID extracts and validates an unsigned integer ID from query parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseQueryID(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Query(paramName)
	if idStr == "" {
		respondBadRequest(c, paramName+" is required")
		return 0, false
	}
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// optionalQueryID is parseQueryID for filters: an empty parameter gives 0.
func optionalQueryID(c *gin.Context, paramName string) (uint, bool) {
	if c.Query(paramName) == "" {
		return 0, true
	}
	return parseQueryID(c, paramName)
}

// parsePagination reads limit and offset, clamping the limit to maxPageSize.
func parsePagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// --- Current User ---

// currentUser returns the authenticated user or answers 401.
func currentUser(c *gin.Context) (*entities.User, bool) {
	user := auth.GetUser(c)
	if user == nil {
		respondUnauthorized(c)
		return nil, false
	}
	return user, true
}
