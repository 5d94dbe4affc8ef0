package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bibliotheque/internal/auth"
	"github.com/mrlokans/bibliotheque/internal/database/loans"
	"github.com/mrlokans/bibliotheque/internal/entities"
	"github.com/mrlokans/bibliotheque/internal/services"
)

// AdminLoanInput creates a loan from the back-office. DueAt is optional and
// defaults to the usual loan period.
type AdminLoanInput struct {
	UserID uint   `json:"user_id" schema:"user_id" validate:"required"`
	BookID uint   `json:"book_id" schema:"book_id" validate:"required"`
	DueAt  string `json:"due_at" schema:"due_at" validate:"omitempty,datetime=2006-01-02"`
	Notes  string `json:"notes" schema:"notes"`
}

// AdminLoanUpdate edits the due date or notes of a loan.
type AdminLoanUpdate struct {
	DueAt *string `json:"due_at" schema:"due_at" validate:"omitempty,datetime=2006-01-02"`
	Notes *string `json:"notes" schema:"notes"`
}

// parseDueDate reads a YYYY-MM-DD due date as the end of that day.
func parseDueDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	day, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return nil, err
	}
	due := day.Add(24*time.Hour - time.Second)
	return &due, nil
}

// ListLoans lists loans filtered by status, user and book. The overdue
// status matches borrowed loans past their due date.
// GET /admin/loans?status=&user_id=&book_id=
func (ac *AdminController) ListLoans(c *gin.Context) {
	userID, ok := optionalQueryID(c, "user_id")
	if !ok {
		return
	}
	bookID, ok := optionalQueryID(c, "book_id")
	if !ok {
		return
	}
	status := entities.LoanStatus(c.Query("status"))
	switch status {
	case "", entities.LoanStatusBorrowed, entities.LoanStatusReturned, entities.LoanStatusOverdue:
	default:
		respondBadRequest(c, "invalid status")
		return
	}

	limit, offset := parsePagination(c)
	list, total, err := ac.loans.List(loans.Filter{Status: status, UserID: userID, BookID: bookID}, limit, offset)
	if err != nil {
		respondInternalError(c, err, "list loans")
		return
	}
	c.JSON(http.StatusOK, newPaginatedResponse(newLoanViews(list, time.Now()), total, limit, offset))
}

// GetLoan returns one loan.
// GET /admin/loans/:id
func (ac *AdminController) GetLoan(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	loan, err := ac.loans.Get(id)
	if err != nil {
		respondServiceError(c, err, "loan")
		return
	}
	c.JSON(http.StatusOK, newLoanView(*loan, time.Now()))
}

// CreateLoan lends a book to a user from the back-office.
// POST /admin/loans
func (ac *AdminController) CreateLoan(c *gin.Context) {
	var in AdminLoanInput
	if err := bindPayload(c, &in); err != nil {
		respondBadRequest(c, "invalid loan form: "+err.Error())
		return
	}
	if err := validate.Struct(in); err != nil {
		respondServiceError(c, err, "loan")
		return
	}
	dueAt, err := parseDueDate(in.DueAt)
	if err != nil {
		respondBadRequest(c, "invalid due_at")
		return
	}

	loan, err := ac.loans.BorrowOnBehalf(in.UserID, in.BookID, dueAt, in.Notes)
	if err != nil {
		respondServiceError(c, err, "book")
		return
	}
	if ac.auditor != nil {
		ac.auditor.LogLoanCreate(ac.actorID(c), loan.ID, loan.UserID, loan.BookID, c.ClientIP())
	}
	respondFlash(c, ac.sessions, http.StatusCreated, "Emprunt enregistré.", nil, "", newLoanView(*loan, time.Now()))
}

// UpdateLoan changes the due date or the notes of a loan.
// PUT /admin/loans/:id
func (ac *AdminController) UpdateLoan(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var in AdminLoanUpdate
	if err := bindPayload(c, &in); err != nil {
		respondBadRequest(c, "invalid loan form: "+err.Error())
		return
	}
	if err := validate.Struct(in); err != nil {
		respondServiceError(c, err, "loan")
		return
	}

	update := services.LoanUpdate{Notes: in.Notes}
	if in.DueAt != nil {
		dueAt, err := parseDueDate(*in.DueAt)
		if err != nil {
			respondBadRequest(c, "invalid due_at")
			return
		}
		update.DueAt = dueAt
	}

	loan, err := ac.loans.Update(id, update)
	if err != nil {
		respondServiceError(c, err, "loan")
		return
	}
	respondFlash(c, ac.sessions, http.StatusOK, "Emprunt mis à jour.", nil, "", newLoanView(*loan, time.Now()))
}

// ReturnLoan marks a loan returned. A returned loan stays returned.
// POST /admin/loans/:id/return
func (ac *AdminController) ReturnLoan(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	loan, err := ac.loans.Return(id)
	if err != nil {
		respondServiceError(c, err, "loan")
		return
	}
	if ac.auditor != nil {
		ac.auditor.LogLoanReturn(ac.actorID(c), loan.ID, loan.BookID, c.ClientIP())
	}
	respondFlash(c, ac.sessions, http.StatusOK, "Livre marqué comme rendu.", nil, "", newLoanView(*loan, time.Now()))
}

// DeleteLoan removes a loan record.
// DELETE /admin/loans/:id
func (ac *AdminController) DeleteLoan(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	loan, err := ac.loans.Get(id)
	if err != nil {
		respondServiceError(c, err, "loan")
		return
	}
	if err := ac.loans.Delete(id); err != nil {
		respondServiceError(c, err, "loan")
		return
	}
	name := ""
	if loan.Book != nil {
		name = loan.Book.Title
	}
	ac.logDelete(c, "loan", loan.ID, name)
	respondFlash(c, ac.sessions, http.StatusOK, "Emprunt supprimé.", nil, "", nil)
}

// RunReminders triggers the overdue reminder job now.
// POST /admin/loans/reminders
func (ac *AdminController) RunReminders(c *gin.Context) {
	if ac.reminders == nil {
		respondError(c, http.StatusServiceUnavailable, "reminders are not configured")
		return
	}
	taskID, err := ac.reminders.RunNow(c.Request.Context(), "admin:"+auth.GetEmail(c))
	if err != nil {
		respondInternalError(c, err, "run reminders")
		return
	}
	if taskID == "" {
		respondFlash(c, ac.sessions, http.StatusOK, "Rappels de retard envoyés.", nil, "", nil)
		return
	}
	respondFlash(c, ac.sessions, http.StatusAccepted, "Envoi des rappels planifié.", nil, "", gin.H{"task_id": taskID})
}
