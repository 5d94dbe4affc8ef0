package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bibliotheque/internal/entities"
	"github.com/mrlokans/bibliotheque/internal/services"
)

// LoanView adds the derived state of a loan to its JSON form.
type LoanView struct {
	entities.Loan
	EffectiveStatus entities.LoanStatus `json:"effective_status"`
	DaysRemaining   int                 `json:"days_remaining"`
	IsOverdue       bool                `json:"is_overdue"`
}

func newLoanView(l entities.Loan, now time.Time) LoanView {
	return LoanView{
		Loan:            l,
		EffectiveStatus: l.EffectiveStatus(now),
		DaysRemaining:   l.DaysRemaining(now),
		IsOverdue:       l.IsOverdue(now),
	}
}

func newLoanViews(list []entities.Loan, now time.Time) []LoanView {
	views := make([]LoanView, 0, len(list))
	for _, l := range list {
		views = append(views, newLoanView(l, now))
	}
	return views
}

// LoansController handles a patron's own loans.
type LoansController struct {
	loans *services.LoanService
	now   func() time.Time
}

func NewLoansController(loanService *services.LoanService) *LoansController {
	return &LoansController{loans: loanService, now: time.Now}
}

// MyLoans lists the caller's current loans and history.
// GET /api/loans
func (lc *LoansController) MyLoans(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	current, history, err := lc.loans.ListForUser(user.ID)
	if err != nil {
		respondInternalError(c, err, "list loans")
		return
	}

	now := lc.now()
	c.JSON(http.StatusOK, gin.H{
		"current": newLoanViews(current, now),
		"history": newLoanViews(history, now),
	})
}

// Borrow lends a copy of the book to the caller for three weeks.
// POST /api/books/:id/borrow
func (lc *LoansController) Borrow(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	loan, err := lc.loans.Borrow(user.ID, bookID)
	if err != nil {
		respondServiceError(c, err, "book")
		return
	}
	respondCreated(c, newLoanView(*loan, lc.now()))
}

// Extend pushes the due date of one of the caller's loans back a week.
// POST /api/loans/:id/extend
func (lc *LoansController) Extend(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	loanID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	loan, err := lc.loans.Extend(loanID, user)
	if err != nil {
		respondServiceError(c, err, "loan")
		return
	}
	c.JSON(http.StatusOK, newLoanView(*loan, lc.now()))
}
