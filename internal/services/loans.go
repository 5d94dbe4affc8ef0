package services

import (
	"fmt"
	"time"

	"github.com/mrlokans/bibliotheque/internal/database/loans"
	"github.com/mrlokans/bibliotheque/internal/entities"
)

// LoanUpdate carries the fields an administrator may edit on a loan.
type LoanUpdate struct {
	DueAt *time.Time `json:"due_at"`
	Notes *string    `json:"notes"`
}

// LoanService owns the loan lifecycle: borrowing against availability,
// extensions and returns.
type LoanService struct {
	store *loans.Repository
	now   func() time.Time
}

func NewLoanService(store *loans.Repository) *LoanService {
	return &LoanService{store: store, now: time.Now}
}

// Borrow creates a loan due in 21 days if the book has a free copy.
func (s *LoanService) Borrow(userID, bookID uint) (*entities.Loan, error) {
	loan := entities.NewLoan(userID, bookID, s.now())
	if err := s.store.CreateIfAvailable(loan); err != nil {
		return nil, err
	}
	return loan, nil
}

// BorrowOnBehalf creates a loan for userID from the back-office. A custom
// due date and notes are optional.
func (s *LoanService) BorrowOnBehalf(userID, bookID uint, dueAt *time.Time, notes string) (*entities.Loan, error) {
	loan := entities.NewLoan(userID, bookID, s.now())
	if dueAt != nil {
		if !dueAt.After(loan.BorrowedAt) {
			return nil, ErrInvalidDueDate
		}
		loan.DueAt = *dueAt
	}
	loan.Notes = notes
	if err := s.store.CreateIfAvailable(loan); err != nil {
		return nil, err
	}
	return loan, nil
}

// Extend pushes the due date back by 7 days. Only the borrower or an
// administrator may extend, and never once the loan is overdue.
func (s *LoanService) Extend(loanID uint, actor *entities.User) (*entities.Loan, error) {
	loan, err := s.store.GetLoanByID(loanID)
	if err != nil {
		return nil, err
	}
	if loan.UserID != actor.ID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := loan.Extend(s.now()); err != nil {
		return nil, err
	}
	if err := s.store.SaveLoan(loan); err != nil {
		return nil, fmt.Errorf("failed to save loan: %w", err)
	}
	return loan, nil
}

// Return closes a loan. Returning twice is an error.
func (s *LoanService) Return(loanID uint) (*entities.Loan, error) {
	loan, err := s.store.GetLoanByID(loanID)
	if err != nil {
		return nil, err
	}
	if err := loan.MarkReturned(s.now()); err != nil {
		return nil, err
	}
	if err := s.store.SaveLoan(loan); err != nil {
		return nil, fmt.Errorf("failed to save loan: %w", err)
	}
	return loan, nil
}

// Update edits the due date or notes of a loan.
func (s *LoanService) Update(loanID uint, in LoanUpdate) (*entities.Loan, error) {
	loan, err := s.store.GetLoanByID(loanID)
	if err != nil {
		return nil, err
	}
	if in.DueAt != nil {
		if !in.DueAt.After(loan.BorrowedAt) {
			return nil, ErrInvalidDueDate
		}
		loan.DueAt = *in.DueAt
	}
	if in.Notes != nil {
		loan.Notes = *in.Notes
	}
	if err := s.store.SaveLoan(loan); err != nil {
		return nil, fmt.Errorf("failed to save loan: %w", err)
	}
	return loan, nil
}

func (s *LoanService) Get(loanID uint) (*entities.Loan, error) {
	return s.store.GetLoanByID(loanID)
}

func (s *LoanService) Delete(loanID uint) error {
	return s.store.DeleteLoan(loanID)
}

// ListForUser returns the user's loans split into current ones and history.
func (s *LoanService) ListForUser(userID uint) (current, history []entities.Loan, err error) {
	all, err := s.store.ListByUser(userID)
	if err != nil {
		return nil, nil, err
	}
	current = []entities.Loan{}
	history = []entities.Loan{}
	for _, l := range all {
		if l.Status == entities.LoanStatusBorrowed {
			current = append(current, l)
		} else {
			history = append(history, l)
		}
	}
	return current, history, nil
}

func (s *LoanService) List(f loans.Filter, limit, offset int) ([]entities.Loan, int64, error) {
	return s.store.List(f, s.now(), limit, offset)
}
