package entities

import (
	"errors"
	"math"
	"time"
)

type LoanStatus string

const (
	LoanStatusBorrowed LoanStatus = "borrowed"
	LoanStatusReturned LoanStatus = "returned"
	// LoanStatusOverdue is never stored; see Loan.EffectiveStatus.
	LoanStatusOverdue LoanStatus = "overdue"
)

const (
	DefaultLoanDuration = 21 * 24 * time.Hour
	LoanExtensionPeriod = 7 * 24 * time.Hour
)

var (
	ErrLoanOverdue  = errors.New("loan is overdue and cannot be extended")
	ErrLoanReturned = errors.New("loan has already been returned")
)

type Loan struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"index;not null" json:"user_id"`
	User           *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	BookID         uint       `gorm:"index;not null" json:"book_id"`
	Book           *Book      `gorm:"foreignKey:BookID" json:"book,omitempty"`
	BorrowedAt     time.Time  `gorm:"not null" json:"borrowed_at"`
	DueAt          time.Time  `gorm:"index;not null" json:"due_at"`
	ReturnedAt     *time.Time `json:"returned_at,omitempty"`
	Status         LoanStatus `gorm:"index;size:20;not null;default:'borrowed'" json:"status"`
	Notes          string     `gorm:"type:text" json:"notes,omitempty"`
	LastReminderAt *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (Loan) TableName() string {
	return "loans"
}

// NewLoan starts a loan at now, due after the default duration.
func NewLoan(userID, bookID uint, now time.Time) *Loan {
	return &Loan{
		UserID:     userID,
		BookID:     bookID,
		BorrowedAt: now,
		DueAt:      now.Add(DefaultLoanDuration),
		Status:     LoanStatusBorrowed,
	}
}

func (l *Loan) IsOverdue(now time.Time) bool {
	return l.Status == LoanStatusBorrowed && now.After(l.DueAt)
}

// Extend pushes the due date back by one extension period.
func (l *Loan) Extend(now time.Time) error {
	if l.Status == LoanStatusReturned {
		return ErrLoanReturned
	}
	if l.IsOverdue(now) {
		return ErrLoanOverdue
	}
	l.DueAt = l.DueAt.Add(LoanExtensionPeriod)
	return nil
}

func (l *Loan) MarkReturned(now time.Time) error {
	if l.Status == LoanStatusReturned {
		return ErrLoanReturned
	}
	l.ReturnedAt = &now
	l.Status = LoanStatusReturned
	return nil
}

// DaysRemaining counts whole days until the due date. Late loans give a
// negative number and returned loans give zero.
func (l *Loan) DaysRemaining(now time.Time) int {
	if l.Status == LoanStatusReturned {
		return 0
	}
	return int(math.Floor(l.DueAt.Sub(now).Hours() / 24))
}

func (l *Loan) EffectiveStatus(now time.Time) LoanStatus {
	if l.IsOverdue(now) {
		return LoanStatusOverdue
	}
	return l.Status
}
