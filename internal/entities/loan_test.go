package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loanEpoch = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func TestNewLoan(t *testing.T) {
	loan := NewLoan(3, 7, loanEpoch)

	assert.Equal(t, uint(3), loan.UserID)
	assert.Equal(t, uint(7), loan.BookID)
	assert.Equal(t, LoanStatusBorrowed, loan.Status)
	assert.Equal(t, loanEpoch, loan.BorrowedAt)
	assert.Equal(t, loanEpoch.AddDate(0, 0, 21), loan.DueAt)
	assert.Nil(t, loan.ReturnedAt)
}

func TestLoan_IsOverdue(t *testing.T) {
	loan := NewLoan(1, 1, loanEpoch)

	t.Run("before due date", func(t *testing.T) {
		assert.False(t, loan.IsOverdue(loanEpoch.AddDate(0, 0, 20)))
	})

	t.Run("exactly at due date", func(t *testing.T) {
		assert.False(t, loan.IsOverdue(loan.DueAt))
	})

	t.Run("after due date", func(t *testing.T) {
		assert.True(t, loan.IsOverdue(loan.DueAt.Add(time.Second)))
	})

	t.Run("returned loans are never overdue", func(t *testing.T) {
		returned := NewLoan(1, 1, loanEpoch)
		require.NoError(t, returned.MarkReturned(loanEpoch.AddDate(0, 0, 30)))
		assert.False(t, returned.IsOverdue(loanEpoch.AddDate(0, 1, 0)))
	})
}

func TestLoan_Extend(t *testing.T) {
	t.Run("adds exactly seven days", func(t *testing.T) {
		loan := NewLoan(1, 1, loanEpoch)
		due := loan.DueAt

		require.NoError(t, loan.Extend(loanEpoch.AddDate(0, 0, 5)))
		assert.Equal(t, due.Add(7*24*time.Hour), loan.DueAt)
	})

	t.Run("can be extended repeatedly while on time", func(t *testing.T) {
		loan := NewLoan(1, 1, loanEpoch)
		require.NoError(t, loan.Extend(loanEpoch))
		require.NoError(t, loan.Extend(loanEpoch))
		assert.Equal(t, loanEpoch.AddDate(0, 0, 35), loan.DueAt)
	})

	t.Run("rejected when overdue", func(t *testing.T) {
		loan := NewLoan(1, 1, loanEpoch)
		due := loan.DueAt

		err := loan.Extend(due.Add(time.Hour))
		assert.ErrorIs(t, err, ErrLoanOverdue)
		assert.Equal(t, due, loan.DueAt)
	})

	t.Run("rejected when returned", func(t *testing.T) {
		loan := NewLoan(1, 1, loanEpoch)
		require.NoError(t, loan.MarkReturned(loanEpoch))

		assert.ErrorIs(t, loan.Extend(loanEpoch), ErrLoanReturned)
	})
}

func TestLoan_MarkReturned(t *testing.T) {
	loan := NewLoan(1, 1, loanEpoch)
	returnedAt := loanEpoch.AddDate(0, 0, 3)

	require.NoError(t, loan.MarkReturned(returnedAt))
	assert.Equal(t, LoanStatusReturned, loan.Status)
	require.NotNil(t, loan.ReturnedAt)
	assert.Equal(t, returnedAt, *loan.ReturnedAt)

	err := loan.MarkReturned(returnedAt.AddDate(0, 0, 1))
	assert.ErrorIs(t, err, ErrLoanReturned)
	assert.Equal(t, returnedAt, *loan.ReturnedAt)
}

func TestLoan_DaysRemaining(t *testing.T) {
	loan := NewLoan(1, 1, loanEpoch)

	assert.Equal(t, 21, loan.DaysRemaining(loanEpoch))
	assert.Equal(t, 1, loan.DaysRemaining(loanEpoch.AddDate(0, 0, 20)))
	assert.Equal(t, -2, loan.DaysRemaining(loanEpoch.AddDate(0, 0, 22).Add(time.Hour)))

	require.NoError(t, loan.MarkReturned(loanEpoch))
	assert.Equal(t, 0, loan.DaysRemaining(loanEpoch.AddDate(0, 0, 40)))
}

func TestLoan_EffectiveStatus(t *testing.T) {
	loan := NewLoan(1, 1, loanEpoch)

	assert.Equal(t, LoanStatusBorrowed, loan.EffectiveStatus(loanEpoch))
	assert.Equal(t, LoanStatusOverdue, loan.EffectiveStatus(loanEpoch.AddDate(0, 1, 0)))
	assert.Equal(t, LoanStatusBorrowed, loan.Status)
}
