package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bibliotheque/internal/database/dbtest"
	"github.com/mrlokans/bibliotheque/internal/database/loans"
	"github.com/mrlokans/bibliotheque/internal/entities"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestLoanService_BorrowDueInThreeWeeks(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f.loans.now = fixedClock(now)

	reader := f.user(t, "reader@example.com")
	book := dbtest.CreateBook(t, f.db, "Germinal", 1, 12)

	loan, err := f.loans.Borrow(reader.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.LoanStatusBorrowed, loan.Status)
	assert.True(t, loan.DueAt.Equal(now.AddDate(0, 0, 21)))

	_, err = f.loans.Borrow(reader.ID, book.ID)
	assert.ErrorIs(t, err, loans.ErrNoCopiesAvailable)
}

func TestLoanService_BorrowWithoutStock(t *testing.T) {
	f := newFixture(t)
	reader := f.user(t, "reader@example.com")
	book := dbtest.CreateBook(t, f.db, "Nana", 0, 9)

	_, err := f.loans.Borrow(reader.ID, book.ID)
	assert.ErrorIs(t, err, loans.ErrNoCopiesAvailable)
}

func TestLoanService_ReturnFreesCopy(t *testing.T) {
	f := newFixture(t)
	first := f.user(t, "first@example.com")
	second := f.user(t, "second@example.com")
	book := dbtest.CreateBook(t, f.db, "Candide", 1, 5)

	loan, err := f.loans.Borrow(first.ID, book.ID)
	require.NoError(t, err)

	returned, err := f.loans.Return(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.LoanStatusReturned, returned.Status)
	assert.NotNil(t, returned.ReturnedAt)

	_, err = f.loans.Return(loan.ID)
	assert.ErrorIs(t, err, entities.ErrLoanReturned)

	_, err = f.loans.Borrow(second.ID, book.ID)
	assert.NoError(t, err)
}

func TestLoanService_Extend(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f.loans.now = fixedClock(start)

	reader := f.user(t, "reader@example.com")
	stranger := f.user(t, "stranger@example.com")
	admin := f.admin(t, "admin@example.com")
	book := dbtest.CreateBook(t, f.db, "Zadig", 2, 7)

	loan, err := f.loans.Borrow(reader.ID, book.ID)
	require.NoError(t, err)

	_, err = f.loans.Extend(loan.ID, stranger)
	assert.ErrorIs(t, err, ErrForbidden)

	extended, err := f.loans.Extend(loan.ID, reader)
	require.NoError(t, err)
	assert.True(t, extended.DueAt.Equal(start.AddDate(0, 0, 28)))

	extended, err = f.loans.Extend(loan.ID, admin)
	require.NoError(t, err)
	assert.True(t, extended.DueAt.Equal(start.AddDate(0, 0, 35)))

	f.loans.now = fixedClock(start.AddDate(0, 0, 36))
	_, err = f.loans.Extend(loan.ID, reader)
	assert.ErrorIs(t, err, entities.ErrLoanOverdue)

	stored, err := f.loans.Get(loan.ID)
	require.NoError(t, err)
	assert.True(t, stored.DueAt.Equal(start.AddDate(0, 0, 35)))
}

func TestLoanService_BorrowOnBehalf(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f.loans.now = fixedClock(now)
	reader := f.user(t, "reader@example.com")
	book := dbtest.CreateBook(t, f.db, "Le Horla", 3, 4)

	past := now.Add(-time.Hour)
	_, err := f.loans.BorrowOnBehalf(reader.ID, book.ID, &past, "")
	assert.ErrorIs(t, err, ErrInvalidDueDate)

	due := now.AddDate(0, 0, 10)
	loan, err := f.loans.BorrowOnBehalf(reader.ID, book.ID, &due, "remis au guichet")
	require.NoError(t, err)
	assert.True(t, loan.DueAt.Equal(due))
	assert.Equal(t, "remis au guichet", loan.Notes)

	notes := "prolongé par téléphone"
	later := due.AddDate(0, 0, 5)
	updated, err := f.loans.Update(loan.ID, LoanUpdate{DueAt: &later, Notes: &notes})
	require.NoError(t, err)
	assert.True(t, updated.DueAt.Equal(later))
	assert.Equal(t, notes, updated.Notes)
}

func TestLoanService_ListForUserSplitsHistory(t *testing.T) {
	f := newFixture(t)
	reader := f.user(t, "reader@example.com")
	a := dbtest.CreateBook(t, f.db, "A", 1, 1)
	b := dbtest.CreateBook(t, f.db, "B", 1, 1)

	first, err := f.loans.Borrow(reader.ID, a.ID)
	require.NoError(t, err)
	_, err = f.loans.Borrow(reader.ID, b.ID)
	require.NoError(t, err)
	_, err = f.loans.Return(first.ID)
	require.NoError(t, err)

	current, history, err := f.loans.ListForUser(reader.ID)
	require.NoError(t, err)
	require.Len(t, current, 1)
	require.Len(t, history, 1)
	assert.Equal(t, b.ID, current[0].BookID)
	assert.Equal(t, a.ID, history[0].BookID)
}
