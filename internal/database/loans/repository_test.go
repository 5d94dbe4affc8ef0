package loans

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/bibliotheque/internal/database"
	"github.com/mrlokans/bibliotheque/internal/database/dbtest"
	"github.com/mrlokans/bibliotheque/internal/entities"
)

func setupTestDB(t *testing.T) (*gorm.DB, *Repository) {
	db := dbtest.Open(t)
	return db.DB, NewRepository(db.DB)
}

func TestRepository_CreateIfAvailable(t *testing.T) {
	db, repo := setupTestDB(t)
	user := dbtest.CreateUser(t, db, "reader@example.com", entities.UserRoleUser)
	now := time.Now()

	t.Run("creates while copies remain", func(t *testing.T) {
		book := dbtest.CreateBook(t, db, "Two copies", 2, 10)

		require.NoError(t, repo.CreateIfAvailable(entities.NewLoan(user.ID, book.ID, now)))
		require.NoError(t, repo.CreateIfAvailable(entities.NewLoan(user.ID, book.ID, now)))

		err := repo.CreateIfAvailable(entities.NewLoan(user.ID, book.ID, now))
		assert.ErrorIs(t, err, ErrNoCopiesAvailable)

		active, err := repo.CountActive()
		require.NoError(t, err)
		assert.Equal(t, int64(2), active)
	})

	t.Run("rejected for zero stock", func(t *testing.T) {
		book := dbtest.CreateBook(t, db, "Out of stock", 0, 10)
		err := repo.CreateIfAvailable(entities.NewLoan(user.ID, book.ID, now))
		assert.ErrorIs(t, err, ErrNoCopiesAvailable)
	})

	t.Run("unknown book", func(t *testing.T) {
		err := repo.CreateIfAvailable(entities.NewLoan(user.ID, 999, now))
		assert.ErrorIs(t, err, database.ErrNotFound)
	})
}

func TestRepository_ListAndCounts(t *testing.T) {
	db, repo := setupTestDB(t)
	alice := dbtest.CreateUser(t, db, "alice@example.com", entities.UserRoleUser)
	bob := dbtest.CreateUser(t, db, "bob@example.com", entities.UserRoleUser)
	book := dbtest.CreateBook(t, db, "Popular", 10, 10)
	other := dbtest.CreateBook(t, db, "Niche", 10, 10)
	now := time.Now()

	late := dbtest.CreateLoan(t, db, alice.ID, book.ID, now.AddDate(0, 0, -30))
	current := dbtest.CreateLoan(t, db, alice.ID, other.ID, now.AddDate(0, 0, -1))
	returned := dbtest.CreateLoan(t, db, bob.ID, book.ID, now.AddDate(0, 0, -10))
	require.NoError(t, returned.MarkReturned(now))
	require.NoError(t, repo.SaveLoan(returned))

	t.Run("list by user puts current loans first", func(t *testing.T) {
		list, err := repo.ListByUser(alice.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, current.ID, list[0].ID)
		assert.Equal(t, late.ID, list[1].ID)
		require.NotNil(t, list[0].Book)
		assert.Equal(t, "Niche", list[0].Book.Title)
	})

	t.Run("overdue filter is derived from the due date", func(t *testing.T) {
		list, total, err := repo.List(Filter{Status: entities.LoanStatusOverdue}, now, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, late.ID, list[0].ID)
		assert.Equal(t, entities.LoanStatusBorrowed, list[0].Status)
	})

	t.Run("status and user filters", func(t *testing.T) {
		_, total, err := repo.List(Filter{Status: entities.LoanStatusReturned}, now, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)

		_, total, err = repo.List(Filter{UserID: alice.ID}, now, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
	})

	t.Run("counts", func(t *testing.T) {
		active, err := repo.CountActive()
		require.NoError(t, err)
		assert.Equal(t, int64(2), active)

		overdue, err := repo.CountOverdue(now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), overdue)

		mine, err := repo.CountActiveForUser(bob.ID)
		require.NoError(t, err)
		assert.Zero(t, mine)

		has, err := repo.HasActiveLoan(alice.ID, book.ID)
		require.NoError(t, err)
		assert.True(t, has)
	})

	t.Run("top borrowed", func(t *testing.T) {
		top, err := repo.TopBorrowed(5)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, "Popular", top[0].Title)
		assert.Equal(t, int64(2), top[0].Total)
	})
}

func TestRepository_DueForReminder(t *testing.T) {
	db, repo := setupTestDB(t)
	user := dbtest.CreateUser(t, db, "late@example.com", entities.UserRoleUser)
	book := dbtest.CreateBook(t, db, "Overdue", 5, 1)
	now := time.Now()

	late := dbtest.CreateLoan(t, db, user.ID, book.ID, now.AddDate(0, 0, -30))
	dbtest.CreateLoan(t, db, user.ID, book.ID, now)

	due, err := repo.DueForReminder(now, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, late.ID, due[0].ID)
	require.NotNil(t, due[0].User)
	assert.Equal(t, "late@example.com", due[0].User.Email)

	require.NoError(t, repo.MarkReminded(late.ID, now))

	due, err = repo.DueForReminder(now.Add(time.Hour), 24*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = repo.DueForReminder(now.Add(25*time.Hour), 24*time.Hour)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestRepository_DeleteLoan(t *testing.T) {
	db, repo := setupTestDB(t)
	user := dbtest.CreateUser(t, db, "reader@example.com", entities.UserRoleUser)
	book := dbtest.CreateBook(t, db, "Book", 1, 1)
	loan := dbtest.CreateLoan(t, db, user.ID, book.ID, time.Now())

	require.NoError(t, repo.DeleteLoan(loan.ID))
	assert.ErrorIs(t, repo.DeleteLoan(loan.ID), database.ErrNotFound)

	_, err := repo.GetLoanByID(loan.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
}
