package reviews

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bibliotheque/internal/database"
	"github.com/mrlokans/bibliotheque/internal/database/books"
	"github.com/mrlokans/bibliotheque/internal/database/dbtest"
	"github.com/mrlokans/bibliotheque/internal/entities"
)

func TestRepository_Reviews(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db.DB)

	alice := dbtest.CreateUser(t, db.DB, "alice@example.com", entities.UserRoleUser)
	bob := dbtest.CreateUser(t, db.DB, "bob@example.com", entities.UserRoleUser)
	book := dbtest.CreateBook(t, db.DB, "Le Horla", 1, 4)

	visible := &entities.Review{UserID: alice.ID, BookID: book.ID, Rating: 5, Comment: "Glaçant", IsActive: true}
	require.NoError(t, repo.CreateReview(visible))
	hidden := &entities.Review{UserID: bob.ID, BookID: book.ID, Rating: 1, IsActive: false}
	require.NoError(t, repo.CreateReview(hidden))

	t.Run("inactive flag survives creation", func(t *testing.T) {
		assert.False(t, hidden.IsActive)
		got, err := repo.GetReviewByID(hidden.ID)
		require.NoError(t, err)
		assert.False(t, got.IsActive)
	})

	t.Run("inactive review is left out of the average", func(t *testing.T) {
		avg, err := books.NewRepository(db.DB).AverageRating(book.ID)
		require.NoError(t, err)
		assert.Equal(t, 5.0, avg)
	})

	t.Run("only active reviews are listed for a book", func(t *testing.T) {
		list, err := repo.ListActiveForBook(book.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Glaçant", list[0].Comment)
		require.NotNil(t, list[0].User)
		assert.Equal(t, "alice@example.com", list[0].User.Email)
	})

	t.Run("toggle activity", func(t *testing.T) {
		require.NoError(t, repo.SetActive(hidden.ID, true))
		list, err := repo.ListActiveForBook(book.ID)
		require.NoError(t, err)
		assert.Len(t, list, 2)

		assert.ErrorIs(t, repo.SetActive(999, true), database.ErrNotFound)
	})

	t.Run("find by user and book", func(t *testing.T) {
		got, err := repo.FindByUserAndBook(alice.ID, book.ID)
		require.NoError(t, err)
		assert.Equal(t, visible.ID, got.ID)

		_, err = repo.FindByUserAndBook(alice.ID, 999)
		assert.ErrorIs(t, err, database.ErrNotFound)
	})

	t.Run("moderation list", func(t *testing.T) {
		list, total, err := repo.List(10, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, list, 2)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteReview(visible.ID))
		assert.ErrorIs(t, repo.DeleteReview(visible.ID), database.ErrNotFound)
	})
}
