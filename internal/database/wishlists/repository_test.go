package wishlists

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bibliotheque/internal/database"
	"github.com/mrlokans/bibliotheque/internal/database/dbtest"
	"github.com/mrlokans/bibliotheque/internal/entities"
)

func TestRepository_Wishlist(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db.DB)
	now := time.Now()

	alice := dbtest.CreateUser(t, db.DB, "alice@example.com", entities.UserRoleUser)
	bob := dbtest.CreateUser(t, db.DB, "bob@example.com", entities.UserRoleUser)
	dune := dbtest.CreateBook(t, db.DB, "Dune", 1, 10)
	fondation := dbtest.CreateBook(t, db.DB, "Fondation", 1, 10)

	t.Run("add once per user and book", func(t *testing.T) {
		item, err := repo.Add(alice.ID, dune.ID, now)
		require.NoError(t, err)
		assert.NotZero(t, item.ID)

		_, err = repo.Add(alice.ID, dune.ID, now)
		assert.ErrorIs(t, err, ErrAlreadyInWishlist)

		_, err = repo.Add(bob.ID, dune.ID, now)
		require.NoError(t, err)
	})

	t.Run("unique index backs the check", func(t *testing.T) {
		err := db.DB.Create(&entities.WishlistItem{UserID: alice.ID, BookID: dune.ID, AddedAt: now}).Error
		require.Error(t, err)
		assert.True(t, isUniqueViolation(err))
	})

	t.Run("contains and list", func(t *testing.T) {
		_, err := repo.Add(alice.ID, fondation.ID, now.Add(time.Minute))
		require.NoError(t, err)

		ok, err := repo.Contains(alice.ID, fondation.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		list, err := repo.ListByUser(alice.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Fondation", list[0].Book.Title)
	})

	t.Run("top wishlisted", func(t *testing.T) {
		top, err := repo.TopWishlisted(1)
		require.NoError(t, err)
		require.Len(t, top, 1)
		assert.Equal(t, "Dune", top[0].Title)
		assert.Equal(t, int64(2), top[0].Total)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, repo.Remove(alice.ID, dune.ID))
		assert.ErrorIs(t, repo.Remove(alice.ID, dune.ID), ErrNotInWishlist)
	})

	t.Run("admin list and delete", func(t *testing.T) {
		list, total, err := repo.List(10, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)

		require.NoError(t, repo.DeleteItem(list[0].ID))
		assert.ErrorIs(t, repo.DeleteItem(list[0].ID), database.ErrNotFound)
	})
}
