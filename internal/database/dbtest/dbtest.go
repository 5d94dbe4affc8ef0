// Package dbtest provides a migrated throwaway database and fixture helpers
// for repository and controller tests.
package dbtest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bibliotheque/internal/database"
	"github.com/mrlokans/bibliotheque/internal/entities"
)

// Open creates a fresh SQLite database under t.TempDir and closes it when the test ends.
func Open(t testing.TB) *database.Database {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"), database.WithLogLevel(logger.Silent))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func CreateUser(t testing.TB, db *gorm.DB, email string, role entities.UserRole) *entities.User {
	t.Helper()
	user := &entities.User{
		Email:      email,
		FirstName:  "Test",
		LastName:   "User",
		Role:       role,
		IsVerified: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func CreateBook(t testing.TB, db *gorm.DB, title string, quantity int, price float64) *entities.Book {
	t.Helper()
	book := &entities.Book{
		Title:    title,
		Quantity: quantity,
		Price:    price,
	}
	require.NoError(t, db.Create(book).Error)
	return book
}

func CreateCategory(t testing.TB, db *gorm.DB, name string) *entities.Category {
	t.Helper()
	category := &entities.Category{Name: name}
	require.NoError(t, db.Create(category).Error)
	return category
}

func CreatePublisher(t testing.TB, db *gorm.DB, name string) *entities.Publisher {
	t.Helper()
	publisher := &entities.Publisher{Name: name}
	require.NoError(t, db.Create(publisher).Error)
	return publisher
}

func CreateAuthor(t testing.TB, db *gorm.DB, firstName, lastName string) *entities.Author {
	t.Helper()
	author := &entities.Author{FirstName: firstName, LastName: lastName}
	require.NoError(t, db.Create(author).Error)
	return author
}

func CreateLoan(t testing.TB, db *gorm.DB, userID, bookID uint, borrowedAt time.Time) *entities.Loan {
	t.Helper()
	loan := entities.NewLoan(userID, bookID, borrowedAt)
	require.NoError(t, db.Create(loan).Error)
	return loan
}

func CreateReview(t testing.TB, db *gorm.DB, userID, bookID uint, rating int, active bool) *entities.Review {
	t.Helper()
	review := &entities.Review{
		UserID:   userID,
		BookID:   bookID,
		Rating:   rating,
		IsActive: true,
	}
	require.NoError(t, db.Create(review).Error)
	if !active {
		// A false bool is a zero value, so GORM would apply the column default on create.
		require.NoError(t, db.Model(review).Update("is_active", false).Error)
		review.IsActive = false
	}
	return review
}
