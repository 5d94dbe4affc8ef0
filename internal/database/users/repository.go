// Package users provides database operations for user management.
//
// Credential handling (hashing, lockout, tokens) lives in internal/auth;
// this package covers the listings and lookups used by the back-office and
// the notification fan-out.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	admins, err := repo.ListAdmins()
package users

import (
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/bibliotheque/internal/database"
	"github.com/mrlokans/bibliotheque/internal/entities"
)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, database.NotFound(err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email, ignoring case.
func (r *Repository) GetUserByEmail(email string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, database.NotFound(err)
	}
	return &user, nil
}

// ListUsers returns a page of users matching q on email or names.
func (r *Repository) ListUsers(q string, limit, offset int) ([]entities.User, int64, error) {
	query := r.db.Model(&entities.User{})
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("(LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?)", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 50
	}

	var list []entities.User
	err := query.Order("last_name ASC, first_name ASC, id ASC").Limit(limit).Offset(offset).Find(&list).Error
	return list, total, err
}

// ListAdmins returns every administrator account.
func (r *Repository) ListAdmins() ([]entities.User, error) {
	var list []entities.User
	err := r.db.Where("role = ?", entities.UserRoleAdmin).Order("id ASC").Find(&list).Error
	return list, err
}

// ListAll returns every user, ordered by id.
func (r *Repository) ListAll() ([]entities.User, error) {
	var list []entities.User
	err := r.db.Order("id ASC").Find(&list).Error
	return list, err
}

func (r *Repository) CountUsers() (int64, error) {
	var n int64
	err := r.db.Model(&entities.User{}).Count(&n).Error
	return n, err
}

// UpdateProfile writes the editable profile fields only.
func (r *Repository) UpdateProfile(user *entities.User) error {
	return r.db.Model(user).Select("first_name", "last_name", "phone", "email", "role").Updates(user).Error
}

// SetVerified updates the verification flag, which gates login.
func (r *Repository) SetVerified(id uint, verified bool) error {
	result := r.db.Model(&entities.User{}).Where("id = ?", id).Update("is_verified", verified)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// DeleteUser removes a user together with the rows that only make sense
// for them. Loans are kept for the library's history.
func (r *Repository) DeleteUser(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&entities.WishlistItem{}, &entities.Notification{}, &entities.Review{}} {
			if err := tx.Where("user_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&entities.ContactMessage{}).Where("recipient_id = ?", id).Update("recipient_id", nil).Error; err != nil {
			return err
		}
		result := tx.Delete(&entities.User{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return database.ErrNotFound
		}
		return nil
	})
}
