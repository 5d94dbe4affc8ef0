package services

import (
	"errors"

	"github.com/mrlokans/bibliotheque/internal/database"
)

var (
	ErrForbidden        = errors.New("action not allowed for this user")
	ErrAlreadyReplied   = errors.New("message has already been answered")
	ErrInvalidRecipient = errors.New("recipient does not exist")
	ErrInvalidRating    = errors.New("rating must be between 1 and 5")
	ErrInvalidDueDate   = errors.New("due date must be after the borrow date")
)

func isNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}
