package services

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/bibliotheque/internal/database/books"
	"github.com/mrlokans/bibliotheque/internal/database/reviews"
	"github.com/mrlokans/bibliotheque/internal/entities"
)

// ReviewInput is what a patron submits about a book.
type ReviewInput struct {
	Rating  int    `json:"rating" form:"rating" schema:"rating" validate:"min=1,max=5"`
	Comment string `json:"comment" form:"comment" schema:"comment" validate:"max=2000"`
}

type ReviewService struct {
	store    *reviews.Repository
	books    *books.Repository
	validate *validator.Validate
}

func NewReviewService(store *reviews.Repository, bookRepo *books.Repository) *ReviewService {
	return &ReviewService{
		store:    store,
		books:    bookRepo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// check validates in. A bad rating reports ErrInvalidRating, other fields
// the validator's own errors.
func (s *ReviewService) check(in ReviewInput) error {
	err := s.validate.Struct(in)
	var invalid validator.ValidationErrors
	if errors.As(err, &invalid) {
		for _, fe := range invalid {
			if fe.Field() == "Rating" {
				return ErrInvalidRating
			}
		}
	}
	if err != nil {
		return err
	}
	if !entities.ValidRating(in.Rating) {
		return ErrInvalidRating
	}
	return nil
}

// Create stores an active review of bookID by user.
func (s *ReviewService) Create(user *entities.User, bookID uint, in ReviewInput) (*entities.Review, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	if _, err := s.books.GetBookByID(bookID); err != nil {
		return nil, err
	}
	review := &entities.Review{
		UserID:   user.ID,
		BookID:   bookID,
		Rating:   in.Rating,
		Comment:  strings.TrimSpace(in.Comment),
		IsActive: true,
	}
	if err := s.store.CreateReview(review); err != nil {
		return nil, err
	}
	return review, nil
}

// Edit changes rating and comment. Only the author of the review or an
// administrator may edit it.
func (s *ReviewService) Edit(actor *entities.User, reviewID uint, in ReviewInput) (*entities.Review, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	review, err := s.store.GetReviewByID(reviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID != actor.ID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	review.Rating = in.Rating
	review.Comment = strings.TrimSpace(in.Comment)
	if err := s.store.SaveReview(review); err != nil {
		return nil, err
	}
	return review, nil
}

// Toggle flips the visibility of a review and returns the new state.
func (s *ReviewService) Toggle(reviewID uint) (bool, error) {
	review, err := s.store.GetReviewByID(reviewID)
	if err != nil {
		return false, err
	}
	active := !review.IsActive
	if err := s.store.SetActive(reviewID, active); err != nil {
		return false, err
	}
	return active, nil
}

func (s *ReviewService) ListForBook(bookID uint) ([]entities.Review, error) {
	if _, err := s.books.GetBookByID(bookID); err != nil {
		return nil, err
	}
	return s.store.ListActiveForBook(bookID)
}

func (s *ReviewService) List(limit, offset int) ([]entities.Review, int64, error) {
	return s.store.List(limit, offset)
}

func (s *ReviewService) Delete(reviewID uint) error {
	return s.store.DeleteReview(reviewID)
}
