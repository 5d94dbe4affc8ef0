package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bibliotheque/internal/services"
)

type ReviewsController struct {
	reviews *services.ReviewService
}

func NewReviewsController(reviewService *services.ReviewService) *ReviewsController {
	return &ReviewsController{reviews: reviewService}
}

// Create posts a review of a book.
// POST /api/books/:id/reviews
func (rc *ReviewsController) Create(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var in services.ReviewInput
	if err := c.ShouldBind(&in); err != nil {
		respondBadRequest(c, "invalid review payload")
		return
	}

	review, err := rc.reviews.Create(user, bookID, in)
	if err != nil {
		respondServiceError(c, err, "book")
		return
	}
	respondCreated(c, review)
}

// Edit changes the rating and comment of a review. Only its author or an
// administrator may do so.
// PUT /api/reviews/:id
func (rc *ReviewsController) Edit(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	reviewID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var in services.ReviewInput
	if err := c.ShouldBind(&in); err != nil {
		respondBadRequest(c, "invalid review payload")
		return
	}

	review, err := rc.reviews.Edit(user, reviewID, in)
	if err != nil {
		respondServiceError(c, err, "review")
		return
	}
	c.JSON(http.StatusOK, review)
}
