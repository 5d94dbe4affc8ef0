package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bibliotheque/internal/database/books"
	"github.com/mrlokans/bibliotheque/internal/database/wishlists"
)

// WishlistController manages the caller's saved books.
type WishlistController struct {
	store *wishlists.Repository
	books *books.Repository
	now   func() time.Time
}

func NewWishlistController(store *wishlists.Repository, bookRepo *books.Repository) *WishlistController {
	return &WishlistController{store: store, books: bookRepo, now: time.Now}
}

// List returns the caller's wishlist, most recent first.
// GET /api/wishlist
func (wc *WishlistController) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	items, err := wc.store.ListByUser(user.ID)
	if err != nil {
		respondInternalError(c, err, "list wishlist")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "count": len(items)})
}

// Add saves a book. Adding the same book twice is a 400.
// POST /api/wishlist/:bookId
func (wc *WishlistController) Add(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	bookID, ok := parseIDParam(c, "bookId")
	if !ok {
		return
	}

	if _, err := wc.books.GetBookByID(bookID); err != nil {
		respondServiceError(c, err, "book")
		return
	}

	item, err := wc.store.Add(user.ID, bookID, wc.now())
	if err != nil {
		respondServiceError(c, err, "book")
		return
	}
	respondCreated(c, item)
}

// Remove drops a book from the wishlist.
// DELETE /api/wishlist/:bookId
func (wc *WishlistController) Remove(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	bookID, ok := parseIDParam(c, "bookId")
	if !ok {
		return
	}

	if err := wc.store.Remove(user.ID, bookID); err != nil {
		respondServiceError(c, err, "book")
		return
	}
	respondSuccess(c, "book removed from wishlist")
}

// Contains reports whether the book is in the caller's wishlist.
// GET /api/wishlist/:bookId
func (wc *WishlistController) Contains(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	bookID, ok := parseIDParam(c, "bookId")
	if !ok {
		return
	}

	in, err := wc.store.Contains(user.ID, bookID)
	if err != nil {
		respondInternalError(c, err, "wishlist lookup")
		return
	}
	c.JSON(http.StatusOK, gin.H{"book_id": bookID, "in_wishlist": in})
}
