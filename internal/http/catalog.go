package http

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"

	"github.com/mrlokans/bibliotheque/internal/auth"
	"github.com/mrlokans/bibliotheque/internal/database"
	"github.com/mrlokans/bibliotheque/internal/database/authors"
	"github.com/mrlokans/bibliotheque/internal/database/books"
	"github.com/mrlokans/bibliotheque/internal/database/categories"
	"github.com/mrlokans/bibliotheque/internal/database/publishers"
	"github.com/mrlokans/bibliotheque/internal/database/wishlists"
	"github.com/mrlokans/bibliotheque/internal/entities"
	"github.com/mrlokans/bibliotheque/internal/services"
	"github.com/mrlokans/bibliotheque/internal/uploads"
)

const popularLimit = 10

var (
	queryDecoder = newQueryDecoder()
	validate     = validator.New(validator.WithRequiredStructEnabled())
)

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// SearchResponse is one page of catalog results.
type SearchResponse struct {
	Data       []entities.Book `json:"data"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PerPage    int             `json:"per_page"`
	TotalPages int             `json:"total_pages"`
}

// BookDetail is a book as shown on its page. InWishlist is only set for
// authenticated visitors.
type BookDetail struct {
	*entities.Book
	InWishlist *bool `json:"in_wishlist,omitempty"`
}

// CatalogController serves the public catalog: books, authors, categories
// and publishers.
type CatalogController struct {
	books      *books.Repository
	authors    *authors.Repository
	categories *categories.Repository
	publishers *publishers.Repository
	wishlists  *wishlists.Repository
	reviews    *services.ReviewService
	files      *uploads.Store
}

func NewCatalogController(
	bookRepo *books.Repository,
	authorRepo *authors.Repository,
	categoryRepo *categories.Repository,
	publisherRepo *publishers.Repository,
	wishlistRepo *wishlists.Repository,
	reviewService *services.ReviewService,
	files *uploads.Store,
) *CatalogController {
	return &CatalogController{
		books:      bookRepo,
		authors:    authorRepo,
		categories: categoryRepo,
		publishers: publisherRepo,
		wishlists:  wishlistRepo,
		reviews:    reviewService,
		files:      files,
	}
}

// bindSearchCriteria decodes the catalog filters from the query string.
func bindSearchCriteria(c *gin.Context) (books.SearchCriteria, bool) {
	var criteria books.SearchCriteria
	if err := queryDecoder.Decode(&criteria, c.Request.URL.Query()); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid search parameters", Code: "bad_request", Details: err.Error()})
		return criteria, false
	}
	if err := validate.Struct(criteria); err != nil {
		respondServiceError(c, err, "book")
		return criteria, false
	}
	return criteria, true
}

// Search lists books matching every given filter.
// GET /api/books
func (cc *CatalogController) Search(c *gin.Context) {
	criteria, ok := bindSearchCriteria(c)
	if !ok {
		return
	}

	list, total, err := cc.books.Search(criteria)
	if err != nil {
		respondInternalError(c, err, "search books")
		return
	}

	page, perPage := criteria.Pagination()
	c.JSON(http.StatusOK, SearchResponse{
		Data:       list,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: int((total + int64(perPage) - 1) / int64(perPage)),
	})
}

// Popular lists the most reviewed books.
// GET /api/books/popular
func (cc *CatalogController) Popular(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(popularLimit)))
	if err != nil || limit < 1 || limit > maxPageSize {
		respondBadRequest(c, "invalid limit")
		return
	}

	list, err := cc.books.Popular(limit)
	if err != nil {
		respondInternalError(c, err, "popular books")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

// GetBook returns a book with its free copies and average rating.
// GET /api/books/:id
func (cc *CatalogController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := cc.books.GetBookByID(id)
	if err != nil {
		respondServiceError(c, err, "book")
		return
	}

	detail := BookDetail{Book: book}
	if userID := auth.GetUserID(c); userID != auth.DefaultUserID {
		in, err := cc.wishlists.Contains(userID, id)
		if err != nil {
			respondInternalError(c, err, "wishlist lookup")
			return
		}
		detail.InWishlist = &in
	}
	c.JSON(http.StatusOK, detail)
}

// BookReviews lists the visible reviews of a book.
// GET /api/books/:id/reviews
func (cc *CatalogController) BookReviews(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	list, err := cc.reviews.ListForBook(id)
	if err != nil {
		respondServiceError(c, err, "book")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "count": len(list)})
}

// Download streams the PDF of a book as an attachment named after its title.
// GET /books/:id/download
func (cc *CatalogController) Download(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := cc.books.GetBookByID(id)
	if err != nil {
		respondServiceError(c, err, "book")
		return
	}
	if book.PDF == "" {
		respondNotFound(c, "PDF")
		return
	}

	path := cc.files.Path(uploads.KindPDF, book.PDF)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			respondNotFound(c, "PDF")
			return
		}
		respondInternalError(c, err, "stat pdf")
		return
	}

	c.FileAttachment(path, uploads.DownloadName(book.Title, ".pdf"))
}

// ListAuthors lists authors, optionally filtered by name.
// GET /api/authors?q=
func (cc *CatalogController) ListAuthors(c *gin.Context) {
	list, err := cc.authors.ListAuthors(c.Query("q"))
	if err != nil {
		respondInternalError(c, err, "list authors")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

// GetAuthor returns an author with their books.
// GET /api/authors/:id
func (cc *CatalogController) GetAuthor(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	author, err := cc.authors.GetAuthorByID(id)
	if err != nil {
		respondServiceError(c, err, "author")
		return
	}
	c.JSON(http.StatusOK, author)
}

// ListCategories lists categories with their book counts.
// GET /api/categories
func (cc *CatalogController) ListCategories(c *gin.Context) {
	list, err := cc.categories.ListCategories()
	if err != nil {
		respondInternalError(c, err, "list categories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

// ListPublishers lists publishers with their book counts.
// GET /api/publishers
func (cc *CatalogController) ListPublishers(c *gin.Context) {
	list, err := cc.publishers.ListPublishers()
	if err != nil {
		respondInternalError(c, err, "list publishers")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

// isNotFound reports whether err is a missing record.
func isNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}
