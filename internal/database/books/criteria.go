package books

// Sort orders accepted by SearchCriteria.Sort.
const (
	SortTitle     = "title"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNewest    = "newest"
)

const (
	DefaultPerPage = 12
	MaxPerPage     = 100
)

// AvailabilityAvailable restricts a search to books with at least one free copy.
const AvailabilityAvailable = "available"

// SearchCriteria is the catalog filter decoded from query parameters.
// Every non-empty field narrows the result (logical AND).
type SearchCriteria struct {
	Query        string   `schema:"q" validate:"max=255"`
	MinPrice     *float64 `schema:"min_price" validate:"omitempty,gte=0"`
	MaxPrice     *float64 `schema:"max_price" validate:"omitempty,gte=0"`
	Author       string   `schema:"author" validate:"max=100"`    // id or part of a name
	AuthorIDs    []uint   `schema:"authors"`                      // book has at least one of them
	Publisher    string   `schema:"publisher" validate:"max=150"` // id or part of the name
	PublisherIDs []uint   `schema:"publishers"`
	Category     string   `schema:"category" validate:"max=100"` // id or part of the name
	CategoryIDs  []uint   `schema:"categories"`
	Availability string   `schema:"availability" validate:"omitempty,oneof=available all"`
	Ratings      []int    `schema:"ratings" validate:"dive,min=1,max=5"`
	Sort         string   `schema:"sort" validate:"omitempty,oneof=title price_asc price_desc newest"`
	Page         int      `schema:"page" validate:"gte=0"`
	PerPage      int      `schema:"per_page" validate:"gte=0"`
}

// MinRating returns the lowest selected rating threshold. Checking 4 and 5
// is the same as checking 4 alone.
func (c SearchCriteria) MinRating() (int, bool) {
	if len(c.Ratings) == 0 {
		return 0, false
	}
	lowest := c.Ratings[0]
	for _, r := range c.Ratings[1:] {
		if r < lowest {
			lowest = r
		}
	}
	return lowest, true
}

// Pagination returns the normalised page number and page size.
func (c SearchCriteria) Pagination() (page, perPage int) {
	page, perPage = c.Page, c.PerPage
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

func (c SearchCriteria) orderClause() string {
	switch c.Sort {
	case SortPriceAsc:
		return "books.price ASC, books.id ASC"
	case SortPriceDesc:
		return "books.price DESC, books.id ASC"
	case SortNewest:
		return "books.created_at DESC, books.id DESC"
	default:
		return "books.title ASC, books.id ASC"
	}
}
