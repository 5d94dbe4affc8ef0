package entities

import (
	"math"
	"time"
)

type Book struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"index;size:255;not null" json:"title"`
	ISBN        string     `gorm:"index;size:20" json:"isbn,omitempty"`
	Price       float64    `gorm:"default:0" json:"price"`
	Quantity    int        `gorm:"not null;default:0;check:quantity >= 0" json:"quantity"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Summary     string     `gorm:"type:text" json:"summary,omitempty"`
	Image       string     `gorm:"size:255" json:"image,omitempty"` // stored filename under the image upload dir
	PDF         string     `gorm:"size:255" json:"pdf,omitempty"`   // stored filename under the pdf upload dir
	PageCount   int        `json:"page_count,omitempty"`
	Language    string     `gorm:"size:50" json:"language,omitempty"`

	CategoryID  *uint      `gorm:"index" json:"category_id,omitempty"`
	Category    *Category  `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	PublisherID *uint      `gorm:"index" json:"publisher_id,omitempty"`
	Publisher   *Publisher `gorm:"foreignKey:PublisherID" json:"publisher,omitempty"`
	Authors     []Author   `gorm:"many2many:book_authors;" json:"authors,omitempty"`
	Loans       []Loan     `gorm:"foreignKey:BookID" json:"-"`
	Reviews     []Review   `gorm:"foreignKey:BookID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Computed by the repository, never persisted.
	AvailableCopies int     `gorm:"-:all" json:"available_copies"`
	AverageRating   float64 `gorm:"-:all" json:"average_rating"`
	ReviewCount     int64   `gorm:"-:all" json:"review_count"`
}

func (Book) TableName() string {
	return "books"
}

// AvailableFrom returns quantity minus active loans, floored at zero.
func (b *Book) AvailableFrom(activeLoans int64) int {
	available := int64(b.Quantity) - activeLoans
	if available < 0 {
		return 0
	}
	return int(available)
}

// AuthorNames joins "First Last" for every author of the book.
func (b *Book) AuthorNames() []string {
	names := make([]string, 0, len(b.Authors))
	for _, a := range b.Authors {
		names = append(names, a.FullName())
	}
	return names
}

type Author struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	LastName    string     `gorm:"index;size:100;not null" json:"last_name"`
	FirstName   string     `gorm:"size:100" json:"first_name,omitempty"`
	BirthDate   *time.Time `json:"birth_date,omitempty"`
	Nationality string     `gorm:"size:100" json:"nationality,omitempty"`
	Biography   string     `gorm:"type:text" json:"biography,omitempty"`
	Photo       string     `gorm:"size:255" json:"photo,omitempty"`
	Email       string     `gorm:"size:255" json:"email,omitempty"`
	Books       []Book     `gorm:"many2many:book_authors;" json:"books,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Author) TableName() string {
	return "authors"
}

func (a Author) FullName() string {
	if a.FirstName == "" {
		return a.LastName
	}
	return a.FirstName + " " + a.LastName
}

type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Books       []Book    `gorm:"foreignKey:CategoryID" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	BookCount int64 `gorm:"-:all" json:"book_count"`
}

func (Category) TableName() string {
	return "categories"
}

type Publisher struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:150;not null" json:"name"`
	Country   string    `gorm:"size:100" json:"country,omitempty"`
	Address   string    `gorm:"size:255" json:"address,omitempty"`
	Phone     string    `gorm:"size:30" json:"phone,omitempty"`
	Email     string    `gorm:"size:255" json:"email,omitempty"`
	Website   string    `gorm:"size:255" json:"website,omitempty"`
	Books     []Book    `gorm:"foreignKey:PublisherID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	BookCount int64 `gorm:"-:all" json:"book_count"`
}

func (Publisher) TableName() string {
	return "publishers"
}

// RoundRating rounds an average rating to one decimal place.
func RoundRating(avg float64) float64 {
	return math.Round(avg*10) / 10
}

// BookTally pairs a book with a count, used by dashboard rankings.
type BookTally struct {
	BookID uint   `json:"book_id"`
	Title  string `json:"title"`
	Total  int64  `json:"total"`
}
