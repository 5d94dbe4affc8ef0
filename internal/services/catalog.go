package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/bibliotheque/internal/database/authors"
	"github.com/mrlokans/bibliotheque/internal/database/books"
	"github.com/mrlokans/bibliotheque/internal/entities"
	"github.com/mrlokans/bibliotheque/internal/uploads"
)

const dateLayout = "2006-01-02"

// Upload is a file received from a form, not yet stored.
type Upload struct {
	Filename string
	Reader   io.Reader
}

// BookInput is the editable content of a book, decoded from a form or a
// JSON body.
type BookInput struct {
	Title       string  `json:"title" schema:"title" validate:"required,max=255"`
	ISBN        string  `json:"isbn" schema:"isbn" validate:"max=20"`
	Price       float64 `json:"price" schema:"price" validate:"gte=0"`
	Quantity    int     `json:"quantity" schema:"quantity" validate:"gte=0"`
	PublishedAt string  `json:"published_at" schema:"published_at" validate:"omitempty,datetime=2006-01-02"`
	Summary     string  `json:"summary" schema:"summary"`
	Language    string  `json:"language" schema:"language" validate:"max=50"`
	PageCount   int     `json:"page_count" schema:"page_count" validate:"gte=0"`
	CategoryID  uint    `json:"category_id" schema:"category_id"`
	PublisherID uint    `json:"publisher_id" schema:"publisher_id"`
	AuthorIDs   []uint  `json:"author_ids" schema:"author_ids"`
	RemoveImage bool    `json:"remove_image" schema:"remove_image"`
	RemovePDF   bool    `json:"remove_pdf" schema:"remove_pdf"`
	Announce    bool    `json:"announce" schema:"announce"` // notify every user about a new book
}

// BookFiles are the optional uploads sent with a book.
type BookFiles struct {
	Image *Upload
	PDF   *Upload
}

// AuthorInput is the editable content of an author.
type AuthorInput struct {
	LastName    string `json:"last_name" schema:"last_name" validate:"required,max=100"`
	FirstName   string `json:"first_name" schema:"first_name" validate:"max=100"`
	BirthDate   string `json:"birth_date" schema:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Nationality string `json:"nationality" schema:"nationality" validate:"max=100"`
	Biography   string `json:"biography" schema:"biography"`
	Email       string `json:"email" schema:"email" validate:"omitempty,email,max=255"`
	RemovePhoto bool   `json:"remove_photo" schema:"remove_photo"`
}

// CatalogService writes books and authors together with their files.
// Previous files are deleted once the new row is saved.
type CatalogService struct {
	books         *books.Repository
	authors       *authors.Repository
	files         *uploads.Store
	notifications *NotificationService
	validate      *validator.Validate
}

func NewCatalogService(bookRepo *books.Repository, authorRepo *authors.Repository, files *uploads.Store, notificationService *NotificationService) *CatalogService {
	return &CatalogService{
		books:         bookRepo,
		authors:       authorRepo,
		files:         files,
		notifications: notificationService,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

func parseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return &t, nil
}

func optionalID(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}

func (s *CatalogService) applyBook(book *entities.Book, in BookInput) error {
	publishedAt, err := parseDate(in.PublishedAt)
	if err != nil {
		return err
	}
	book.Title = strings.TrimSpace(in.Title)
	book.ISBN = strings.TrimSpace(in.ISBN)
	book.Price = in.Price
	book.Quantity = in.Quantity
	book.PublishedAt = publishedAt
	book.Summary = in.Summary
	book.Language = in.Language
	if in.PageCount > 0 {
		book.PageCount = in.PageCount
	}
	book.CategoryID = optionalID(in.CategoryID)
	book.PublisherID = optionalID(in.PublisherID)
	return nil
}

// storeFiles saves uploads and returns the stored names; the caller decides
// whether they replace or get rolled back.
func (s *CatalogService) storeFiles(files BookFiles) (image, pdf *uploads.Stored, err error) {
	if files.Image != nil {
		image, err = s.files.Save(uploads.KindImage, files.Image.Filename, files.Image.Reader)
		if err != nil {
			return nil, nil, err
		}
	}
	if files.PDF != nil {
		pdf, err = s.files.Save(uploads.KindPDF, files.PDF.Filename, files.PDF.Reader)
		if err != nil {
			if image != nil {
				s.files.Remove(uploads.KindImage, image.Name)
			}
			return nil, nil, err
		}
	}
	return image, pdf, nil
}

func (s *CatalogService) discard(image, pdf *uploads.Stored) {
	if image != nil {
		s.files.Remove(uploads.KindImage, image.Name)
	}
	if pdf != nil {
		s.files.Remove(uploads.KindPDF, pdf.Name)
	}
}

func (s *CatalogService) CreateBook(ctx context.Context, in BookInput, files BookFiles) (*entities.Book, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	book := &entities.Book{}
	if err := s.applyBook(book, in); err != nil {
		return nil, err
	}

	image, pdf, err := s.storeFiles(files)
	if err != nil {
		return nil, err
	}
	if image != nil {
		book.Image = image.Name
	}
	if pdf != nil {
		book.PDF = pdf.Name
		if book.PageCount == 0 {
			book.PageCount = pdf.Pages
		}
	}

	if err := s.books.CreateBook(book, in.AuthorIDs); err != nil {
		s.discard(image, pdf)
		return nil, err
	}

	if in.Announce {
		if n, err := s.notifications.NotifyNewBook(ctx, book); err != nil {
			log.Printf("Catalog: announcement of book %d stopped after %d users: %v", book.ID, n, err)
		}
	}
	return s.books.GetBookByID(book.ID)
}

func (s *CatalogService) UpdateBook(ctx context.Context, id uint, in BookInput, files BookFiles) (*entities.Book, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	book, err := s.books.GetBookByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.applyBook(book, in); err != nil {
		return nil, err
	}

	oldImage, oldPDF := book.Image, book.PDF
	image, pdf, err := s.storeFiles(files)
	if err != nil {
		return nil, err
	}
	switch {
	case image != nil:
		book.Image = image.Name
	case in.RemoveImage:
		book.Image = ""
	}
	switch {
	case pdf != nil:
		book.PDF = pdf.Name
		if in.PageCount == 0 && pdf.Pages > 0 {
			book.PageCount = pdf.Pages
		}
	case in.RemovePDF:
		book.PDF = ""
	}

	book.Category, book.Publisher = nil, nil
	if err := s.books.UpdateBook(book, in.AuthorIDs); err != nil {
		s.discard(image, pdf)
		return nil, err
	}
	s.files.Replace(uploads.KindImage, oldImage, book.Image)
	s.files.Replace(uploads.KindPDF, oldPDF, book.PDF)

	return s.books.GetBookByID(book.ID)
}

// DeleteBook removes the book row and then its files.
func (s *CatalogService) DeleteBook(id uint) (*entities.Book, error) {
	book, err := s.books.DeleteBook(id)
	if err != nil {
		return nil, err
	}
	s.files.Remove(uploads.KindImage, book.Image)
	s.files.Remove(uploads.KindPDF, book.PDF)
	return book, nil
}

func (s *CatalogService) applyAuthor(author *entities.Author, in AuthorInput) error {
	birth, err := parseDate(in.BirthDate)
	if err != nil {
		return err
	}
	author.LastName = strings.TrimSpace(in.LastName)
	author.FirstName = strings.TrimSpace(in.FirstName)
	author.BirthDate = birth
	author.Nationality = in.Nationality
	author.Biography = in.Biography
	author.Email = in.Email
	return nil
}

func (s *CatalogService) CreateAuthor(in AuthorInput, photo *Upload) (*entities.Author, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	author := &entities.Author{}
	if err := s.applyAuthor(author, in); err != nil {
		return nil, err
	}
	if photo != nil {
		stored, err := s.files.Save(uploads.KindImage, photo.Filename, photo.Reader)
		if err != nil {
			return nil, err
		}
		author.Photo = stored.Name
	}
	if err := s.authors.CreateAuthor(author); err != nil {
		s.files.Remove(uploads.KindImage, author.Photo)
		return nil, err
	}
	return author, nil
}

func (s *CatalogService) UpdateAuthor(id uint, in AuthorInput, photo *Upload) (*entities.Author, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	author, err := s.authors.GetAuthorByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.applyAuthor(author, in); err != nil {
		return nil, err
	}

	oldPhoto := author.Photo
	var stored *uploads.Stored
	if photo != nil {
		stored, err = s.files.Save(uploads.KindImage, photo.Filename, photo.Reader)
		if err != nil {
			return nil, err
		}
		author.Photo = stored.Name
	} else if in.RemovePhoto {
		author.Photo = ""
	}

	author.Books = nil
	if err := s.authors.UpdateAuthor(author); err != nil {
		if stored != nil {
			s.files.Remove(uploads.KindImage, stored.Name)
		}
		return nil, err
	}
	s.files.Replace(uploads.KindImage, oldPhoto, author.Photo)
	return author, nil
}

func (s *CatalogService) DeleteAuthor(id uint) (*entities.Author, error) {
	author, err := s.authors.DeleteAuthor(id)
	if err != nil {
		return nil, err
	}
	s.files.Remove(uploads.KindImage, author.Photo)
	return author, nil
}
