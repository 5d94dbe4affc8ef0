package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bibliotheque/internal/entities"
	"github.com/mrlokans/bibliotheque/internal/services"
)

// CategoryInput is the back-office form of a category.
type CategoryInput struct {
	Name        string `json:"name" schema:"name" validate:"required,max=100"`
	Description string `json:"description" schema:"description"`
}

// PublisherInput is the back-office form of a publisher.
type PublisherInput struct {
	Name    string `json:"name" schema:"name" validate:"required,max=150"`
	Country string `json:"country" schema:"country" validate:"max=100"`
	Address string `json:"address" schema:"address" validate:"max=255"`
	Phone   string `json:"phone" schema:"phone" validate:"max=30"`
	Email   string `json:"email" schema:"email" validate:"omitempty,email,max=255"`
	Website string `json:"website" schema:"website" validate:"omitempty,url,max=255"`
}

func (in PublisherInput) apply(p *entities.Publisher) {
	p.Name = in.Name
	p.Country = in.Country
	p.Address = in.Address
	p.Phone = in.Phone
	p.Email = in.Email
	p.Website = in.Website
}

// bookFiles opens the optional cover and PDF of a book form.
func bookFiles(c *gin.Context) (services.BookFiles, func(), error) {
	image, closeImage, err := formUpload(c, "image")
	if err != nil {
		return services.BookFiles{}, closeImage, err
	}
	pdf, closePDF, err := formUpload(c, "pdf")
	closeAll := func() {
		closeImage()
		closePDF()
	}
	if err != nil {
		return services.BookFiles{}, closeAll, err
	}
	return services.BookFiles{Image: image, PDF: pdf}, closeAll, nil
}

// CreateBook adds a book with its optional cover and PDF.
// POST /admin/books
func (ac *AdminController) CreateBook(c *gin.Context) {
	var in services.BookInput
	if err := bindPayload(c, &in); err != nil {
		respondBadRequest(c, "invalid book form: "+err.Error())
		return
	}
	files, closeFiles, err := bookFiles(c)
	defer closeFiles()
	if err != nil {
		respondBadRequest(c, "invalid upload: "+err.Error())
		return
	}

	book, err := ac.catalog.CreateBook(c.Request.Context(), in, files)
	if err != nil {
		respondServiceError(c, err, "book")
		return
	}
	respondFlash(c, ac.sessions, http.StatusCreated, "Livre ajouté avec succès.", nil, "", book)
}

// UpdateBook edits a book. New files replace the stored ones.
// PUT /admin/books/:id
func (ac *AdminController) UpdateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var in services.BookInput
	if err := bindPayload(c, &in); err != nil {
		respondBadRequest(c, "invalid book form: "+err.Error())
		return
	}
	files, closeFiles, err := bookFiles(c)
	defer closeFiles()
	if err != nil {
		respondBadRequest(c, "invalid upload: "+err.Error())
		return
	}

	book, err := ac.catalog.UpdateBook(c.Request.Context(), id, in, files)
	if err != nil {
		respondServiceError(c, err, "book")
		return
	}
	respondFlash(c, ac.sessions, http.StatusOK, "Livre mis à jour.", nil, "", book)
}

// DeleteBook removes a book and its files. Books on loan are kept.
// DELETE /admin/books/:id
func (ac *AdminController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	book, err := ac.catalog.DeleteBook(id)
	if err != nil {
		respondServiceError(c, err, "book")
		return
	}
	ac.logDelete(c, "book", book.ID, book.Title)
	respondFlash(c, ac.sessions, http.StatusOK, "Livre supprimé.", nil, "", nil)
}

// CreateAuthor adds an author with an optional photo.
// POST /admin/authors
func (ac *AdminController) CreateAuthor(c *gin.Context) {
	var in services.AuthorInput
	if err := bindPayload(c, &in); err != nil {
		respondBadRequest(c, "invalid author form: "+err.Error())
		return
	}
	photo, closePhoto, err := formUpload(c, "photo")
	defer closePhoto()
	if err != nil {
		respondBadRequest(c, "invalid upload: "+err.Error())
		return
	}

	author, err := ac.catalog.CreateAuthor(in, photo)
	if err != nil {
		respondServiceError(c, err, "author")
		return
	}
	respondFlash(c, ac.sessions, http.StatusCreated, "Auteur ajouté avec succès.", nil, "", author)
}

// UpdateAuthor edits an author.
// PUT /admin/authors/:id
func (ac *AdminController) UpdateAuthor(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var in services.AuthorInput
	if err := bindPayload(c, &in); err != nil {
		respondBadRequest(c, "invalid author form: "+err.Error())
		return
	}
	photo, closePhoto, err := formUpload(c, "photo")
	defer closePhoto()
	if err != nil {
		respondBadRequest(c, "invalid upload: "+err.Error())
		return
	}

	author, err := ac.catalog.UpdateAuthor(id, in, photo)
	if err != nil {
		respondServiceError(c, err, "author")
		return
	}
	respondFlash(c, ac.sessions, http.StatusOK, "Auteur mis à jour.", nil, "", author)
}

// DeleteAuthor removes an author and their photo.
// DELETE /admin/authors/:id
func (ac *AdminController) DeleteAuthor(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	author, err := ac.catalog.DeleteAuthor(id)
	if err != nil {
		respondServiceError(c, err, "author")
		return
	}
	ac.logDelete(c, "author", author.ID, author.FullName())
	respondFlash(c, ac.sessions, http.StatusOK, "Auteur supprimé.", nil, "", nil)
}

// CreateCategory adds a category.
// POST /admin/categories
func (ac *AdminController) CreateCategory(c *gin.Context) {
	var in CategoryInput
	if err := bindPayload(c, &in); err != nil {
		respondBadRequest(c, "invalid category form: "+err.Error())
		return
	}
	if err := validate.Struct(in); err != nil {
		respondServiceError(c, err, "category")
		return
	}

	category := &entities.Category{Name: in.Name, Description: in.Description}
	if err := ac.categories.CreateCategory(category); err != nil {
		respondServiceError(c, err, "category")
		return
	}
	respondFlash(c, ac.sessions, http.StatusCreated, "Catégorie ajoutée.", nil, "", category)
}

// UpdateCategory renames or describes a category.
// PUT /admin/categories/:id
func (ac *AdminController) UpdateCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var in CategoryInput
	if err := bindPayload(c, &in); err != nil {
		respondBadRequest(c, "invalid category form: "+err.Error())
		return
	}
	if err := validate.Struct(in); err != nil {
		respondServiceError(c, err, "category")
		return
	}

	category, err := ac.categories.GetCategoryByID(id)
	if err != nil {
		respondServiceError(c, err, "category")
		return
	}
	category.Name = in.Name
	category.Description = in.Description
	if err := ac.categories.UpdateCategory(category); err != nil {
		respondServiceError(c, err, "category")
		return
	}
	respondFlash(c, ac.sessions, http.StatusOK, "Catégorie mise à jour.", nil, "", category)
}

// DeleteCategory removes a category. Its books become uncategorized.
// DELETE /admin/categories/:id
func (ac *AdminController) DeleteCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	category, err := ac.categories.GetCategoryByID(id)
	if err != nil {
		respondServiceError(c, err, "category")
		return
	}
	if err := ac.categories.DeleteCategory(id); err != nil {
		respondServiceError(c, err, "category")
		return
	}
	ac.logDelete(c, "category", category.ID, category.Name)
	respondFlash(c, ac.sessions, http.StatusOK, "Catégorie supprimée.", nil, "", nil)
}

// CreatePublisher adds a publisher.
// POST /admin/publishers
func (ac *AdminController) CreatePublisher(c *gin.Context) {
	var in PublisherInput
	if err := bindPayload(c, &in); err != nil {
		respondBadRequest(c, "invalid publisher form: "+err.Error())
		return
	}
	if err := validate.Struct(in); err != nil {
		respondServiceError(c, err, "publisher")
		return
	}

	publisher := &entities.Publisher{}
	in.apply(publisher)
	if err := ac.publishers.CreatePublisher(publisher); err != nil {
		respondServiceError(c, err, "publisher")
		return
	}
	respondFlash(c, ac.sessions, http.StatusCreated, "Éditeur ajouté.", nil, "", publisher)
}

// UpdatePublisher edits a publisher.
// PUT /admin/publishers/:id
func (ac *AdminController) UpdatePublisher(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var in PublisherInput
	if err := bindPayload(c, &in); err != nil {
		respondBadRequest(c, "invalid publisher form: "+err.Error())
		return
	}
	if err := validate.Struct(in); err != nil {
		respondServiceError(c, err, "publisher")
		return
	}

	publisher, err := ac.publishers.GetPublisherByID(id)
	if err != nil {
		respondServiceError(c, err, "publisher")
		return
	}
	in.apply(publisher)
	if err := ac.publishers.UpdatePublisher(publisher); err != nil {
		respondServiceError(c, err, "publisher")
		return
	}
	respondFlash(c, ac.sessions, http.StatusOK, "Éditeur mis à jour.", nil, "", publisher)
}

// DeletePublisher removes a publisher.
// DELETE /admin/publishers/:id
func (ac *AdminController) DeletePublisher(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	publisher, err := ac.publishers.GetPublisherByID(id)
	if err != nil {
		respondServiceError(c, err, "publisher")
		return
	}
	if err := ac.publishers.DeletePublisher(id); err != nil {
		respondServiceError(c, err, "publisher")
		return
	}
	ac.logDelete(c, "publisher", publisher.ID, publisher.Name)
	respondFlash(c, ac.sessions, http.StatusOK, "Éditeur supprimé.", nil, "", nil)
}
