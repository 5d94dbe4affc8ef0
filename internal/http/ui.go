package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bibliotheque/internal/database/books"
	"github.com/mrlokans/bibliotheque/internal/database/categories"
	"github.com/mrlokans/bibliotheque/internal/entities"
)

const homeShelfSize = 8

// HomePageData is what the home page shows.
type HomePageData struct {
	Latest     []entities.Book     `json:"latest"`
	Popular    []entities.Book     `json:"popular"`
	Categories []entities.Category `json:"categories"`
}

type UIController struct {
	books      *books.Repository
	categories *categories.Repository
	templates  bool
}

// NewUIController builds the page controller. Without templates pages are
// answered as JSON.
func NewUIController(bookRepo *books.Repository, categoryRepo *categories.Repository, templates bool) *UIController {
	return &UIController{
		books:      bookRepo,
		categories: categoryRepo,
		templates:  templates,
	}
}

// HomePage shows the latest additions and the most reviewed books.
// GET /
func (controller *UIController) HomePage(c *gin.Context) {
	latest, err := controller.books.Latest(homeShelfSize)
	if err != nil {
		respondInternalError(c, err, "latest books")
		return
	}
	popular, err := controller.books.Popular(homeShelfSize)
	if err != nil {
		respondInternalError(c, err, "popular books")
		return
	}
	cats, err := controller.categories.ListCategories()
	if err != nil {
		respondInternalError(c, err, "list categories")
		return
	}

	data := HomePageData{Latest: latest, Popular: popular, Categories: cats}
	if !controller.templates {
		c.JSON(http.StatusOK, data)
		return
	}

	c.HTML(http.StatusOK, "home", gin.H{
		"Latest":     data.Latest,
		"Popular":    data.Popular,
		"Categories": data.Categories,
		"Auth":       GetAuthTemplateData(c),
	})
}
