package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/schema"

	"github.com/mrlokans/bibliotheque/internal/audit"
	"github.com/mrlokans/bibliotheque/internal/auth"
	"github.com/mrlokans/bibliotheque/internal/database/books"
	"github.com/mrlokans/bibliotheque/internal/database/categories"
	"github.com/mrlokans/bibliotheque/internal/database/publishers"
	"github.com/mrlokans/bibliotheque/internal/database/wishlists"
	"github.com/mrlokans/bibliotheque/internal/scheduler"
	"github.com/mrlokans/bibliotheque/internal/services"
	"github.com/mrlokans/bibliotheque/internal/tasks"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

var formDecoder = newFormDecoder()

func newFormDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	d.ZeroEmpty(true)
	return d
}

// AdminController serves the back-office under /admin. Every route requires
// the admin role.
type AdminController struct {
	books      *books.Repository
	categories *categories.Repository
	publishers *publishers.Repository
	wishlists  *wishlists.Repository

	catalog   *services.CatalogService
	loans     *services.LoanService
	reviews   *services.ReviewService
	contacts  *services.ContactService
	notifier  *services.NotificationService
	accounts  *services.AccountService
	dashboard *services.DashboardService

	auditor   *audit.Service
	sessions  *auth.SessionManager
	tasks     *tasks.Client
	reminders *scheduler.OverdueScheduler
}

// NewAdminController builds the back-office controller from the router
// dependencies.
func NewAdminController(cfg RouterConfig) *AdminController {
	return &AdminController{
		books:      cfg.Books,
		categories: cfg.Categories,
		publishers: cfg.Publishers,
		wishlists:  cfg.Wishlists,
		catalog:    cfg.Catalog,
		loans:      cfg.Loans,
		reviews:    cfg.Reviews,
		contacts:   cfg.Contacts,
		notifier:   cfg.Notifier,
		accounts:   cfg.Accounts,
		dashboard:  cfg.Dashboard,
		auditor:    cfg.Auditor,
		sessions:   cfg.SessionManager,
		tasks:      cfg.TaskClient,
		reminders:  cfg.ReminderSched,
	}
}

// bindPayload decodes a JSON body, or form fields (urlencoded or multipart)
// through their schema tags.
func bindPayload(c *gin.Context, dst any) error {
	if c.ContentType() == gin.MIMEJSON {
		return c.ShouldBindJSON(dst)
	}
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return err
	}
	return formDecoder.Decode(dst, c.Request.PostForm)
}

// formUpload opens an optional uploaded file. The returned closer is never nil.
func formUpload(c *gin.Context, field string) (*services.Upload, func(), error) {
	noop := func() {}
	header, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, err
	}
	file, err := header.Open()
	if err != nil {
		return nil, noop, err
	}
	var r io.Reader = file
	return &services.Upload{Filename: header.Filename, Reader: r}, func() { _ = file.Close() }, nil
}

func (ac *AdminController) actorID(c *gin.Context) uint {
	return auth.GetUserID(c)
}

// logDelete records a deletion when auditing is configured.
func (ac *AdminController) logDelete(c *gin.Context, entityType string, id uint, name string) {
	if ac.auditor != nil {
		ac.auditor.LogDelete(ac.actorID(c), entityType, id, name, c.ClientIP())
	}
}
