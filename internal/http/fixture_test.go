package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/bibliotheque/internal/audit"
	"github.com/mrlokans/bibliotheque/internal/auth"
	"github.com/mrlokans/bibliotheque/internal/config"
	auditrepo "github.com/mrlokans/bibliotheque/internal/database/audit"
	"github.com/mrlokans/bibliotheque/internal/database/authors"
	"github.com/mrlokans/bibliotheque/internal/database/books"
	"github.com/mrlokans/bibliotheque/internal/database/categories"
	"github.com/mrlokans/bibliotheque/internal/database/contacts"
	"github.com/mrlokans/bibliotheque/internal/database/dbtest"
	"github.com/mrlokans/bibliotheque/internal/database/loans"
	"github.com/mrlokans/bibliotheque/internal/database/notifications"
	"github.com/mrlokans/bibliotheque/internal/database/publishers"
	"github.com/mrlokans/bibliotheque/internal/database/reviews"
	"github.com/mrlokans/bibliotheque/internal/database/users"
	"github.com/mrlokans/bibliotheque/internal/database/wishlists"
	"github.com/mrlokans/bibliotheque/internal/entities"
	"github.com/mrlokans/bibliotheque/internal/mailer"
	"github.com/mrlokans/bibliotheque/internal/mailer/mailertest"
	"github.com/mrlokans/bibliotheque/internal/services"
	"github.com/mrlokans/bibliotheque/internal/uploads"
)

// testEnv is a router over a fresh database, authenticated with bearer
// tokens so requests need no session.
type testEnv struct {
	db      *gorm.DB
	mail    *mailertest.Recorder
	router  *gin.Engine
	auth    *auth.Service
	auditor *audit.Service
	files   *uploads.Store
	cfg     RouterConfig
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database := dbtest.Open(t)
	db := database.DB
	mail := &mailertest.Recorder{}
	composer := mailer.NewComposer("http://localhost")

	userRepo := users.NewRepository(db)
	bookRepo := books.NewRepository(db)
	authorRepo := authors.NewRepository(db)
	loanRepo := loans.NewRepository(db)
	notificationRepo := notifications.NewRepository(db)
	contactRepo := contacts.NewRepository(db)
	reviewRepo := reviews.NewRepository(db)
	wishlistRepo := wishlists.NewRepository(db)

	dir := t.TempDir()
	files := uploads.NewStore(config.Uploads{
		ImageDir:       filepath.Join(dir, "images"),
		PDFDir:         filepath.Join(dir, "pdfs"),
		MaxUploadBytes: 1 << 20,
		MaxImageWidth:  800,
		MaxImageHeight: 800,
	})

	authCfg := config.Auth{Mode: config.AuthModeLocal, BcryptCost: 4}
	authService := auth.NewService(db, authCfg)
	tokens := auth.NewResetTokens([]byte("test-secret"), time.Hour)
	auditor := audit.NewService(auditrepo.NewRepository(db))
	// Pending audit writes must land before the database closes.
	t.Cleanup(auditor.Wait)

	notifier := services.NewNotificationService(notificationRepo, userRepo, mail, composer)
	cfg := RouterConfig{
		Database:       database,
		Auditor:        auditor,
		Books:          bookRepo,
		Authors:        authorRepo,
		Categories:     categories.NewRepository(db),
		Publishers:     publishers.NewRepository(db),
		Wishlists:      wishlistRepo,
		Notifications:  notificationRepo,
		Catalog:        services.NewCatalogService(bookRepo, authorRepo, files, notifier),
		Loans:          services.NewLoanService(loanRepo),
		Reviews:        services.NewReviewService(reviewRepo, bookRepo),
		Contacts:       services.NewContactService(contactRepo, userRepo, notifier, mail, composer),
		Notifier:       notifier,
		Accounts:       services.NewAccountService(authService, userRepo, tokens, mail, composer),
		Dashboard:      services.NewDashboardService(bookRepo, userRepo, loanRepo, contactRepo, reviewRepo, wishlistRepo),
		Uploads:        files,
		AuthService:    authService,
		AuthMiddleware: auth.NewMiddleware(authService, nil, authCfg),
		ResetTokens:    tokens,
		AuthConfig:     authCfg,
		Version:        "test",
	}

	return &testEnv{
		db:      db,
		mail:    mail,
		router:  NewRouter(cfg),
		auth:    authService,
		auditor: auditor,
		files:   files,
		cfg:     cfg,
	}
}

func (e *testEnv) user(t *testing.T, email string) *entities.User {
	return dbtest.CreateUser(t, e.db, email, entities.UserRoleUser)
}

func (e *testEnv) admin(t *testing.T, email string) *entities.User {
	return dbtest.CreateUser(t, e.db, email, entities.UserRoleAdmin)
}

func (e *testEnv) token(t *testing.T, user *entities.User) string {
	t.Helper()
	token, err := e.auth.GenerateToken(user.ID)
	require.NoError(t, err)
	return token
}

// do sends a request as user (anonymous when nil). A non-nil body is sent
// as JSON unless it is already a reader.
func (e *testEnv) do(t *testing.T, method, path string, body any, user *entities.User) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case io.Reader:
		reader = b
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
		contentType = "application/json"
	}

	req := httptest.NewRequest(method, path, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+e.token(t, user))
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// doRequest sends a prepared request as user.
func (e *testEnv) doRequest(t *testing.T, req *http.Request, user *entities.User) *httptest.ResponseRecorder {
	t.Helper()
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+e.token(t, user))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
