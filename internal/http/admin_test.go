package http

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditrepo "github.com/mrlokans/bibliotheque/internal/database/audit"
	"github.com/mrlokans/bibliotheque/internal/database/dbtest"
	"github.com/mrlokans/bibliotheque/internal/entities"
	"github.com/mrlokans/bibliotheque/internal/services"
	"github.com/mrlokans/bibliotheque/internal/uploads"
)

// flashBody is a respondFlash answer carrying a T.
type flashBody[T any] struct {
	Message string `json:"message"`
	Flash   struct {
		Level string `json:"level"`
		Text  string `json:"text"`
	} `json:"flash"`
	Data T `json:"data"`
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestAdminRoutes_Access(t *testing.T) {
	env := newTestEnv(t)
	reader := env.user(t, "reader@example.com")

	w := env.do(t, "GET", "/admin/dashboard", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, "GET", "/admin/dashboard", nil, reader)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminController_Books(t *testing.T) {
	env := newTestEnv(t)
	admin := env.admin(t, "admin@example.com")
	author := dbtest.CreateAuthor(t, env.db, "Antoine", "de Saint-Exupéry")

	t.Run("multipart form with a cover", func(t *testing.T) {
		var body bytes.Buffer
		form := multipart.NewWriter(&body)
		require.NoError(t, form.WriteField("title", "Le Petit Prince"))
		require.NoError(t, form.WriteField("quantity", "3"))
		require.NoError(t, form.WriteField("price", "7.5"))
		require.NoError(t, form.WriteField("author_ids", itoa(author.ID)))
		part, err := form.CreateFormFile("image", "Couverture.png")
		require.NoError(t, err)
		_, err = part.Write(pngBytes(t))
		require.NoError(t, err)
		require.NoError(t, form.Close())

		req := httptest.NewRequest("POST", "/admin/books", &body)
		req.Header.Set("Content-Type", form.FormDataContentType())
		w := env.doRequest(t, req, admin)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		resp := decode[flashBody[entities.Book]](t, w)
		assert.Equal(t, "success", resp.Flash.Level)
		assert.Equal(t, 3, resp.Data.Quantity)
		assert.True(t, strings.HasPrefix(resp.Data.Image, "couverture-"), resp.Data.Image)
		assert.True(t, strings.HasSuffix(resp.Data.Image, ".png"), resp.Data.Image)
		_, err = os.Stat(env.files.Path(uploads.KindImage, resp.Data.Image))
		assert.NoError(t, err)
	})

	t.Run("json payload is validated", func(t *testing.T) {
		w := env.do(t, "POST", "/admin/books", services.BookInput{Quantity: -1}, admin)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "validation", decode[ErrorResponse](t, w).Code)
	})

	t.Run("books on loan cannot be deleted", func(t *testing.T) {
		reader := env.user(t, "reader@example.com")
		book := dbtest.CreateBook(t, env.db, "Vol de nuit", 1, 6)
		loan, err := env.cfg.Loans.Borrow(reader.ID, book.ID)
		require.NoError(t, err)

		w := env.do(t, "DELETE", "/admin/books/"+itoa(book.ID), nil, admin)
		assert.Equal(t, http.StatusConflict, w.Code)

		_, err = env.cfg.Loans.Return(loan.ID)
		require.NoError(t, err)
		w = env.do(t, "DELETE", "/admin/books/"+itoa(book.ID), nil, admin)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAdminController_Categories(t *testing.T) {
	env := newTestEnv(t)
	admin := env.admin(t, "admin@example.com")

	w := env.do(t, "POST", "/admin/categories", CategoryInput{Name: "Théâtre"}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, "POST", "/admin/categories", CategoryInput{Name: "Théâtre"}, admin)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, "POST", "/admin/categories", CategoryInput{}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminController_Loans(t *testing.T) {
	env := newTestEnv(t)
	admin := env.admin(t, "admin@example.com")
	reader := env.user(t, "reader@example.com")
	book := dbtest.CreateBook(t, env.db, "Les Fleurs du mal", 2, 11)

	w := env.do(t, "POST", "/admin/loans", AdminLoanInput{UserID: reader.ID, BookID: book.ID, DueAt: "2031-03-15", Notes: "Au guichet"}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	loan := decode[flashBody[LoanView]](t, w).Data
	assert.Equal(t, reader.ID, loan.UserID)
	assert.Equal(t, "2031-03-15", loan.DueAt.Format("2006-01-02"))

	w = env.do(t, "GET", "/admin/loans?status=late", nil, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "GET", "/admin/loans?status=borrowed&user_id="+itoa(reader.ID), nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decode[PaginatedResponse](t, w).Total)

	w = env.do(t, "POST", "/admin/loans/"+itoa(loan.ID)+"/return", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entities.LoanStatusReturned, decode[flashBody[LoanView]](t, w).Data.EffectiveStatus)

	w = env.do(t, "POST", "/admin/loans/"+itoa(loan.ID)+"/return", nil, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code, "a loan is returned once")

	env.auditor.Wait()
	events, total, err := env.auditor.ListEvents(auditrepo.Filter{EventType: entities.AuditEventLoan}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, e := range events {
		assert.Equal(t, admin.ID, e.UserID)
	}

	w = env.do(t, "POST", "/admin/loans/reminders", nil, admin)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAdminController_ContactReply(t *testing.T) {
	env := newTestEnv(t)
	admin := env.admin(t, "admin@example.com")
	reader := env.user(t, "reader@example.com")

	msg, err := env.cfg.Contacts.Submit(context.Background(), services.ContactInput{
		LastName: "User", Email: reader.Email, Subject: "Réservation", Message: "Puis-je réserver ?",
	})
	require.NoError(t, err)
	env.mail.Reset()
	env.mail.Err = errors.New("smtp down")

	w := env.do(t, "PUT", "/admin/contacts/"+itoa(msg.ID), map[string]string{"reply": "Oui, au comptoir."}, admin)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[flashBody[entities.ContactMessage]](t, w)
	assert.Equal(t, "warning", resp.Flash.Level)
	assert.Equal(t, "Réponse enregistrée, mais l'email n'a pas pu être envoyé.", resp.Flash.Text)
	assert.NotNil(t, resp.Data.RepliedAt)

	count, err := env.cfg.Notifications.CountUnread(reader.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "the sender is notified even when the mail fails")

	env.mail.Reset()
	w = env.do(t, "PUT", "/admin/contacts/"+itoa(msg.ID), map[string]string{"reply": "Oui, au comptoir."}, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, env.mail.Sent(), "only the first reply is mailed")
}

func TestAdminController_Users(t *testing.T) {
	env := newTestEnv(t)
	admin := env.admin(t, "admin@example.com")
	reader := env.user(t, "reader@example.com")

	t.Run("reset link with a failing mailer is a warning", func(t *testing.T) {
		env.mail.Err = errors.New("smtp down")
		defer env.mail.Reset()

		w := env.do(t, "POST", "/admin/users/"+itoa(reader.ID)+"/send-reset", nil, admin)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "warning", decode[flashBody[any]](t, w).Flash.Level)
	})

	t.Run("temporary password is returned and works", func(t *testing.T) {
		w := env.do(t, "POST", "/admin/users/"+itoa(reader.ID)+"/temp-password", nil, admin)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		tmp := decode[flashBody[services.TemporaryPassword]](t, w).Data
		require.NotEmpty(t, tmp.Password)
		_, err := env.auth.Authenticate(reader.Email, tmp.Password)
		assert.NoError(t, err)
	})

	t.Run("toggle disables then enables", func(t *testing.T) {
		w := env.do(t, "POST", "/admin/users/"+itoa(reader.ID)+"/toggle", nil, admin)
		require.Equal(t, http.StatusOK, w.Code)
		assert.False(t, decode[flashBody[entities.User]](t, w).Data.IsVerified)

		w = env.do(t, "POST", "/admin/users/"+itoa(reader.ID)+"/toggle", nil, admin)
		assert.True(t, decode[flashBody[entities.User]](t, w).Data.IsVerified)
	})

	t.Run("admins cannot delete themselves", func(t *testing.T) {
		w := env.do(t, "DELETE", "/admin/users/"+itoa(admin.ID), nil, admin)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestAdminController_BroadcastAndDashboard(t *testing.T) {
	env := newTestEnv(t)
	admin := env.admin(t, "admin@example.com")
	env.user(t, "a@example.com")
	env.user(t, "b@example.com")
	dbtest.CreateBook(t, env.db, "Phèdre", 1, 5)

	w := env.do(t, "POST", "/admin/notifications/broadcast", BroadcastInput{Message: "sans titre"}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "POST", "/admin/notifications/broadcast", BroadcastInput{Title: "Fermeture", Message: "Fermé lundi"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sent := decode[flashBody[map[string]int]](t, w).Data["recipients"]
	assert.Equal(t, 3, sent)

	w = env.do(t, "GET", "/admin/dashboard", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[services.DashboardStats](t, w)
	assert.Equal(t, int64(1), stats.TotalBooks)
	assert.Equal(t, int64(3), stats.TotalUsers)
}
