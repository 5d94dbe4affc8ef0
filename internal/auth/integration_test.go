package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/bibliotheque/internal/config"
	"github.com/mrlokans/bibliotheque/internal/database/dbtest"
	"github.com/mrlokans/bibliotheque/internal/entities"
)

type testApp struct {
	router *gin.Engine
	svc    *Service
	tokens *ResetTokens
	db     *gorm.DB
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()
	db := dbtest.Open(t).DB
	sqlDB, err := db.DB()
	require.NoError(t, err)

	cfg := config.Auth{
		Mode:             config.AuthModeLocal,
		SessionLifetime:  24 * time.Hour,
		BcryptCost:       4,
		MaxLoginAttempts: 5,
	}
	svc := NewService(db, cfg)
	sm, err := NewSessionManager(sqlDB, cfg)
	require.NoError(t, err)
	tokens := NewResetTokens([]byte("reset-secret"), time.Hour)

	ac, err := NewAuthController(svc, sm, tokens, "", cfg)
	require.NoError(t, err)
	t.Cleanup(ac.Stop)
	middleware := NewMiddleware(svc, sm, cfg)

	router := gin.New()
	router.Use(sm.SessionLoadSave(), middleware.Handler())
	ac.RegisterRoutes(router)

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "email": GetEmail(c)})
	})
	router.GET("/flashes", func(c *gin.Context) {
		c.JSON(http.StatusOK, sm.PopFlashes(c.Request))
	})
	api := router.Group("/api", middleware.RequireAuth())
	tc := NewAPITokenController(svc)
	api.POST("/token", tc.GenerateToken)
	api.DELETE("/token", tc.RevokeToken)
	api.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "auth": GetAuthType(c)})
	})
	router.GET("/admin", middleware.RequireRole(entities.UserRoleAdmin), func(c *gin.Context) {
		c.String(http.StatusOK, "admin")
	})

	return &testApp{router: router, svc: svc, tokens: tokens, db: db}
}

// client keeps cookies between requests like a browser.
type client struct {
	app     *testApp
	cookies map[string]*http.Cookie
}

func (a *testApp) client() *client {
	return &client{app: a, cookies: map[string]*http.Cookie{}}
}

func (cl *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range cl.cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	cl.app.router.ServeHTTP(rr, req)
	for _, c := range rr.Result().Cookies() {
		cl.cookies[c.Name] = c
	}
	return rr
}

func (cl *client) get(path string) *httptest.ResponseRecorder {
	return cl.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (cl *client) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return cl.do(req)
}

func (cl *client) postJSON(path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(raw)))
	req.Header.Set("Content-Type", "application/json")
	return cl.do(req)
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestIntegration_NoAuthModeActsAsFirstAdmin(t *testing.T) {
	svc, _ := setupTestService(t, config.AuthModeNone)
	middleware := NewMiddleware(svc, nil, config.Auth{Mode: config.AuthModeNone})

	router := gin.New()
	router.Use(middleware.Handler())
	router.GET("/admin", middleware.RequireRole(entities.UserRoleAdmin), func(c *gin.Context) {
		c.String(http.StatusOK, GetEmail(c))
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusFound, rr.Code, "no account yet, visitor is anonymous")

	mustCreate(t, svc, "admin@example.com", entities.UserRoleAdmin)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "admin@example.com", rr.Body.String())
}

func TestIntegration_SetupFlow(t *testing.T) {
	app := setupTestApp(t)
	cl := app.client()

	assert.Equal(t, "/setup", cl.get("/login").Header().Get("Location"))

	rr := cl.postForm("/setup", url.Values{
		"email":            {"admin@example.com"},
		"password":         {"password12345"},
		"confirm_password": {"different12345"},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = cl.postForm("/setup", url.Values{
		"email":            {"admin@example.com"},
		"password":         {"password12345"},
		"confirm_password": {"password12345"},
	})
	require.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
	assert.Equal(t, http.StatusOK, cl.get("/admin").Code)

	rr = app.client().postForm("/setup", url.Values{
		"email":            {"second@example.com"},
		"password":         {"password12345"},
		"confirm_password": {"password12345"},
	})
	assert.Equal(t, "/login", rr.Header().Get("Location"))
	count, err := app.svc.GetUserCount()
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestIntegration_RegisterCreatesPatron(t *testing.T) {
	app := setupTestApp(t)
	cl := app.client()

	rr := cl.postJSON("/register", gin.H{
		"email":            "Reader@Example.com",
		"password":         "password12345",
		"confirm_password": "password12345",
		"first_name":       "Jeanne",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	user := decode(t, rr)["user"].(map[string]any)
	assert.Equal(t, "reader@example.com", user["email"])
	assert.Equal(t, "user", user["role"])

	assert.Equal(t, http.StatusOK, cl.get("/api/me").Code)
	assert.Equal(t, http.StatusForbidden, cl.get("/admin").Code)

	rr = app.client().postJSON("/register", gin.H{
		"email":            "reader@example.com",
		"password":         "password12345",
		"confirm_password": "password12345",
	})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = app.client().postJSON("/register", gin.H{
		"email":            "short@example.com",
		"password":         "short",
		"confirm_password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestIntegration_SessionLoginLogoutFlow(t *testing.T) {
	app := setupTestApp(t)
	mustCreate(t, app.svc, "reader@example.com", entities.UserRoleUser)
	cl := app.client()

	rr := cl.get("/api/me")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = cl.postForm("/login", url.Values{"email": {"reader@example.com"}, "password": {"wrongpassword1"}})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = cl.postForm("/login", url.Values{
		"email":    {"READER@example.com"},
		"password": {"password12345"},
		"next":     {"/api/me"},
	})
	require.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/api/me", rr.Header().Get("Location"))

	rr = cl.get("/api/me")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "session", decode(t, rr)["auth"])

	assert.Equal(t, http.StatusFound, cl.get("/logout").Code)
	assert.Equal(t, http.StatusUnauthorized, cl.get("/api/me").Code)
}

func TestIntegration_LoginRejectsOpenRedirect(t *testing.T) {
	app := setupTestApp(t)
	mustCreate(t, app.svc, "reader@example.com", entities.UserRoleUser)

	rr := app.client().postForm("/login", url.Values{
		"email":    {"reader@example.com"},
		"password": {"password12345"},
		"next":     {"//evil.example"},
	})
	assert.Equal(t, "/", rr.Header().Get("Location"))
}

func TestIntegration_DisabledAccount(t *testing.T) {
	app := setupTestApp(t)
	user := mustCreate(t, app.svc, "reader@example.com", entities.UserRoleUser)
	cl := app.client()

	rr := cl.postJSON("/login", gin.H{"email": "reader@example.com", "password": "password12345"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, http.StatusOK, cl.get("/api/me").Code)

	require.NoError(t, app.db.Model(&entities.User{}).Where("id = ?", user.ID).Update("is_verified", false).Error)

	assert.Equal(t, http.StatusUnauthorized, cl.get("/api/me").Code, "session of a disabled account is dropped")

	rr = app.client().postJSON("/login", gin.H{"email": "reader@example.com", "password": "password12345"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, decode(t, rr)["error"], "désactivé")
}

func TestIntegration_LoginRateLimited(t *testing.T) {
	app := setupTestApp(t)
	mustCreate(t, app.svc, "reader@example.com", entities.UserRoleUser)
	cl := app.client()

	for i := 0; i < 5; i++ {
		rr := cl.postJSON("/login", gin.H{"email": "reader@example.com", "password": "wrongpassword1"})
		require.NotEqual(t, http.StatusTooManyRequests, rr.Code)
	}

	rr := cl.postJSON("/login", gin.H{"email": "reader@example.com", "password": "password12345"})
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
}

func TestIntegration_TokenGenerateUseRevokeFlow(t *testing.T) {
	app := setupTestApp(t)
	mustCreate(t, app.svc, "api@example.com", entities.UserRoleUser)
	cl := app.client()

	require.Equal(t, http.StatusOK, cl.postJSON("/login", gin.H{"email": "api@example.com", "password": "password12345"}).Code)
	rr := cl.postJSON("/api/token", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	token := decode(t, rr)["token"].(string)

	bearer := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		app.router.ServeHTTP(rr, req)
		return rr
	}

	rr = bearer()
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "bearer", decode(t, rr)["auth"])

	req := httptest.NewRequest(http.MethodDelete, "/api/token", nil)
	req.Header.Set("Accept", "application/json")
	require.Equal(t, http.StatusOK, cl.do(req).Code)

	assert.Equal(t, http.StatusUnauthorized, bearer().Code)
}

func TestIntegration_ResetPasswordFlow(t *testing.T) {
	app := setupTestApp(t)
	user := mustCreate(t, app.svc, "reader@example.com", entities.UserRoleUser)
	token, err := app.tokens.Issue(user)
	require.NoError(t, err)
	cl := app.client()

	rr := cl.get("/reset-password/" + token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, token, decode(t, rr)["Token"])

	rr = cl.postForm("/reset-password/"+token, url.Values{
		"password":         {"brandnewpass1"},
		"confirm_password": {"brandnewpass1"},
	})
	require.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
	assert.JSONEq(t, `[{"level":"success","text":"Mot de passe modifié, vous pouvez vous connecter."}]`, cl.get("/flashes").Body.String())

	_, err = app.svc.Authenticate("reader@example.com", "brandnewpass1")
	assert.NoError(t, err)

	rr = cl.postForm("/reset-password/"+token, url.Values{
		"password":         {"anotherpass12"},
		"confirm_password": {"anotherpass12"},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code, "links are single-use")
	assert.Equal(t, http.StatusBadRequest, cl.get("/reset-password/"+token).Code)
	assert.Equal(t, http.StatusBadRequest, cl.get("/reset-password/garbage").Code)
}

func TestIntegration_PublicAndStaticPaths(t *testing.T) {
	app := setupTestApp(t)
	app.router.GET("/static/*filepath", func(c *gin.Context) {
		c.String(http.StatusOK, "asset")
	})

	rr := app.client().get("/static/app.css")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "asset", rr.Body.String())
}

func TestIntegration_MalformedBearerToken(t *testing.T) {
	app := setupTestApp(t)

	for _, header := range []string{"Bearer", "Basic abc", "Bearer ", "Token abc"} {
		t.Run(header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			req.Header.Set("Authorization", header)
			rr := httptest.NewRecorder()
			app.router.ServeHTTP(rr, req)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}
}
