package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bibliotheque/internal/config"
	"github.com/mrlokans/bibliotheque/internal/entities"
)

func setupMiddleware(t *testing.T, mode config.AuthMode) (*Middleware, *Service) {
	t.Helper()
	svc, _ := setupTestService(t, mode)
	return NewMiddleware(svc, nil, config.Auth{Mode: mode}), svc
}

func whoami(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"user_id":   GetUserID(c),
		"email":     GetEmail(c),
		"role":      GetUserRole(c),
		"auth_type": GetAuthType(c),
		"admin":     IsAdmin(c),
	})
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestMiddleware_AnonymousVisitorPassesThrough(t *testing.T) {
	m, _ := setupMiddleware(t, config.AuthModeLocal)

	router := gin.New()
	router.Use(m.Handler())
	router.GET("/books", whoami)

	rr := serve(router, httptest.NewRequest(http.MethodGet, "/books", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"user_id":0,"email":"","role":"","auth_type":"none","admin":false}`, rr.Body.String())
}

func TestMiddleware_NoAuthMode(t *testing.T) {
	m, svc := setupMiddleware(t, config.AuthModeNone)
	admin := mustCreate(t, svc, "admin@example.com", entities.UserRoleAdmin)

	router := gin.New()
	router.Use(m.Handler())
	router.GET("/test", whoami)

	rr := serve(router, httptest.NewRequest(http.MethodGet, "/test", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.EqualValues(t, admin.ID, body["user_id"])
	assert.Equal(t, true, body["admin"])
	assert.Equal(t, "none", body["auth_type"])
}

func TestMiddleware_PublicPathsSkipLookup(t *testing.T) {
	m, svc := setupMiddleware(t, config.AuthModeLocal)
	user := mustCreate(t, svc, "api@example.com", entities.UserRoleUser)
	token, err := svc.GenerateToken(user.ID)
	require.NoError(t, err)

	router := gin.New()
	router.Use(m.Handler())
	for _, path := range []string{"/health", "/ping", "/static/app.css"} {
		router.GET(path, whoami)
	}

	for _, path := range []string{"/health", "/ping", "/static/app.css"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rr := serve(router, req)
			require.Equal(t, http.StatusOK, rr.Code)
			assert.EqualValues(t, 0, decode(t, rr)["user_id"])
		})
	}
}

func TestMiddleware_RequireAuth(t *testing.T) {
	m, svc := setupMiddleware(t, config.AuthModeLocal)
	user := mustCreate(t, svc, "reader@example.com", entities.UserRoleUser)
	token, err := svc.GenerateToken(user.ID)
	require.NoError(t, err)

	router := gin.New()
	router.Use(m.Handler())
	router.GET("/profile", m.RequireAuth(), whoami)
	router.GET("/api/loans", m.RequireAuth(), whoami)

	rr := serve(router, httptest.NewRequest(http.MethodGet, "/profile?tab=loans", nil))
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/login?next=%2Fprofile%3Ftab%3Dloans", rr.Header().Get("Location"))

	rr = serve(router, httptest.NewRequest(http.MethodGet, "/api/loans", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error":"authentication required","code":"unauthorized"}`, rr.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Accept", "application/json")
	assert.Equal(t, http.StatusUnauthorized, serve(router, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/loans", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = serve(router, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "bearer", decode(t, rr)["auth_type"])
	assert.Equal(t, "reader@example.com", decode(t, rr)["email"])
}

func TestMiddleware_BearerAuth_InvalidTokenIsAnonymous(t *testing.T) {
	m, _ := setupMiddleware(t, config.AuthModeLocal)

	router := gin.New()
	router.Use(m.Handler())
	router.GET("/books", whoami)

	req := httptest.NewRequest(http.MethodGet, "/books", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")
	rr := serve(router, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 0, decode(t, rr)["user_id"])
}

func TestMiddleware_RequireRole(t *testing.T) {
	m, svc := setupMiddleware(t, config.AuthModeLocal)
	admin := mustCreate(t, svc, "admin@example.com", entities.UserRoleAdmin)
	reader := mustCreate(t, svc, "reader@example.com", entities.UserRoleUser)
	adminToken, err := svc.GenerateToken(admin.ID)
	require.NoError(t, err)
	readerToken, err := svc.GenerateToken(reader.ID)
	require.NoError(t, err)

	router := gin.New()
	router.Use(m.Handler())
	router.GET("/admin/dashboard", m.RequireRole(entities.UserRoleAdmin), whoami)

	get := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return serve(router, req)
	}

	assert.Equal(t, http.StatusOK, get(adminToken).Code)

	rr := get(readerToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.JSONEq(t, `{"error":"insufficient permissions","code":"forbidden"}`, rr.Body.String())

	rr = get("")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error":"authentication required","code":"unauthorized"}`, rr.Body.String())
}

func TestContextGetters_Empty(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.Nil(t, GetUser(c))
	assert.Equal(t, DefaultUserID, GetUserID(c))
	assert.Empty(t, GetEmail(c))
	assert.Empty(t, GetUserRole(c))
	assert.Equal(t, AuthTypeNone, GetAuthType(c))
	assert.False(t, IsAuthenticated(c))
	assert.False(t, IsAdmin(c))

	c.Set(ContextKeyUserID, uint(42))
	assert.True(t, IsAuthenticated(c))
}

func TestIsAPIRequest(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		headers map[string]string
		want    bool
	}{
		{"api prefix", "/api/books", nil, true},
		{"html page", "/books/1", nil, false},
		{"admin prefix", "/admin/books", nil, true},
		{"admin-like page", "/administration", nil, false},
		{"accept json", "/admin/books", map[string]string{"Accept": "application/json"}, true},
		{"json body", "/login", map[string]string{"Content-Type": "application/json; charset=utf-8"}, true},
		{"authorization header", "/books/1", map[string]string{"Authorization": "Bearer x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, IsAPIRequest(c))
		})
	}
}
