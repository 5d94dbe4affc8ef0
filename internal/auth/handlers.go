package auth

import (
	"errors"
	"html/template"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bibliotheque/internal/config"
	"github.com/mrlokans/bibliotheque/internal/entities"
)

// setupMutex serializes setup requests to prevent race conditions.
var setupMutex sync.Mutex

// isLocalPath validates that a redirect path is local to prevent open redirect attacks.
// Returns true if the path is safe for redirect (local path only).
func isLocalPath(path string) bool {
	if path == "" {
		return false
	}

	// Must start with /
	if !strings.HasPrefix(path, "/") {
		return false
	}

	// Reject protocol-relative URLs (//evil.com)
	if strings.HasPrefix(path, "//") {
		return false
	}

	// Reject URLs with schemes
	if strings.Contains(path, "://") {
		return false
	}

	// Reject paths with backslashes (potential bypass attempts)
	if strings.Contains(path, "\\") {
		return false
	}

	return true
}

// sanitizeRedirectPath returns a safe redirect path, defaulting to "/" if invalid.
func sanitizeRedirectPath(path string) string {
	if isLocalPath(path) {
		return path
	}
	return "/"
}

// credentials is the login payload, accepted as a form or as JSON.
type credentials struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	Next     string `form:"next" json:"next"`
}

// registration is the sign-up and setup payload.
type registration struct {
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
	FirstName       string `form:"first_name" json:"first_name"`
	LastName        string `form:"last_name" json:"last_name"`
	Phone           string `form:"phone" json:"phone"`
}

func (r registration) newUser(role entities.UserRole) NewUser {
	return NewUser{
		Email:     r.Email,
		Password:  r.Password,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Phone:     r.Phone,
		Role:      role,
	}
}

// form echoes the submitted fields back to the page, never the password.
func (r registration) form() gin.H {
	return gin.H{
		"Email":     r.Email,
		"FirstName": r.FirstName,
		"LastName":  r.LastName,
		"Phone":     r.Phone,
	}
}

// AuthController handles authentication-related HTTP endpoints.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	resetTokens    *ResetTokens
	templates      *template.Template
	config         config.Auth
	rateLimiter    *RateLimiter
}

// NewAuthController creates a new authentication controller.
func NewAuthController(service *Service, sessionManager *SessionManager, resetTokens *ResetTokens, templatesPath string, cfg config.Auth) (*AuthController, error) {
	var tmpl *template.Template
	if templatesPath != "" {
		parsed, err := template.ParseGlob(filepath.Join(templatesPath, "auth", "*.html"))
		if err != nil {
			// Without templates every page answers JSON
			log.Printf("Auth templates unavailable, using JSON responses: %v", err)
		} else {
			tmpl = parsed
		}
	}

	rateLimiter := NewRateLimiter(RateLimitConfig{
		MaxAttempts:     cfg.MaxLoginAttempts,
		WindowDuration:  cfg.RateLimitWindow,
		LockoutDuration: cfg.LockoutDuration,
	})

	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		resetTokens:    resetTokens,
		templates:      tmpl,
		config:         cfg,
		rateLimiter:    rateLimiter,
	}, nil
}

// RegisterRoutes registers authentication routes on the router.
func (ac *AuthController) RegisterRoutes(router gin.IRouter) {
	router.GET("/login", ac.LoginPage)
	router.POST("/login", ac.rateLimiter.RateLimitMiddleware(), ac.Login)
	router.POST("/logout", ac.Logout)
	router.GET("/logout", ac.Logout) // Support GET for simple logout links
	router.GET("/register", ac.RegisterPage)
	router.POST("/register", ac.Register)
	router.GET("/setup", ac.SetupPage)
	router.POST("/setup", ac.Setup)
	router.GET("/reset-password/:token", ac.ResetPasswordPage)
	router.POST("/reset-password/:token", ac.ResetPassword)
}

// Stop cleans up resources (rate limiter background goroutine).
func (ac *AuthController) Stop() {
	if ac.rateLimiter != nil {
		ac.rateLimiter.Stop()
	}
}

// LoginPage renders the login form.
func (ac *AuthController) LoginPage(c *gin.Context) {
	if IsAuthenticated(c) && GetAuthType(c) == AuthTypeSession {
		c.Redirect(http.StatusFound, "/")
		return
	}

	hasUsers, _ := ac.service.HasUsers()
	if !hasUsers {
		c.Redirect(http.StatusFound, "/setup")
		return
	}

	ac.render(c, http.StatusOK, "login.html", gin.H{
		"Title": "Connexion",
		"Next":  sanitizeRedirectPath(c.Query("next")),
		"Error": c.Query("error"),
	})
}

// Login handles the login form submission.
func (ac *AuthController) Login(c *gin.Context) {
	var in credentials
	_ = c.ShouldBind(&in)
	next := sanitizeRedirectPath(in.Next)
	clientIP := c.ClientIP()

	page := func(status int, message string) {
		ac.render(c, status, "login.html", gin.H{
			"Title": "Connexion",
			"Next":  next,
			"Email": in.Email,
			"Error": message,
		})
	}

	if allowed, retryAfter := ac.rateLimiter.Allow(clientIP, in.Email); !allowed {
		if IsAPIRequest(c) {
			abortTooManyAttempts(c, retryAfter)
			return
		}
		page(http.StatusTooManyRequests, "Trop de tentatives de connexion. Réessayez plus tard.")
		return
	}

	user, err := ac.service.Authenticate(in.Email, in.Password)
	if err != nil {
		ac.rateLimiter.RecordFailure(clientIP, in.Email)

		status, message := http.StatusUnauthorized, "Email ou mot de passe incorrect"
		switch {
		case errors.Is(err, ErrAccountLocked):
			status, message = http.StatusForbidden, "Compte verrouillé. Réessayez plus tard."
		case errors.Is(err, ErrAccountDisabled):
			status, message = http.StatusForbidden, "Ce compte est désactivé."
		}
		page(status, message)
		return
	}

	ac.rateLimiter.RecordSuccess(clientIP, in.Email)

	if ac.sessionManager != nil {
		if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
			log.Printf("Failed to create session for user %d: %v", user.ID, err)
			page(http.StatusInternalServerError, "Impossible de créer la session")
			return
		}
	}

	if IsAPIRequest(c) {
		c.JSON(http.StatusOK, gin.H{"user": user, "next": next})
		return
	}
	c.Redirect(http.StatusFound, next)
}

// Logout destroys the session and redirects to login.
func (ac *AuthController) Logout(c *gin.Context) {
	if ac.sessionManager != nil {
		_ = ac.sessionManager.DestroySession(c.Request)
	}
	if IsAPIRequest(c) {
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
		return
	}
	c.Redirect(http.StatusFound, "/login")
}

// RegisterPage renders the sign-up form.
func (ac *AuthController) RegisterPage(c *gin.Context) {
	if IsAuthenticated(c) && GetAuthType(c) == AuthTypeSession {
		c.Redirect(http.StatusFound, "/")
		return
	}
	ac.render(c, http.StatusOK, "register.html", gin.H{
		"Title": "Inscription",
		"Error": c.Query("error"),
	})
}

// Register opens a patron account and logs it in.
func (ac *AuthController) Register(c *gin.Context) {
	var in registration
	_ = c.ShouldBind(&in)

	page := func(status int, message string) {
		data := in.form()
		data["Title"] = "Inscription"
		data["Error"] = message
		ac.render(c, status, "register.html", data)
	}

	if in.Password != in.ConfirmPassword {
		page(http.StatusBadRequest, "Les mots de passe ne correspondent pas")
		return
	}

	user, err := ac.service.Register(in.newUser(entities.UserRoleUser))
	if err != nil {
		status, message := accountErrorMessage(err)
		page(status, message)
		return
	}

	if ac.sessionManager != nil {
		if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
			log.Printf("Failed to create session for user %d: %v", user.ID, err)
		}
		ac.sessionManager.AddFlash(c.Request, FlashSuccess, "Bienvenue, votre compte a été créé.")
	}

	if IsAPIRequest(c) {
		c.JSON(http.StatusCreated, gin.H{"user": user})
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// SetupPage renders the initial admin setup form.
func (ac *AuthController) SetupPage(c *gin.Context) {
	hasUsers, err := ac.service.HasUsers()
	if err != nil {
		ac.render(c, http.StatusInternalServerError, "setup.html", gin.H{
			"Title": "Installation",
			"Error": "Erreur de base de données. Réessayez.",
		})
		return
	}
	if hasUsers {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	ac.render(c, http.StatusOK, "setup.html", gin.H{
		"Title": "Installation",
		"Error": c.Query("error"),
	})
}

// Setup handles the initial admin user creation.
// Uses a mutex to prevent race conditions where concurrent requests both pass HasUsers() check.
func (ac *AuthController) Setup(c *gin.Context) {
	setupMutex.Lock()
	defer setupMutex.Unlock()

	hasUsers, err := ac.service.HasUsers()
	if err != nil {
		ac.render(c, http.StatusInternalServerError, "setup.html", gin.H{
			"Title": "Installation",
			"Error": "Erreur de base de données. Réessayez.",
		})
		return
	}
	if hasUsers {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	var in registration
	_ = c.ShouldBind(&in)

	page := func(status int, message string) {
		data := in.form()
		data["Title"] = "Installation"
		data["Error"] = message
		ac.render(c, status, "setup.html", data)
	}

	if in.Password != in.ConfirmPassword {
		page(http.StatusBadRequest, "Les mots de passe ne correspondent pas")
		return
	}

	user, err := ac.service.CreateUser(in.newUser(entities.UserRoleAdmin))
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			// Another request won the race
			c.Redirect(http.StatusFound, "/login")
			return
		}
		status, message := accountErrorMessage(err)
		page(status, message)
		return
	}

	if ac.sessionManager != nil {
		_ = ac.sessionManager.CreateSession(c.Request, user)
	}

	if IsAPIRequest(c) {
		c.JSON(http.StatusCreated, gin.H{"user": user})
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// ResetPasswordPage renders the new-password form of an emailed link.
func (ac *AuthController) ResetPasswordPage(c *gin.Context) {
	token := c.Param("token")
	if err := ac.service.CheckResetToken(ac.resetTokens, token); err != nil {
		ac.render(c, http.StatusBadRequest, "reset_password.html", gin.H{
			"Title":   "Nouveau mot de passe",
			"Invalid": true,
			"Error":   resetErrorMessage(err),
		})
		return
	}

	ac.render(c, http.StatusOK, "reset_password.html", gin.H{
		"Title": "Nouveau mot de passe",
		"Token": token,
	})
}

// ResetPassword sets the password chosen through an emailed link.
func (ac *AuthController) ResetPassword(c *gin.Context) {
	token := c.Param("token")
	var in registration
	_ = c.ShouldBind(&in)

	page := func(status int, message string, invalid bool) {
		ac.render(c, status, "reset_password.html", gin.H{
			"Title":   "Nouveau mot de passe",
			"Token":   token,
			"Invalid": invalid,
			"Error":   message,
		})
	}

	if in.Password != in.ConfirmPassword {
		page(http.StatusBadRequest, "Les mots de passe ne correspondent pas", false)
		return
	}

	user, err := ac.service.ResetPassword(ac.resetTokens, token, in.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrTokenExpired) {
			page(http.StatusBadRequest, resetErrorMessage(err), true)
			return
		}
		status, message := accountErrorMessage(err)
		page(status, message, false)
		return
	}
	log.Printf("Password reset through emailed link for user %d", user.ID)

	if ac.sessionManager != nil {
		ac.sessionManager.AddFlash(c.Request, FlashSuccess, "Mot de passe modifié, vous pouvez vous connecter.")
	}
	if IsAPIRequest(c) {
		c.JSON(http.StatusOK, gin.H{"message": "password updated"})
		return
	}
	c.Redirect(http.StatusFound, "/login")
}

func resetErrorMessage(err error) string {
	if errors.Is(err, ErrTokenExpired) {
		return "Ce lien a expiré. Demandez un nouveau lien à un administrateur."
	}
	return "Ce lien n'est pas valide ou a déjà été utilisé."
}

// accountErrorMessage maps account validation errors to a status and a
// message for the form.
func accountErrorMessage(err error) (int, string) {
	switch {
	case errors.Is(err, ErrPasswordTooShort):
		return http.StatusBadRequest, "Le mot de passe doit contenir au moins 12 caractères"
	case errors.Is(err, ErrPasswordTooLong):
		return http.StatusBadRequest, "Le mot de passe ne peut pas dépasser 72 caractères"
	case errors.Is(err, ErrPasswordRequired):
		return http.StatusBadRequest, "Le mot de passe est obligatoire"
	case errors.Is(err, ErrEmailRequired):
		return http.StatusBadRequest, "L'email est obligatoire"
	case errors.Is(err, ErrEmailInvalid):
		return http.StatusBadRequest, "Format d'email invalide"
	case errors.Is(err, ErrLastNameTooLong):
		return http.StatusBadRequest, "Le nom ne peut pas dépasser 100 caractères"
	case errors.Is(err, ErrUserExists):
		return http.StatusConflict, "Un compte existe déjà avec cet email"
	}
	log.Printf("Account operation failed: %v", err)
	return http.StatusInternalServerError, "Impossible de créer le compte"
}

// render renders an auth template or falls back to JSON. The CSRF token and
// pending flashes are added to every page.
func (ac *AuthController) render(c *gin.Context, status int, name string, data gin.H) {
	if ac.templates == nil || IsAPIRequest(c) {
		if msg, ok := data["Error"].(string); ok && msg != "" && status >= http.StatusBadRequest {
			c.JSON(status, gin.H{"error": msg})
			return
		}
		c.JSON(status, data)
		return
	}

	data["CSRFToken"] = GetCSRFToken(c)
	data["CSRFField"] = template.HTML(CSRFTokenField(c))
	if ac.sessionManager != nil {
		data["Flashes"] = ac.sessionManager.PopFlashes(c.Request)
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	if err := ac.templates.ExecuteTemplate(c.Writer, name, data); err != nil {
		log.Printf("Failed to render %s: %v", name, err)
	}
}

// APITokenController handles API token management endpoints.
type APITokenController struct {
	service *Service
}

// NewAPITokenController creates a new API token controller.
func NewAPITokenController(service *Service) *APITokenController {
	return &APITokenController{service: service}
}

// GenerateToken creates a new API token for the authenticated user.
func (tc *APITokenController) GenerateToken(c *gin.Context) {
	userID := GetUserID(c)
	if userID == DefaultUserID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "code": "unauthorized"})
		return
	}

	token, err := tc.service.GenerateToken(userID)
	if err != nil {
		log.Printf("Failed to generate API token for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token", "code": "internal"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": "Store this token securely - it will not be shown again",
	})
}

// RevokeToken revokes the API token for the authenticated user.
func (tc *APITokenController) RevokeToken(c *gin.Context) {
	userID := GetUserID(c)
	if userID == DefaultUserID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "code": "unauthorized"})
		return
	}

	if err := tc.service.RevokeToken(userID); err != nil {
		log.Printf("Failed to revoke API token for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token", "code": "internal"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "token revoked"})
}
