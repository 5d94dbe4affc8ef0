// Package auth provides accounts, authentication and authorization for the
// library.
//
// It supports two authentication modes:
//   - "none": no login, every visitor acts as the first administrator (local development)
//   - "local": accounts identified by email, session cookies for the web UI and Bearer tokens for API clients
//
// # Configuration
//
//	AUTH_MODE=local                        # Default
//	AUTH_SESSION_SECRET=<base64-32-bytes>  # Auto-generated if empty; also signs CSRF and reset tokens
//	AUTH_SESSION_LIFETIME=24h              # Session duration
//	AUTH_TOKEN_EXPIRY=720h                 # API token expiry (30 days default)
//	AUTH_BCRYPT_COST=12                    # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true               # HTTPS-only cookies
//	LIBRARY_RESET_TOKEN_TTL=1h             # Password reset link validity
//
// # Usage
//
//	authService := auth.NewService(db, cfg.Auth)
//	sessions, _ := auth.NewSessionManager(sqlDB, cfg.Auth)
//	middleware := auth.NewMiddleware(authService, sessions, cfg.Auth)
//	router.Use(sessions.SessionLoadSave(), middleware.Handler())
//	loans := router.Group("/api/loans", middleware.RequireAuth())
//	admin := router.Group("/admin", middleware.RequireRole(entities.UserRoleAdmin))
//
// Handler never rejects a request: the catalog is public. Extract the
// visitor in handlers with GetUser or GetUserID, which returns
// DefaultUserID for anonymous visitors.
//
// # Password reset
//
// Reset links carry an HS256 JWT (see ResetTokens) bound to a fingerprint
// of the current password hash, so a link stops working once used.
package auth
