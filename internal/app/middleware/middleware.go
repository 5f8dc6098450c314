package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/Kinabler/DBS401/internal/app/domain/auth"
)

// Typed context keys for values set by AuthMiddleware.
type contextKey string

const (
	ClaimsContextKey contextKey = "claims"
	UserIDKey        contextKey = "user_id"
	UsernameKey      contextKey = "user_name"
	UserRoleKey      contextKey = "user_role"
)

// Role lookups hit the database, so RoleResolver memoizes them briefly.
// One minute keeps a demotion from lingering while absorbing bursts.
const roleCacheTTL = time.Minute

// NewRoleCache builds the cache RoleResolver reads through.
func NewRoleCache() *gocache.Cache {
	return gocache.New(roleCacheTTL, 5*time.Minute)
}

// RoleResolver answers "what is this user's role right now" from storage,
// never from token claims. Every privileged decision goes through here.
type RoleResolver struct {
	repo  auth.AuthRepo
	cache *gocache.Cache
}

func NewRoleResolver(repo auth.AuthRepo, cache *gocache.Cache) *RoleResolver {
	return &RoleResolver{repo: repo, cache: cache}
}

// Resolve returns the current role of a user, memoized for the cache TTL.
func (r *RoleResolver) Resolve(ctx context.Context, userID int64) (string, error) {
	key := strconv.FormatInt(userID, 10)
	if cached, found := r.cache.Get(key); found {
		return cached.(string), nil
	}
	role, err := r.repo.GetUserRole(ctx, userID)
	if err != nil {
		return "", err
	}
	r.cache.Set(key, role, gocache.DefaultExpiration)
	return role, nil
}

// TokenFromRequest extracts the session token: cookie first, then the
// Authorization header as a Bearer fallback for non-browser clients.
func TokenFromRequest(c *gin.Context) string {
	if token, err := c.Cookie(auth.CookieName); err == nil && token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if after, found := strings.CutPrefix(header, "Bearer "); found {
		return strings.TrimSpace(after)
	}
	return ""
}

// CORSMiddleware handles CORS headers
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// AuthMiddleware verifies the session token and stores the claims in the
// request context. Unauthenticated browsers are sent to the login page;
// API callers get a 401.
// Note: request logging is handled by ginzap middleware.
func AuthMiddleware(tokens *auth.JWTService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c)
		if token == "" {
			handleAuthRedirect(c, "/login")
			return
		}

		claims, err := tokens.Verify(token)
		if err != nil {
			logger.Debug("Token verification failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
			handleAuthRedirect(c, "/login")
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			logger.Warn("Token carries non-numeric subject", zap.String("subject", claims.Subject))
			handleAuthRedirect(c, "/login")
			return
		}

		c.Set(string(ClaimsContextKey), claims)
		c.Set(string(UserIDKey), userID)
		c.Set(string(UsernameKey), claims.Username)
		c.Set(string(UserRoleKey), claims.Role)
		c.Next()
	}
}

// handleAuthRedirect aborts the request: redirect for browsers, 401 for
// API clients.
func handleAuthRedirect(c *gin.Context, redirectURL string) {
	if auth.WantsJSON(c) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	c.Redirect(http.StatusFound, redirectURL)
	c.Abort()
}

// RequireAdmin gates a route on the admin role. The role is resolved from
// the database rather than trusted from the token, so a role change takes
// effect within the cache TTL instead of at token expiry.
func RequireAdmin(roles *RoleResolver, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserIDFromContext(c)
		if userID == 0 {
			handleAuthRedirect(c, "/login")
			return
		}

		role, err := roles.Resolve(c.Request.Context(), userID)
		if err != nil {
			logger.Error("Role resolution failed", zap.Int64("userID", userID), zap.Error(err))
			forbid(c)
			return
		}

		if role != "admin" {
			logger.Warn("Admin route denied",
				zap.Int64("userID", userID),
				zap.String("role", role),
				zap.String("path", c.Request.URL.Path),
			)
			forbid(c)
			return
		}

		c.Next()
	}
}

func forbid(c *gin.Context) {
	if auth.WantsJSON(c) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied. Admin privileges required."})
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusForbidden, forbiddenPageHTML)
	c.Abort()
}

const forbiddenPageHTML = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>403 Forbidden</title></head>
<body>
<h1>403 - Access Denied</h1>
<p>You do not have permission to access this page.</p>
<p><a href="/">Back to home</a></p>
</body>
</html>`

// SecurityMiddleware adds security headers
func SecurityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Writer.Header().Set("X-Frame-Options", "DENY")
		c.Writer.Header().Set("X-XSS-Protection", "1; mode=block")
		c.Writer.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Writer.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data:; style-src 'self' 'unsafe-inline'")

		c.Next()
	}
}

// GetClaimsFromContext extracts the verified token claims, or nil when the
// request never passed AuthMiddleware.
func GetClaimsFromContext(c *gin.Context) *auth.Claims {
	v, exists := c.Get(string(ClaimsContextKey))
	if !exists {
		return nil
	}
	claims, ok := v.(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}

// GetUserIDFromContext extracts the authenticated user id, 0 when absent.
func GetUserIDFromContext(c *gin.Context) int64 {
	if v, exists := c.Get(string(UserIDKey)); exists {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}

// GetRoleFromContext extracts the token role claim. Authorization decisions
// must go through RoleResolver instead; this is for display only.
func GetRoleFromContext(c *gin.Context) string {
	if v, exists := c.Get(string(UserRoleKey)); exists {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}
