package auth

import (
	"errors"
	"html"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Kinabler/DBS401/internal/app/models"
	"github.com/Kinabler/DBS401/internal/app/validator"
	"github.com/Kinabler/DBS401/internal/pkg/config"
)

// CookieName is the session token cookie set at login.
const CookieName = "auth_token"

type AuthHandlers struct {
	authService AuthService
	cfg         *config.Config
	logger      *zap.Logger
}

func NewAuthHandlers(authService AuthService, cfg *config.Config, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		cfg:         cfg,
		logger:      logger,
	}
}

// WantsJSON reports whether the caller prefers a JSON response over HTML,
// based on the Accept header or an XHR marker.
func WantsJSON(c *gin.Context) bool {
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		return true
	}
	return c.GetHeader("X-Requested-With") == "XMLHttpRequest"
}

// SetAuthCookie attaches the session token to the response. HttpOnly always,
// Secure only in production.
func SetAuthCookie(c *gin.Context, cfg *config.Config, token string) {
	maxAge := int(cfg.JWT.TokenTTL.Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, maxAge, "/", "", cfg.IsProduction(), true)
}

// ClearAuthCookie expires the session cookie. Logout is purely client-side;
// the server keeps no revocation list.
func ClearAuthCookie(c *gin.Context, cfg *config.Config) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", cfg.IsProduction(), true)
}

// LoginHandler authenticates a username/password form post or JSON body.
func (h *AuthHandlers) LoginHandler(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	data, err := validator.ValidateLogin(username, password)
	if err != nil {
		h.logger.Warn("Login validation failed", zap.String("remote_addr", c.ClientIP()))
		h.loginFailure(c, validator.GenericLoginMessage)
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), data.Username, data.Password)
	if err != nil {
		if errors.Is(err, models.ErrUnauthenticated) {
			h.loginFailure(c, validator.GenericLoginMessage)
			return
		}
		h.logger.Error("Login failed", zap.Error(err))
		if WantsJSON(c) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An error occurred during login"})
			return
		}
		c.Redirect(http.StatusFound, "/login?error="+url.QueryEscape("An error occurred during login"))
		return
	}

	SetAuthCookie(c, h.cfg, token)
	h.logger.Info("Login successful",
		zap.String("username", user.Username),
		zap.Int64("user_id", user.ID),
	)

	if WantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{
			"token": token,
			"user": gin.H{
				"id":       user.ID,
				"username": user.Username,
				"role":     user.Role,
			},
		})
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandlers) loginFailure(c *gin.Context, message string) {
	if WantsJSON(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": message})
		return
	}
	c.Redirect(http.StatusFound, "/login?error="+url.QueryEscape(message))
}

// LogoutHandler clears the session cookie.
func (h *AuthHandlers) LogoutHandler(c *gin.Context) {
	ClearAuthCookie(c, h.cfg)
	h.logger.Info("User logout", zap.String("remote_addr", c.ClientIP()))

	if WantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"status": "logged out"})
		return
	}
	c.Redirect(http.StatusFound, "/login")
}

// ShowLoginPage renders the minimal login form. View rendering proper is out
// of scope; this is just enough glue for browser flows.
func (h *AuthHandlers) ShowLoginPage(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, loginPageHTML(c.Query("error")))
}

func loginPageHTML(errMsg string) string {
	var banner string
	if errMsg != "" {
		banner = `<p class="error">` + html.EscapeString(errMsg) + `</p>`
	}
	return `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Login</title></head>
<body>
<h1>Sign in</h1>
` + banner + `
<form method="post" action="/login">
  <label>Username <input type="text" name="username" autocomplete="username"></label>
  <label>Password <input type="password" name="password" autocomplete="current-password"></label>
  <button type="submit">Login</button>
</form>
</body>
</html>`
}
