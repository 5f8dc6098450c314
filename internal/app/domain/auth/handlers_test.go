package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kinabler/DBS401/internal/app/models"
	"github.com/Kinabler/DBS401/internal/pkg/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func loginRouter(t *testing.T, repo AuthRepo) *gin.Engine {
	t.Helper()
	cfg := &config.Config{
		JWT: config.JWTConfig{
			SecretKey: "test-secret-key-for-unit-tests",
			TokenTTL:  time.Hour,
		},
		Env: "development",
	}
	svc := newTestService(repo)
	h := NewAuthHandlers(svc, cfg, zap.NewNop())

	r := gin.New()
	r.GET("/login", h.ShowLoginPage)
	r.POST("/login", h.LoginHandler)
	r.GET("/logout", h.LogoutHandler)
	return r
}

func postLogin(r *gin.Engine, username, password, accept string) *httptest.ResponseRecorder {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestLoginHandlerSuccessSetsCookie(t *testing.T) {
	mockRepo := new(MockAuthRepo)
	hash, err := HashPassword("longenoughpassword")
	require.NoError(t, err)
	mockRepo.On("GetUserByUsername", mock.Anything, "valid_user1").Return(&models.UserAuth{
		ID:       12,
		Username: "valid_user1",
		Password: hash,
		Role:     models.RoleUser,
	}, nil)

	r := loginRouter(t, mockRepo)
	w := postLogin(r, "valid_user1", "longenoughpassword", "")

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	var session *http.Cookie
	for _, ck := range cookies {
		if ck.Name == CookieName {
			session = ck
		}
	}
	require.NotNil(t, session, "login must set the session cookie")
	assert.NotEmpty(t, session.Value)
	assert.True(t, session.HttpOnly)
	assert.False(t, session.Secure, "secure flag stays off outside production")
	assert.Equal(t, 3600, session.MaxAge)
}

func TestLoginHandlerJSONResponse(t *testing.T) {
	mockRepo := new(MockAuthRepo)
	hash, err := HashPassword("longenoughpassword")
	require.NoError(t, err)
	mockRepo.On("GetUserByUsername", mock.Anything, "valid_user1").Return(&models.UserAuth{
		ID:       12,
		Username: "valid_user1",
		Password: hash,
		Role:     models.RoleUser,
	}, nil)

	r := loginRouter(t, mockRepo)
	w := postLogin(r, "valid_user1", "longenoughpassword", "application/json")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"token"`)
	assert.Contains(t, w.Body.String(), `"username":"valid_user1"`)
}

func TestLoginHandlerWrongPasswordIsGeneric(t *testing.T) {
	mockRepo := new(MockAuthRepo)
	hash, err := HashPassword("the-real-password")
	require.NoError(t, err)
	mockRepo.On("GetUserByUsername", mock.Anything, "valid_user1").Return(&models.UserAuth{
		ID:       12,
		Username: "valid_user1",
		Password: hash,
		Role:     models.RoleUser,
	}, nil)

	r := loginRouter(t, mockRepo)
	w := postLogin(r, "valid_user1", "wrong-password-here", "application/json")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid username or password")
	assert.Empty(t, w.Result().Cookies())
}

func TestLoginHandlerUnknownUserSameMessage(t *testing.T) {
	mockRepo := new(MockAuthRepo)
	mockRepo.On("GetUserByUsername", mock.Anything, "nobody_here").
		Return(nil, models.ErrNotFound)

	r := loginRouter(t, mockRepo)
	w := postLogin(r, "nobody_here", "longenoughpassword", "application/json")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid username or password")
}

func TestLoginHandlerMalformedUsernameNeverHitsStorage(t *testing.T) {
	mockRepo := new(MockAuthRepo)
	r := loginRouter(t, mockRepo)

	w := postLogin(r, "admin' OR '1'='1", "longenoughpassword", "application/json")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid username or password")
	mockRepo.AssertNotCalled(t, "GetUserByUsername")
}

func TestLoginHandlerBrowserRedirectsWithError(t *testing.T) {
	mockRepo := new(MockAuthRepo)
	r := loginRouter(t, mockRepo)

	w := postLogin(r, "ab", "short", "text/html")

	assert.Equal(t, http.StatusFound, w.Code)
	location := w.Header().Get("Location")
	assert.True(t, strings.HasPrefix(location, "/login?error="))
}

func TestLogoutHandlerClearsCookie(t *testing.T) {
	r := loginRouter(t, new(MockAuthRepo))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestShowLoginPageEscapesErrorParam(t *testing.T) {
	r := loginRouter(t, new(MockAuthRepo))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/login?error="+url.QueryEscape("<script>alert(1)</script>"), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "<script>alert(1)</script>")
	assert.Contains(t, w.Body.String(), "&lt;script&gt;")
}
