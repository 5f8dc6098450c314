package user

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kinabler/DBS401/internal/app/middleware"
	"github.com/Kinabler/DBS401/internal/app/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) ListUsers(ctx context.Context) ([]models.UserSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UserSummary), args.Error(1)
}

func (m *MockUserService) GetProfile(ctx context.Context, userID int64) (*models.UserProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, update models.ProfileUpdate) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}

func (m *MockUserService) SetAvatar(ctx context.Context, userID int64, avatarURL string) error {
	args := m.Called(ctx, userID, avatarURL)
	return args.Error(0)
}

// stubAvatars counts how often a file actually reaches storage.
type stubAvatars struct {
	calls int
	url   string
	err   error
}

func (s *stubAvatars) SaveAvatar(fh *multipart.FileHeader, userID int64) (string, error) {
	s.calls++
	return s.url, s.err
}

// stubRoles answers a fixed role and counts lookups.
type stubRoles struct {
	role    string
	err     error
	lookups int
}

func (s *stubRoles) Resolve(ctx context.Context, userID int64) (string, error) {
	s.lookups++
	return s.role, s.err
}

// profileRouter injects the auth context the way the session middleware
// would after verifying a token carrying tokenRole.
func profileRouter(service UserService, avatars AvatarStorer, roles RoleResolver, actorID int64, tokenRole string) *gin.Engine {
	r := gin.New()
	h := NewHandlers(service, avatars, roles, zap.NewNop())
	r.POST("/profile", func(c *gin.Context) {
		c.Set(string(middleware.UserIDKey), actorID)
		c.Set(string(middleware.UserRoleKey), tokenRole)
	}, h.UpdateProfileHandler)
	return r
}

func postProfileForm(r *gin.Engine, form url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/profile", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func postProfileMultipart(t *testing.T, r *gin.Engine, fields map[string]string, avatar []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	if avatar != nil {
		part, err := writer.CreateFormFile("avatar", "avatar.png")
		require.NoError(t, err)
		_, err = part.Write(avatar)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/profile", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestUpdateProfileStaleAdminTokenDenied(t *testing.T) {
	service := new(MockUserService)
	avatars := &stubAvatars{}
	// The token still says admin, but storage has since demoted the user.
	roles := &stubRoles{role: models.RoleUser}
	r := profileRouter(service, avatars, roles, 12, models.RoleAdmin)

	w := postProfileForm(r, url.Values{
		"user_id":   {"99"},
		"full_name": {"Someone Else"},
	})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "only edit your own profile")
	assert.Equal(t, 1, roles.lookups)
	service.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything)
}

func TestUpdateProfileAdminEditsOtherUser(t *testing.T) {
	service := new(MockUserService)
	avatars := &stubAvatars{}
	roles := &stubRoles{role: models.RoleAdmin}
	r := profileRouter(service, avatars, roles, 12, models.RoleAdmin)

	service.On("UpdateProfile", mock.Anything, mock.MatchedBy(func(u models.ProfileUpdate) bool {
		return u.UserID == 99 && u.FullName != nil && *u.FullName == "Someone Else"
	})).Return(nil)

	w := postProfileForm(r, url.Values{
		"user_id":   {"99"},
		"full_name": {"Someone Else"},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertExpectations(t)
}

func TestUpdateProfileSelfEditSkipsRoleLookup(t *testing.T) {
	service := new(MockUserService)
	avatars := &stubAvatars{}
	roles := &stubRoles{role: models.RoleUser}
	r := profileRouter(service, avatars, roles, 12, models.RoleUser)

	service.On("UpdateProfile", mock.Anything, mock.MatchedBy(func(u models.ProfileUpdate) bool {
		return u.UserID == 12
	})).Return(nil)

	w := postProfileForm(r, url.Values{
		"full_name": {"Valid Name"},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, roles.lookups, "self edits must not hit the role store")
	service.AssertExpectations(t)
}

func TestUpdateProfileRejectedFieldsNeverStoreAvatar(t *testing.T) {
	service := new(MockUserService)
	avatars := &stubAvatars{url: "/uploads/profiles/profile_12.png"}
	roles := &stubRoles{role: models.RoleUser}
	r := profileRouter(service, avatars, roles, 12, models.RoleUser)

	w := postProfileMultipart(t, r, map[string]string{
		"full_name": "<script>alert(1)</script>",
	}, []byte("\x89PNG\r\n\x1a\n fake image bytes"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid name format")
	assert.Zero(t, avatars.calls, "a rejected payload must not leave a file on disk")
	service.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything)
}

func TestUpdateProfileStoresAvatarAfterValidation(t *testing.T) {
	service := new(MockUserService)
	avatars := &stubAvatars{url: "/uploads/profiles/profile_12.png"}
	roles := &stubRoles{role: models.RoleUser}
	r := profileRouter(service, avatars, roles, 12, models.RoleUser)

	service.On("UpdateProfile", mock.Anything, mock.MatchedBy(func(u models.ProfileUpdate) bool {
		return u.UserID == 12 && u.AvatarURL != nil && *u.AvatarURL == "/uploads/profiles/profile_12.png"
	})).Return(nil)

	w := postProfileMultipart(t, r, map[string]string{
		"full_name": "Valid Name",
	}, []byte("\x89PNG\r\n\x1a\n fake image bytes"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, avatars.calls)
	service.AssertExpectations(t)
}
