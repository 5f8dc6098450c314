package user

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Kinabler/DBS401/internal/app/domain/auth"
	"github.com/Kinabler/DBS401/internal/app/middleware"
	"github.com/Kinabler/DBS401/internal/app/models"
	"github.com/Kinabler/DBS401/internal/app/validator"
)

// AvatarStorer stores a validated profile picture and returns its public
// URL path. Satisfied by the upload guard.
type AvatarStorer interface {
	SaveAvatar(fh *multipart.FileHeader, userID int64) (string, error)
}

// RoleResolver answers the caller's current role from storage. Satisfied
// by the middleware role resolver so handlers and route gates share one
// lookup path.
type RoleResolver interface {
	Resolve(ctx context.Context, userID int64) (string, error)
}

type Handlers struct {
	service UserService
	avatars AvatarStorer
	roles   RoleResolver
	logger  *zap.Logger
}

func NewHandlers(service UserService, avatars AvatarStorer, roles RoleResolver, logger *zap.Logger) *Handlers {
	return &Handlers{
		service: service,
		avatars: avatars,
		roles:   roles,
		logger:  logger,
	}
}

// ListUsersHandler returns the account directory. The route is admin-gated
// by middleware; this handler only renders.
func (h *Handlers) ListUsersHandler(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

// ShowProfileHandler returns the authenticated user's own profile.
func (h *Handlers) ShowProfileHandler(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	profile, err := h.service.GetProfile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}
		h.logger.Error("Failed to fetch profile", zap.Int64("userID", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// UpdateProfileHandler validates and applies a profile edit. Regular users
// may only edit themselves; admins may target another user via the form.
func (h *Handlers) UpdateProfileHandler(c *gin.Context) {
	actorID := middleware.GetUserIDFromContext(c)
	if actorID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	targetID := actorID
	if raw, supplied := c.GetPostForm("user_id"); supplied && raw != "" {
		parsed, err := validator.ValidateUserID(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
			return
		}
		if parsed != actorID {
			// The token's role claim can be stale after a demotion, so the
			// role comes from storage, same as the admin route gate.
			role, roleErr := h.roles.Resolve(c.Request.Context(), actorID)
			if roleErr != nil {
				h.logger.Error("Role resolution failed", zap.Int64("actorID", actorID), zap.Error(roleErr))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
				return
			}
			if role != models.RoleAdmin {
				h.logger.Warn("Profile edit on another user denied",
					zap.Int64("actorID", actorID), zap.Int64("targetID", parsed))
				c.JSON(http.StatusForbidden, gin.H{"error": "You can only edit your own profile"})
				return
			}
		}
		targetID = parsed
	}

	input := validator.ProfileInput{
		UserID:    strconv.FormatInt(targetID, 10),
		FullName:  formValue(c, "full_name"),
		Address:   formValue(c, "address"),
		Phone:     formValue(c, "phone_number"),
		Hobbies:   formValue(c, "hobbies"),
		Birthday:  formValue(c, "birthday"),
		Gender:    formValue(c, "gender"),
		AvatarURL: formValue(c, "avatar_url"),
	}

	update, err := validator.ValidateProfile(input)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	// The avatar file is only written once the text fields have passed
	// validation, so a rejected payload never leaves a file behind. It
	// replaces any avatar_url field from the same form.
	if fh, fileErr := c.FormFile("avatar"); fileErr == nil {
		avatarURL, saveErr := h.avatars.SaveAvatar(fh, targetID)
		if saveErr != nil {
			if errors.Is(saveErr, models.ErrUploadRejected) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Only image files up to 5MB are allowed"})
				return
			}
			h.logger.Error("Avatar upload failed", zap.Int64("userID", targetID), zap.Error(saveErr))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store avatar"})
			return
		}
		update.AvatarURL = &avatarURL
	}

	if err := h.service.UpdateProfile(c.Request.Context(), update); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}
		h.logger.Error("Failed to update profile", zap.Int64("userID", targetID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	if auth.WantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"status": "updated", "user_id": targetID})
		return
	}
	c.Redirect(http.StatusFound, "/profile")
}

// formValue distinguishes "field absent" (nil) from "field sent empty".
func formValue(c *gin.Context, name string) *string {
	if v, ok := c.GetPostForm(name); ok {
		return &v
	}
	return nil
}
