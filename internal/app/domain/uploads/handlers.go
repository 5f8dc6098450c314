package uploads

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Kinabler/DBS401/internal/app/domain/auth"
	"github.com/Kinabler/DBS401/internal/app/domain/user"
	"github.com/Kinabler/DBS401/internal/app/middleware"
	"github.com/Kinabler/DBS401/internal/app/models"
	"github.com/Kinabler/DBS401/internal/pkg/config"
)

type Handlers struct {
	guard       *Guard
	userService user.UserService
	cfg         *config.Config
	logger      *zap.Logger
}

func NewHandlers(guard *Guard, userService user.UserService, cfg *config.Config, logger *zap.Logger) *Handlers {
	return &Handlers{
		guard:       guard,
		userService: userService,
		cfg:         cfg,
		logger:      logger,
	}
}

// UploadAvatarHandler stores a new profile picture for the authenticated
// user and records its path on the profile.
func (h *Handlers) UploadAvatarHandler(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	fh, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No avatar file provided"})
		return
	}

	avatarURL, err := h.guard.SaveAvatar(fh, userID)
	if err != nil {
		if errors.Is(err, models.ErrUploadRejected) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Only image files up to 5MB are allowed"})
			return
		}
		h.logger.Error("Avatar upload failed", zap.Int64("userID", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store avatar"})
		return
	}

	if err := h.userService.SetAvatar(c.Request.Context(), userID, avatarURL); err != nil {
		h.logger.Error("Failed to record avatar", zap.Int64("userID", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	if auth.WantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"avatar_url": avatarURL})
		return
	}
	c.Redirect(http.StatusFound, "/profile")
}

// UploadMemeHandler stores a shared image for the meme board.
func (h *Handlers) UploadMemeHandler(c *gin.Context) {
	fh, err := c.FormFile("meme")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No meme file provided"})
		return
	}

	memeURL, err := h.guard.SaveMeme(fh)
	if err != nil {
		if errors.Is(err, models.ErrUploadRejected) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Only image files up to 10MB are allowed"})
			return
		}
		h.logger.Error("Meme upload failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": memeURL})
}

// ServeUploadHandler serves stored files. The requested path is resolved
// against the upload root and must stay inside it.
func (h *Handlers) ServeUploadHandler(c *gin.Context) {
	requested := c.Param("filepath")

	root, err := filepath.Abs(h.cfg.Upload.Dir)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}

	full, err := filepath.Abs(filepath.Join(root, filepath.Clean("/"+requested)))
	if err != nil || (full != root && !strings.HasPrefix(full, root+string(os.PathSeparator))) {
		h.logger.Warn("Upload path escape attempt", zap.String("path", requested), zap.String("ip", c.ClientIP()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file path"})
		return
	}

	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}

	// Never execute or render uploads as HTML.
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Content-Disposition", "inline")
	c.File(full)
}
