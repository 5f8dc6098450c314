package uploads

import (
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kinabler/DBS401/internal/app/models"
	"github.com/Kinabler/DBS401/internal/pkg/config"
)

// Subdirectories under the upload root.
const (
	ProfilesDir = "profiles"
	MemesDir    = "memes"
)

var imageMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Leading bytes of the accepted image formats, hex-encoded. JPEG uses a
// 7-digit prefix because the fourth byte varies by variant.
var imageSignatures = []string{
	"89504e47", // PNG
	"ffd8ffe",  // JPEG
	"47494638", // GIF
	"52494646", // RIFF container (WebP)
}

var memeNameSanitizer = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// Guard enforces the upload policies: size caps, type allowlists and, for
// memes, a content signature check after the file lands on disk.
type Guard struct {
	cfg    config.UploadConfig
	logger *zap.Logger
}

func NewGuard(cfg config.UploadConfig, logger *zap.Logger) *Guard {
	return &Guard{cfg: cfg, logger: logger}
}

// EnsureDirs creates the upload directory tree at startup.
func (g *Guard) EnsureDirs() error {
	for _, sub := range []string{ProfilesDir, MemesDir} {
		dir := filepath.Join(g.cfg.Dir, sub)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create upload dir %s: %w", dir, err)
		}
	}
	return nil
}

// SaveAvatar stores a profile picture and returns its public URL path.
// The stored name is derived from the user id and the clock, never from
// the client-supplied filename.
func (g *Guard) SaveAvatar(fh *multipart.FileHeader, userID int64) (string, error) {
	if fh.Size > g.cfg.AvatarMaxBytes {
		return "", fmt.Errorf("avatar exceeds %d bytes: %w", g.cfg.AvatarMaxBytes, models.ErrUploadRejected)
	}

	contentType := fh.Header.Get("Content-Type")
	if !imageMIMETypes[contentType] {
		return "", fmt.Errorf("avatar type %q not allowed: %w", contentType, models.ErrUploadRejected)
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !imageExtensions[ext] {
		return "", fmt.Errorf("avatar extension %q not allowed: %w", ext, models.ErrUploadRejected)
	}

	name := fmt.Sprintf("profile_%d_%d%s", userID, time.Now().UnixMilli(), ext)
	dst := filepath.Join(g.cfg.Dir, ProfilesDir, name)
	if err := g.store(fh, dst); err != nil {
		return "", err
	}

	g.logger.Info("Avatar stored", zap.Int64("userID", userID), zap.String("file", name))
	return "/uploads/" + ProfilesDir + "/" + name, nil
}

// SaveMeme stores a shared image. The client name survives only as a
// sanitized suffix behind a random prefix, and the bytes must carry a
// known image signature or the stored file is removed again.
func (g *Guard) SaveMeme(fh *multipart.FileHeader) (string, error) {
	if fh.Size > g.cfg.MemeMaxBytes {
		return "", fmt.Errorf("meme exceeds %d bytes: %w", g.cfg.MemeMaxBytes, models.ErrUploadRejected)
	}

	contentType := fh.Header.Get("Content-Type")
	if !imageMIMETypes[contentType] {
		return "", fmt.Errorf("meme type %q not allowed: %w", contentType, models.ErrUploadRejected)
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !imageExtensions[ext] {
		return "", fmt.Errorf("meme extension %q not allowed: %w", ext, models.ErrUploadRejected)
	}

	base := strings.TrimSuffix(filepath.Base(fh.Filename), filepath.Ext(fh.Filename))
	base = memeNameSanitizer.ReplaceAllString(base, "")
	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "upload"
	}

	name := fmt.Sprintf("meme_%s_%s%s", uuid.NewString(), base, ext)
	dst := filepath.Join(g.cfg.Dir, MemesDir, name)
	if err := g.store(fh, dst); err != nil {
		return "", err
	}

	if err := verifyImageSignature(dst); err != nil {
		if rmErr := os.Remove(dst); rmErr != nil {
			g.logger.Error("Failed to remove rejected upload", zap.String("file", dst), zap.Error(rmErr))
		}
		g.logger.Warn("Meme rejected by signature check", zap.String("file", name))
		return "", err
	}

	g.logger.Info("Meme stored", zap.String("file", name))
	return "/uploads/" + MemesDir + "/" + name, nil
}

func (g *Guard) store(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		os.Remove(dst)
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}

// verifyImageSignature checks the stored file's leading bytes against the
// accepted image formats. The declared Content-Type is attacker-controlled;
// the bytes are not.
func verifyImageSignature(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s for verification: %w", path, err)
	}
	defer f.Close()

	header := make([]byte, 8)
	n, err := io.ReadFull(f, header)
	if err != nil && n == 0 {
		return fmt.Errorf("empty upload: %w", models.ErrUploadRejected)
	}

	sig := hex.EncodeToString(header[:n])
	for _, known := range imageSignatures {
		if strings.HasPrefix(sig, known) {
			return nil
		}
	}
	return fmt.Errorf("file content does not match an allowed image type: %w", models.ErrUploadRejected)
}
