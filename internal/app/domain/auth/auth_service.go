package auth

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/Kinabler/DBS401/internal/app/models"
	"github.com/Kinabler/DBS401/internal/pkg/config"
)

// Ensure implementation satisfies the interface
var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService defines the authentication business logic contract.
type AuthService interface {
	// Login validates credentials and returns a signed session token plus
	// the authenticated identity. Failures never reveal which check failed.
	Login(ctx context.Context, username, password string) (string, *models.UserAuth, error)
	// GetUserByID fetches an identity record.
	GetUserByID(ctx context.Context, userID int64) (*models.UserAuth, error)
	// Tokens returns the token service used for issue/verify.
	Tokens() *JWTService
}

// AuthServiceImpl provides the implementation for AuthService.
type AuthServiceImpl struct {
	logger *slog.Logger
	repo   AuthRepo
	tokens *JWTService
}

// NewAuthService creates a new authentication service instance.
func NewAuthService(repo AuthRepo, cfg *config.Config, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger: logger,
		repo:   repo,
		tokens: NewJWTService(cfg.JWT),
	}
}

// Login fetches the user, compares the bcrypt hash and issues a token.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, *models.UserAuth, error) {
	l := s.logger.With(slog.String("method", "Login"), slog.String("username", username))
	l.DebugContext(ctx, "Attempting login")

	ctx, span := otel.Tracer("AuthService").Start(ctx, "AuthService.Login", trace.WithAttributes(
		attribute.String("username", username),
	))
	defer span.End()

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		l.WarnContext(ctx, "GetUserByUsername failed", slog.Any("error", err))
		span.SetStatus(codes.Error, "User lookup failed")
		// Don't reveal whether the user exists or the password is wrong
		return "", nil, fmt.Errorf("invalid credentials: %w", models.ErrUnauthenticated)
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password))
	if err != nil {
		l.WarnContext(ctx, "Password comparison failed", slog.Int64("userID", user.ID))
		span.SetStatus(codes.Error, "Password mismatch")
		return "", nil, fmt.Errorf("invalid credentials: %w", models.ErrUnauthenticated)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		l.ErrorContext(ctx, "Failed to generate token", slog.Int64("userID", user.ID), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Token generation failed")
		return "", nil, fmt.Errorf("internal error generating token: %w", err)
	}

	span.SetStatus(codes.Ok, "Login successful")
	l.InfoContext(ctx, "Login successful", slog.Int64("userID", user.ID))
	return token, user, nil
}

func (s *AuthServiceImpl) GetUserByID(ctx context.Context, userID int64) (*models.UserAuth, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to fetch user by ID", slog.Any("error", err), slog.Int64("userID", userID))
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return user, nil
}

func (s *AuthServiceImpl) Tokens() *JWTService {
	return s.tokens
}

// HashPassword hashes a password using bcrypt. Used by seed tooling and tests.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}
