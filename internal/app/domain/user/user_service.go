package user

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Kinabler/DBS401/internal/app/models"
)

// Ensure implementation satisfies the interface
var _ UserService = (*ServiceUserImpl)(nil)

// UserService defines the business logic contract for user operations.
type UserService interface {
	ListUsers(ctx context.Context) ([]models.UserSummary, error)
	GetProfile(ctx context.Context, userID int64) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, update models.ProfileUpdate) error
	// SetAvatar records a freshly stored avatar path on the profile.
	SetAvatar(ctx context.Context, userID int64, avatarURL string) error
}

// ServiceUserImpl provides the implementation for UserService.
type ServiceUserImpl struct {
	logger *zap.Logger
	repo   UserRepo
}

// NewUserService creates a new user service instance.
func NewUserService(repo UserRepo, logger *zap.Logger) *ServiceUserImpl {
	return &ServiceUserImpl{
		logger: logger,
		repo:   repo,
	}
}

// ListUsers returns the account directory for the admin view.
func (s *ServiceUserImpl) ListUsers(ctx context.Context) ([]models.UserSummary, error) {
	l := s.logger.With(zap.String("method", "ListUsers"))
	l.Debug("Listing users")

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		l.Error("Failed to list users", zap.Error(err))
		return nil, fmt.Errorf("error listing users: %w", err)
	}

	l.Info("Users listed", zap.Int("count", len(users)))
	return users, nil
}

// GetProfile retrieves a user's profile by ID.
func (s *ServiceUserImpl) GetProfile(ctx context.Context, userID int64) (*models.UserProfile, error) {
	l := s.logger.With(zap.String("method", "GetProfile"), zap.Int64("userID", userID))
	l.Debug("Fetching user profile")

	profile, err := s.repo.GetProfileByUserID(ctx, userID)
	if err != nil {
		l.Error("Failed to fetch user profile", zap.Error(err))
		return nil, fmt.Errorf("error fetching user profile: %w", err)
	}
	return profile, nil
}

// UpdateProfile applies a sanitized partial update.
func (s *ServiceUserImpl) UpdateProfile(ctx context.Context, update models.ProfileUpdate) error {
	l := s.logger.With(zap.String("method", "UpdateProfile"), zap.Int64("userID", update.UserID))
	l.Debug("Updating user profile")

	if err := s.repo.UpdateProfile(ctx, update); err != nil {
		l.Error("Failed to update user profile", zap.Error(err))
		return fmt.Errorf("error updating user profile: %w", err)
	}

	l.Info("User profile updated successfully")
	return nil
}

// SetAvatar writes only the avatar path on the profile row.
func (s *ServiceUserImpl) SetAvatar(ctx context.Context, userID int64, avatarURL string) error {
	l := s.logger.With(zap.String("method", "SetAvatar"), zap.Int64("userID", userID))

	err := s.repo.UpdateProfile(ctx, models.ProfileUpdate{
		UserID:    userID,
		AvatarURL: &avatarURL,
	})
	if err != nil {
		l.Error("Failed to set avatar", zap.Error(err))
		return fmt.Errorf("error setting avatar: %w", err)
	}

	l.Info("Avatar updated", zap.String("avatarURL", avatarURL))
	return nil
}
