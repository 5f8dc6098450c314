package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kinabler/DBS401/internal/app/models"
)

var _ AuthRepo = (*PostgresAuthRepo)(nil)

type AuthRepo interface {
	// GetUserByUsername fetches the identity record used for login.
	GetUserByUsername(ctx context.Context, username string) (*models.UserAuth, error)
	// GetUserByID fetches the identity record by numeric id.
	GetUserByID(ctx context.Context, userID int64) (*models.UserAuth, error)
	// GetUserRole resolves the current role of a user from storage.
	GetUserRole(ctx context.Context, userID int64) (string, error)
}

type PostgresAuthRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresAuthRepo(pgpool *pgxpool.Pool, logger *slog.Logger) *PostgresAuthRepo {
	return &PostgresAuthRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

// GetUserByUsername implements auth.AuthRepo.
func (r *PostgresAuthRepo) GetUserByUsername(ctx context.Context, username string) (*models.UserAuth, error) {
	ctx, span := otel.Tracer("AuthRepository").Start(ctx, "GetUserByUsername",
		trace.WithAttributes(attribute.String("username", username)))
	defer span.End()

	var user models.UserAuth
	query := `SELECT id, username, COALESCE(email, ''), password_hash, role, created_at FROM users WHERE username = $1`
	err := r.pgpool.QueryRow(ctx, query, username).Scan(
		&user.ID, &user.Username, &user.Email, &user.Password, &user.Role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "User not found")
			return nil, fmt.Errorf("user %s not found: %w", username, models.ErrNotFound)
		}
		r.logger.ErrorContext(ctx, "Error fetching user by username", slog.Any("error", err), slog.String("username", username))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("database error fetching user: %w", err)
	}
	return &user, nil
}

// GetUserByID implements auth.AuthRepo.
func (r *PostgresAuthRepo) GetUserByID(ctx context.Context, userID int64) (*models.UserAuth, error) {
	ctx, span := otel.Tracer("AuthRepository").Start(ctx, "GetUserByID",
		trace.WithAttributes(attribute.Int64("user_id", userID)))
	defer span.End()

	var user models.UserAuth
	query := `SELECT id, username, COALESCE(email, ''), password_hash, role, created_at FROM users WHERE id = $1`
	err := r.pgpool.QueryRow(ctx, query, userID).Scan(
		&user.ID, &user.Username, &user.Email, &user.Password, &user.Role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "User not found")
			return nil, fmt.Errorf("user with ID %d not found: %w", userID, models.ErrNotFound)
		}
		r.logger.ErrorContext(ctx, "Error fetching user by ID", slog.Any("error", err), slog.Int64("userID", userID))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("database error fetching user by ID: %w", err)
	}
	return &user, nil
}

// GetUserRole implements auth.AuthRepo.
func (r *PostgresAuthRepo) GetUserRole(ctx context.Context, userID int64) (string, error) {
	ctx, span := otel.Tracer("AuthRepository").Start(ctx, "GetUserRole",
		trace.WithAttributes(attribute.Int64("user_id", userID)))
	defer span.End()

	var role string
	query := `SELECT role FROM users WHERE id = $1`
	err := r.pgpool.QueryRow(ctx, query, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "User not found")
			return "", fmt.Errorf("user with ID %d not found: %w", userID, models.ErrNotFound)
		}
		r.logger.ErrorContext(ctx, "Error fetching user role", slog.Any("error", err), slog.Int64("userID", userID))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return "", fmt.Errorf("database error fetching role: %w", err)
	}
	return role, nil
}
