package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kinabler/DBS401/internal/app/models"
)

var _ UserRepo = (*PostgresUserRepo)(nil)

type UserRepo interface {
	// ListUsers returns every account with its profile name, newest first.
	ListUsers(ctx context.Context) ([]models.UserSummary, error)
	// GetProfileByUserID fetches the directory entry of one user.
	GetProfileByUserID(ctx context.Context, userID int64) (*models.UserProfile, error)
	// UpdateProfile writes only the fields present in the update.
	UpdateProfile(ctx context.Context, update models.ProfileUpdate) error
}

// DBTX is the slice of pgxpool.Pool this repository needs. Keeping it an
// interface lets tests substitute a mock pool.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresUserRepo struct {
	logger *slog.Logger
	pgpool DBTX
}

func NewPostgresUserRepo(pgpool DBTX, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// ListUsers implements user.UserRepo.
func (r *PostgresUserRepo) ListUsers(ctx context.Context) ([]models.UserSummary, error) {
	ctx, span := otel.Tracer("UserRepository").Start(ctx, "ListUsers")
	defer span.End()

	query := `
		SELECT u.id, u.username, COALESCE(u.email, ''), u.role,
		       COALESCE(p.full_name, ''), u.created_at
		FROM users u
		LEFT JOIN user_profiles p ON p.user_id = u.id
		ORDER BY u.created_at DESC, u.id DESC`

	rows, err := r.pgpool.Query(ctx, query)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error listing users", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("database error listing users: %w", err)
	}
	defer rows.Close()

	var users []models.UserSummary
	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.FullName, &u.CreatedAt); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Row scan failed")
			return nil, fmt.Errorf("database error scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Rows iteration failed")
		return nil, fmt.Errorf("database error iterating users: %w", err)
	}

	span.SetAttributes(attribute.Int("user_count", len(users)))
	return users, nil
}

// GetProfileByUserID implements user.UserRepo.
func (r *PostgresUserRepo) GetProfileByUserID(ctx context.Context, userID int64) (*models.UserProfile, error) {
	ctx, span := otel.Tracer("UserRepository").Start(ctx, "GetProfileByUserID",
		trace.WithAttributes(attribute.Int64("user_id", userID)))
	defer span.End()

	var profile models.UserProfile
	query := `
		SELECT user_id, COALESCE(full_name, ''), COALESCE(address, ''),
		       COALESCE(phone_number, ''), COALESCE(hobbies, ''),
		       birthday, COALESCE(gender, ''), COALESCE(avatar_url, ''), join_date
		FROM user_profiles WHERE user_id = $1`
	err := r.pgpool.QueryRow(ctx, query, userID).Scan(
		&profile.UserID, &profile.FullName, &profile.Address, &profile.Phone,
		&profile.Hobbies, &profile.Birthday, &profile.Gender, &profile.AvatarURL,
		&profile.JoinDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "Profile not found")
			return nil, fmt.Errorf("profile for user %d not found: %w", userID, models.ErrNotFound)
		}
		r.logger.ErrorContext(ctx, "Error fetching profile", slog.Any("error", err), slog.Int64("userID", userID))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("database error fetching profile: %w", err)
	}
	return &profile, nil
}

// UpdateProfile implements user.UserRepo. The SET clause is built only from
// the fields present in the update, so an absent field is never touched.
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, update models.ProfileUpdate) error {
	ctx, span := otel.Tracer("UserRepository").Start(ctx, "UpdateProfile",
		trace.WithAttributes(attribute.Int64("user_id", update.UserID)))
	defer span.End()

	builder := psql.Update("user_profiles")
	fields := 0

	if update.FullName != nil {
		builder = builder.Set("full_name", *update.FullName)
		fields++
	}
	if update.Address != nil {
		builder = builder.Set("address", *update.Address)
		fields++
	}
	if update.Phone != nil {
		builder = builder.Set("phone_number", *update.Phone)
		fields++
	}
	if update.Hobbies != nil {
		builder = builder.Set("hobbies", *update.Hobbies)
		fields++
	}
	if update.Birthday != nil {
		builder = builder.Set("birthday", *update.Birthday)
		fields++
	}
	if update.Gender != nil {
		builder = builder.Set("gender", *update.Gender)
		fields++
	}
	if update.AvatarURL != nil {
		builder = builder.Set("avatar_url", *update.AvatarURL)
		fields++
	}

	if fields == 0 {
		span.SetStatus(codes.Ok, "Nothing to update")
		return nil
	}

	builder = builder.
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"user_id": update.UserID})

	query, args, err := builder.ToSql()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Query build failed")
		return fmt.Errorf("error building profile update: %w", err)
	}

	tag, err := r.pgpool.Exec(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error updating profile", slog.Any("error", err), slog.Int64("userID", update.UserID))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database update failed")
		return fmt.Errorf("database error updating profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Ok, "Profile not found")
		return fmt.Errorf("profile for user %d not found: %w", update.UserID, models.ErrNotFound)
	}

	span.SetAttributes(attribute.Int("fields_updated", fields))
	return nil
}
