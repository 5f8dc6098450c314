package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// SeedDB is the slice of pgxpool.Pool seeding needs; tests substitute a mock.
type SeedDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SeedUser describes one account to create at startup.
type SeedUser struct {
	Username string
	Email    string
	Password string
	Role     string
}

// EnsureSeedUsers creates the initial accounts when they are absent. The
// password is hashed here, with the hash function the login path verifies
// against, so a seeded credential always works.
func EnsureSeedUsers(ctx context.Context, db SeedDB, hashPassword func(string) (string, error), users []SeedUser, logger *zap.Logger) error {
	for _, u := range users {
		var exists bool
		err := db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, u.Username).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check seed user %s: %w", u.Username, err)
		}
		if exists {
			continue
		}

		hash, err := hashPassword(u.Password)
		if err != nil {
			return fmt.Errorf("failed to hash seed password for %s: %w", u.Username, err)
		}

		_, err = db.Exec(ctx,
			`INSERT INTO users (username, email, password_hash, role) VALUES ($1, $2, $3, $4) ON CONFLICT (username) DO NOTHING`,
			u.Username, u.Email, hash, u.Role)
		if err != nil {
			return fmt.Errorf("failed to insert seed user %s: %w", u.Username, err)
		}

		_, err = db.Exec(ctx,
			`INSERT INTO user_profiles (user_id, full_name) SELECT id, username FROM users WHERE username = $1 ON CONFLICT (user_id) DO NOTHING`,
			u.Username)
		if err != nil {
			return fmt.Errorf("failed to insert seed profile for %s: %w", u.Username, err)
		}

		logger.Info("Seed user created", zap.String("username", u.Username), zap.String("role", u.Role))
	}
	return nil
}
