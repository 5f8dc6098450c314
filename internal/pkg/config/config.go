package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type PostgresConfig struct {
	Host     string
	Port     string
	DB       string
	Username string
	Password string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type RepositoriesConfig struct {
	Postgres PostgresConfig
}

type JWTConfig struct {
	SecretKey string
	TokenTTL  time.Duration
	Issuer    string
	Audience  string
}

type UploadConfig struct {
	// Dir is the root of all stored uploads; avatars live in Dir/profiles,
	// memes in Dir/memes.
	Dir            string
	AvatarMaxBytes int64
	MemeMaxBytes   int64
}

type SeedConfig struct {
	AdminPassword string
	DemoPassword  string
}

type Config struct {
	Repositories RepositoriesConfig
	JWT          JWTConfig
	Upload       UploadConfig
	Seed         SeedConfig
	ServerPort   string
	MetricsPort  string
	Env          string
}

// IsProduction reports whether the process runs with production hardening
// (secure cookies, release mode).
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func Load() (*Config, error) {
	cfg := &Config{
		Repositories: RepositoriesConfig{
			Postgres: PostgresConfig{
				Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
				Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
				DB:       getEnvOrDefault("POSTGRES_DB", "userdir"),
				Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
				Password: getEnvOrDefault("POSTGRES_PASSWORD", ""),
				SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
				MaxConns: 30,
				MinConns: 5,
			},
		},
		JWT: JWTConfig{
			SecretKey: os.Getenv("JWT_SECRET_KEY"),
			TokenTTL:  time.Hour,
			Issuer:    getEnvOrDefault("JWT_ISSUER", "userdir"),
			Audience:  getEnvOrDefault("JWT_AUDIENCE", "userdir-web"),
		},
		Upload: UploadConfig{
			Dir:            getEnvOrDefault("UPLOAD_DIR", "./uploads"),
			AvatarMaxBytes: getEnvInt64OrDefault("UPLOAD_AVATAR_MAX_BYTES", 5<<20),
			MemeMaxBytes:   getEnvInt64OrDefault("UPLOAD_MEME_MAX_BYTES", 10<<20),
		},
		Seed: SeedConfig{
			AdminPassword: getEnvOrDefault("SEED_ADMIN_PASSWORD", "admin_password_123"),
			DemoPassword:  getEnvOrDefault("SEED_DEMO_PASSWORD", "user_password_123"),
		},
		ServerPort:  getEnvOrDefault("SERVER_PORT", "8081"),
		MetricsPort: getEnvOrDefault("METRICS_PORT", "9092"),
		Env:         getEnvOrDefault("APP_ENV", "development"),
	}

	if cfg.Repositories.Postgres.Password == "" {
		return nil, fmt.Errorf("POSTGRES_PASSWORD environment variable is required")
	}
	if cfg.JWT.SecretKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is required")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
