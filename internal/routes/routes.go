package routes

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Kinabler/DBS401/internal/app/domain/auth"
	"github.com/Kinabler/DBS401/internal/app/domain/uploads"
	"github.com/Kinabler/DBS401/internal/app/domain/user"
	"github.com/Kinabler/DBS401/internal/app/middleware"
	"github.com/Kinabler/DBS401/internal/pkg/config"
)

type AppHandlers struct {
	Auth    *auth.AuthHandlers
	User    *user.Handlers
	Uploads *uploads.Handlers

	authService auth.AuthService
	roles       *middleware.RoleResolver
}

// Setup wires repositories, services and handlers onto the router.
func Setup(r *gin.Engine, dbPool *pgxpool.Pool, cfg *config.Config, log *zap.Logger) {
	handlers, err := setupDependencies(dbPool, cfg, log)
	if err != nil {
		log.Fatal("Failed to setup dependencies", zap.Error(err))
	}
	setupRouter(r, handlers, dbPool, log)
}

func setupDependencies(dbPool *pgxpool.Pool, cfg *config.Config, log *zap.Logger) (*AppHandlers, error) {
	slogLog := slog.Default()

	authRepo := auth.NewPostgresAuthRepo(dbPool, slogLog)
	authService := auth.NewAuthService(authRepo, cfg, slogLog)

	userRepo := user.NewPostgresUserRepo(dbPool, slogLog)
	userService := user.NewUserService(userRepo, log)

	guard := uploads.NewGuard(cfg.Upload, log)
	if err := guard.EnsureDirs(); err != nil {
		return nil, err
	}

	roles := middleware.NewRoleResolver(authRepo, middleware.NewRoleCache())

	return &AppHandlers{
		Auth:        auth.NewAuthHandlers(authService, cfg, log),
		User:        user.NewHandlers(userService, guard, roles, log),
		Uploads:     uploads.NewHandlers(guard, userService, cfg, log),
		authService: authService,
		roles:       roles,
	}, nil
}

func setupRouter(r *gin.Engine, h *AppHandlers, dbPool *pgxpool.Pool, log *zap.Logger) {
	r.GET("/health", func(c *gin.Context) {
		if err := dbPool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/login", h.Auth.ShowLoginPage)
	r.POST("/login", h.Auth.LoginHandler)
	r.GET("/logout", h.Auth.LogoutHandler)

	tokens := h.authService.Tokens()

	authorized := r.Group("/")
	authorized.Use(middleware.AuthMiddleware(tokens, log))
	{
		authorized.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusFound, "/profile")
		})

		authorized.GET("/profile", h.User.ShowProfileHandler)
		authorized.POST("/profile", h.User.UpdateProfileHandler)
		authorized.POST("/profile/avatar", h.Uploads.UploadAvatarHandler)

		authorized.POST("/memes", h.Uploads.UploadMemeHandler)
		authorized.GET("/uploads/*filepath", h.Uploads.ServeUploadHandler)

		admin := authorized.Group("/")
		admin.Use(middleware.RequireAdmin(h.roles, log))
		{
			admin.GET("/users", h.User.ListUsersHandler)
		}
	}
}
