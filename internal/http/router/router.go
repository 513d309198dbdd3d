package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/recorever/recorever-backend/internal/config"
	"github.com/recorever/recorever-backend/internal/http/handlers"
	"github.com/recorever/recorever-backend/internal/http/middleware"
	"github.com/recorever/recorever-backend/internal/metrics"
	"github.com/recorever/recorever-backend/internal/service"
)

// SetupRouter собирает все маршруты приложения.
func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	reportHandler *handlers.ReportHandler,
	claimHandler *handlers.ClaimHandler,
	matchHandler *handlers.MatchHandler,
	notificationHandler *handlers.NotificationHandler,
	mediaHandler *handlers.MediaHandler,
	dashboardHandler *handlers.DashboardHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	seedHandler *handlers.SeedHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.StaticFS("/media", http.Dir(cfg.MediaStoragePath))

	api := r.Group("/api")

	// Генерация демо-данных доступна только в development
	if cfg.Env == "development" {
		api.POST("/seed", seedHandler.Seed)
	}

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	// Публичные маршруты
	api.GET("/ws", wsHandler.Handle)
	api.GET("/reports", reportHandler.List)
	api.GET("/reports/:id", middleware.UUIDValidator("id"), reportHandler.Get)
	api.GET("/reports/:id/images", middleware.UUIDValidator("id"), mediaHandler.List)
	api.GET("/images/:id/file", middleware.UUIDValidator("id"), mediaHandler.Download)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.GET("/auth/me", authHandler.Me)

		protected.POST("/reports", middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod), reportHandler.Create)
		protected.GET("/reports/my", reportHandler.ListMine)
		protected.PUT("/reports/:id", middleware.UUIDValidator("id"), reportHandler.Update)
		protected.DELETE("/reports/:id", middleware.UUIDValidator("id"), reportHandler.Delete)
		protected.GET("/reports/:id/schedule", middleware.UUIDValidator("id"), reportHandler.Schedule)
		protected.POST("/reports/:id/images", middleware.UUIDValidator("id"), mediaHandler.Upload)
		protected.DELETE("/images/:id", middleware.UUIDValidator("id"), mediaHandler.Delete)

		protected.POST("/claims", claimHandler.Create)
		protected.GET("/claims/my", claimHandler.ListMine)
		protected.GET("/claims/code/:reportId", middleware.UUIDValidator("reportId"), claimHandler.ClaimCode)

		protected.GET("/matches/:id", middleware.UUIDValidator("id"), matchHandler.Get)

		protected.GET("/notifications", notificationHandler.List)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllRead)
	}

	// Административные маршруты
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager), middleware.AdminOnly())
	{
		admin.GET("/reports/pending", reportHandler.ListPending)
		admin.POST("/reports/:id/decision", middleware.UUIDValidator("id"), reportHandler.Decide)
		admin.GET("/reports/:id/claims", middleware.UUIDValidator("id"), claimHandler.ListByReport)

		admin.GET("/claims", claimHandler.ListAll)
		admin.POST("/claims/:id/decision", middleware.UUIDValidator("id"), claimHandler.Decide)

		admin.GET("/matches", matchHandler.List)
		admin.POST("/matches/:id/status", middleware.UUIDValidator("id"), matchHandler.UpdateStatus)

		admin.GET("/dashboard", dashboardHandler.Stats)
	}

	return r
}
