package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/onboardhq/pulse-backend/internal/handlers"
	"github.com/onboardhq/pulse-backend/internal/middleware"
	"github.com/onboardhq/pulse-backend/internal/utils"
)

type RouterConfig struct {
	AuthMiddleware      *middleware.AuthMiddleware
	TriggerMiddleware   *middleware.TriggerMiddleware
	AlertHandler        *handlers.AlertHandler
	SuggestionHandler   *handlers.SuggestionHandler
	NotificationHandler *handlers.NotificationHandler
	DashboardHandler    *handlers.DashboardHandler
	ReportHandler       *handlers.ReportHandler
	MonitoringHandler   *handlers.MonitoringHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("pulse-backend"))

	// Cors
	allowOrigins := strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000,http://localhost:5173", nil), ",")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Monitor-Token"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	// ===============
	// || Triggers  ||
	// ===============
	internal := router.Group("/internal/monitoring")
	internal.Use(cfg.TriggerMiddleware.RequireToken())
	internal.POST("/continuous", cfg.MonitoringHandler.TriggerContinuous)
	internal.POST("/hourly", cfg.MonitoringHandler.TriggerHourly)
	internal.POST("/daily", cfg.MonitoringHandler.TriggerDaily)

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	// Notifications (any authenticated person)
	api.GET("/notifications", cfg.NotificationHandler.List)
	api.GET("/notifications/unread_count", cfg.NotificationHandler.UnreadCount)
	api.POST("/notifications/:id/read", cfg.NotificationHandler.MarkRead)
	api.POST("/notifications/read_all", cfg.NotificationHandler.MarkAllRead)

	// Admin surface
	admin := api.Group("/")
	admin.Use(cfg.AuthMiddleware.RequireAdmin())
	// Alerts
	admin.GET("/alerts", cfg.AlertHandler.List)
	admin.POST("/alerts/:id/resolve", cfg.AlertHandler.Resolve)
	// Suggestions
	admin.GET("/suggestions", cfg.SuggestionHandler.List)
	admin.POST("/suggestions/:id/approve", cfg.SuggestionHandler.Approve)
	admin.POST("/suggestions/:id/reject", cfg.SuggestionHandler.Reject)
	// Dashboard
	admin.GET("/dashboard", cfg.DashboardHandler.Summary)
	// Reports
	admin.GET("/reports/latest", cfg.ReportHandler.Latest)
	admin.GET("/reports/:id", cfg.ReportHandler.Get)

	return router
}
