package main

import (
	"context"
	"fmt"
	"os"

	redisclient "github.com/onboardhq/pulse-backend/internal/clients/redis"
	"github.com/onboardhq/pulse-backend/internal/db"
	"github.com/onboardhq/pulse-backend/internal/handlers"
	"github.com/onboardhq/pulse-backend/internal/logger"
	"github.com/onboardhq/pulse-backend/internal/middleware"
	"github.com/onboardhq/pulse-backend/internal/observability"
	"github.com/onboardhq/pulse-backend/internal/repos"
	"github.com/onboardhq/pulse-backend/internal/server"
	"github.com/onboardhq/pulse-backend/internal/services"
	"github.com/onboardhq/pulse-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	monitorToken := utils.GetEnv("MONITOR_TRIGGER_TOKEN", "", log)

	// Tracing
	ctx := context.Background()
	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "pulse-backend",
		Environment: utils.GetEnv("APP_ENV", "development", nil),
		Version:     utils.GetEnv("APP_VERSION", "dev", nil),
	})
	if shutdownOTel != nil {
		defer shutdownOTel(ctx)
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	tenantRepo := repos.NewTenantRepo(thePG, log)
	personRepo := repos.NewPersonRepo(thePG, log)
	sentimentRepo := repos.NewSentimentRecordRepo(thePG, log)
	trackRepo := repos.NewTrackProgressRepo(thePG, log)
	activityRepo := repos.NewActivityRecordRepo(thePG, log)
	annotationRepo := repos.NewAnnotationRepo(thePG, log)
	alertRepo := repos.NewAlertRepo(thePG, log)
	suggestionRepo := repos.NewSuggestionRepo(thePG, log)
	notificationRepo := repos.NewNotificationRepo(thePG, log)
	reportRepo := repos.NewReportRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	cooldownStore, err := redisclient.NewCooldownStore(log)
	if err != nil {
		log.Warn("Could not init cooldown store, alert dedup will use the database only", "error", err)
		cooldownStore = nil
	}
	openaiClient, err := services.NewOpenAIClient(log)
	if err != nil {
		log.Warn("Could not init OpenAIClient, insights will use the deterministic fallback", "error", err)
		openaiClient = nil
	}

	riskScorer := services.NewRiskScorer(log, sentimentRepo, trackRepo, annotationRepo, activityRepo)
	alertManager := services.NewAlertManager(log, alertRepo, suggestionRepo, cooldownStore)
	dispatcher, err := services.NewNotificationDispatcher(log, notificationRepo, personRepo)
	if err != nil {
		log.Error("Could not init NotificationDispatcher", "error", err)
		os.Exit(1)
	}
	patternDetector := services.NewPatternDetector(log, alertRepo, annotationRepo)
	metricsCollector := services.NewMetricsCollector(log, personRepo, trackRepo, sentimentRepo, alertRepo, suggestionRepo)
	insightGenerator := services.NewInsightGenerator(log, openaiClient)
	scheduler := services.NewMonitoringScheduler(
		log,
		tenantRepo,
		personRepo,
		sentimentRepo,
		trackRepo,
		suggestionRepo,
		reportRepo,
		riskScorer,
		alertManager,
		dispatcher,
		patternDetector,
		metricsCollector,
		insightGenerator,
	)
	dashboardService := services.NewDashboardService(log, personRepo, alertRepo, suggestionRepo, reportRepo)

	// Handlers
	log.Info("Setting up handlers from main...")
	alertHandler := handlers.NewAlertHandler(alertManager)
	suggestionHandler := handlers.NewSuggestionHandler(alertManager, suggestionRepo)
	notificationHandler := handlers.NewNotificationHandler(dispatcher)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	reportHandler := handlers.NewReportHandler(reportRepo)
	monitoringHandler := handlers.NewMonitoringHandler(scheduler)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, jwtSecretKey)
	triggerMiddleware := middleware.NewTriggerMiddleware(log, monitorToken)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:      authMiddleware,
		TriggerMiddleware:   triggerMiddleware,
		AlertHandler:        alertHandler,
		SuggestionHandler:   suggestionHandler,
		NotificationHandler: notificationHandler,
		DashboardHandler:    dashboardHandler,
		ReportHandler:       reportHandler,
		MonitoringHandler:   monitoringHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
