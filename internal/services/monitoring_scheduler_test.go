package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/onboardhq/pulse-backend/internal/repos"
	"github.com/onboardhq/pulse-backend/internal/types"
)

func newSchedulerStack(t *testing.T) (MonitoringScheduler, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	log := newTestLogger()

	tenantRepo := repos.NewTenantRepo(db, log)
	personRepo := repos.NewPersonRepo(db, log)
	sentimentRepo := repos.NewSentimentRecordRepo(db, log)
	trackRepo := repos.NewTrackProgressRepo(db, log)
	activityRepo := repos.NewActivityRecordRepo(db, log)
	annotationRepo := repos.NewAnnotationRepo(db, log)
	alertRepo := repos.NewAlertRepo(db, log)
	suggestionRepo := repos.NewSuggestionRepo(db, log)
	notificationRepo := repos.NewNotificationRepo(db, log)
	reportRepo := repos.NewReportRepo(db, log)

	scorer := NewRiskScorer(log, sentimentRepo, trackRepo, annotationRepo, activityRepo)
	alertManager := NewAlertManager(log, alertRepo, suggestionRepo, nil)
	dispatcher, err := NewNotificationDispatcher(log, notificationRepo, personRepo)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	patternDetector := NewPatternDetector(log, alertRepo, annotationRepo)
	metricsCollector := NewMetricsCollector(log, personRepo, trackRepo, sentimentRepo, alertRepo, suggestionRepo)
	insightGenerator := NewInsightGenerator(log, nil)

	scheduler := NewMonitoringScheduler(
		log,
		tenantRepo,
		personRepo,
		sentimentRepo,
		trackRepo,
		suggestionRepo,
		reportRepo,
		scorer,
		alertManager,
		dispatcher,
		patternDetector,
		metricsCollector,
		insightGenerator,
	)
	return scheduler, db
}

func seedActivity(t *testing.T, db *gorm.DB, tenantID, personID uuid.UUID, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		rec := &types.ActivityRecord{
			ID:         uuid.New(),
			TenantID:   tenantID,
			PersonID:   personID,
			OccurredAt: time.Now().UTC().Add(-time.Duration(i+1) * time.Hour),
		}
		if err := db.Create(rec).Error; err != nil {
			t.Fatalf("seed activity: %v", err)
		}
	}
}

func seedEngagedPerson(t *testing.T, db *gorm.DB, tenantID uuid.UUID, role string) *types.Person {
	t.Helper()
	person := seedPerson(t, db, tenantID, role)
	if err := db.Model(person).Updates(map[string]any{
		"last_activity_at": time.Now().UTC().Add(-time.Hour),
	}).Error; err != nil {
		t.Fatalf("update person: %v", err)
	}
	seedActivity(t, db, tenantID, person.ID, 3)
	return person
}

// A person with worsening negative sentiment, overdue tracks and a long
// silence must produce a critical alert and an admin notification on the
// continuous sweep.
func TestRunContinuous_DistressedPersonRaisesCriticalAlert(t *testing.T) {
	scheduler, db := newSchedulerStack(t)
	ctx := context.Background()
	now := time.Now().UTC()

	tenant := seedTenant(t, db)
	admin := seedEngagedPerson(t, db, tenant.ID, types.RoleAdmin)
	distressed := seedPerson(t, db, tenant.ID, types.RoleMember)
	if err := db.Model(distressed).Updates(map[string]any{
		"last_activity_at": now.Add(-10 * 24 * time.Hour),
	}).Error; err != nil {
		t.Fatalf("update person: %v", err)
	}

	for _, rec := range []*types.SentimentRecord{
		{ID: uuid.New(), TenantID: tenant.ID, PersonID: distressed.ID, Label: types.SentimentNeutral, Intensity: 0.3, CreatedAt: now.Add(-72 * time.Hour)},
		{ID: uuid.New(), TenantID: tenant.ID, PersonID: distressed.ID, Label: types.SentimentNegative, Intensity: 0.7, CreatedAt: now.Add(-24 * time.Hour)},
		{ID: uuid.New(), TenantID: tenant.ID, PersonID: distressed.ID, Label: types.SentimentVeryNegative, Intensity: 0.9, CreatedAt: now.Add(-30 * time.Minute)},
	} {
		if err := db.Create(rec).Error; err != nil {
			t.Fatalf("seed sentiment: %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		due := now.Add(-48 * time.Hour)
		track := &types.TrackProgress{
			ID:        uuid.New(),
			TenantID:  tenant.ID,
			PersonID:  distressed.ID,
			TrackName: "track",
			Status:    types.TrackInProgress,
			DueAt:     &due,
		}
		if err := db.Create(track).Error; err != nil {
			t.Fatalf("seed track: %v", err)
		}
	}

	result, err := scheduler.RunContinuous(ctx)
	if err != nil {
		t.Fatalf("run continuous: %v", err)
	}
	if result.TenantsProcessed != 1 {
		t.Fatalf("expected 1 tenant processed, got %d", result.TenantsProcessed)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("expected no tenant errors, got %+v", result.Errors)
	}
	if result.ScoresUpdated < 2 {
		t.Fatalf("expected both people rescored, got %d", result.ScoresUpdated)
	}
	if result.AlertsCreated == 0 {
		t.Fatalf("expected alerts, got none")
	}

	var refreshed types.Person
	if err := db.First(&refreshed, "id = ?", distressed.ID).Error; err != nil {
		t.Fatalf("reload person: %v", err)
	}
	if refreshed.RiskScore < 80 {
		t.Fatalf("expected critical risk score, got %.1f", refreshed.RiskScore)
	}
	if refreshed.RiskUpdatedAt == nil {
		t.Fatalf("expected risk_updated_at stamped")
	}

	var critical types.Alert
	if err := db.First(&critical, "tenant_id = ? AND person_id = ? AND category = ?",
		tenant.ID, distressed.ID, types.AlertCategoryAttritionRisk).Error; err != nil {
		t.Fatalf("expected a critical attrition alert: %v", err)
	}
	if critical.Severity != types.SeverityCritical {
		t.Fatalf("expected critical severity, got %q", critical.Severity)
	}

	var adminNotifications int64
	if err := db.Model(&types.Notification{}).
		Where("recipient_id = ? AND type = ?", admin.ID, types.NotificationTypeRiskAlert).
		Count(&adminNotifications).Error; err != nil {
		t.Fatalf("count notifications: %v", err)
	}
	if adminNotifications == 0 {
		t.Fatalf("expected the admin to be notified about the critical alert")
	}
}

func TestRunContinuous_RerunDoesNotDuplicateAlerts(t *testing.T) {
	scheduler, db := newSchedulerStack(t)
	ctx := context.Background()
	now := time.Now().UTC()

	tenant := seedTenant(t, db)
	quiet := seedPerson(t, db, tenant.ID, types.RoleMember)
	if err := db.Model(quiet).Updates(map[string]any{
		"last_activity_at": now.Add(-10 * 24 * time.Hour),
	}).Error; err != nil {
		t.Fatalf("update person: %v", err)
	}

	if _, err := scheduler.RunContinuous(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := scheduler.RunContinuous(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.AlertsCreated != 0 {
		t.Fatalf("expected rerun inside cooldown to create no alerts, got %d", second.AlertsCreated)
	}

	var inactivityAlerts int64
	if err := db.Model(&types.Alert{}).
		Where("tenant_id = ? AND category = ?", tenant.ID, types.AlertCategoryInactivity).
		Count(&inactivityAlerts).Error; err != nil {
		t.Fatalf("count alerts: %v", err)
	}
	if inactivityAlerts != 1 {
		t.Fatalf("expected 1 inactivity alert after two runs, got %d", inactivityAlerts)
	}
}

func TestRunHourly_HealthyCohortProducesNoAlerts(t *testing.T) {
	scheduler, db := newSchedulerStack(t)
	ctx := context.Background()

	tenant := seedTenant(t, db)
	seedEngagedPerson(t, db, tenant.ID, types.RoleAdmin)
	for i := 0; i < 50; i++ {
		seedEngagedPerson(t, db, tenant.ID, types.RoleMember)
	}

	result, err := scheduler.RunHourly(ctx)
	if err != nil {
		t.Fatalf("run hourly: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("expected no tenant errors, got %+v", result.Errors)
	}
	if result.ScoresUpdated != 51 {
		t.Fatalf("expected 51 scores updated, got %d", result.ScoresUpdated)
	}
	if result.AlertsCreated != 0 {
		t.Fatalf("expected no alerts for a healthy cohort, got %d", result.AlertsCreated)
	}
	if result.SuggestionsCreated != 0 {
		t.Fatalf("expected no suggestions for a healthy cohort, got %d", result.SuggestionsCreated)
	}
}

// A freshly imported cohort with no recorded signals of any kind must come out
// of the trend sweep untouched: zero scores, zero alerts, zero suggestions.
func TestRunHourly_CohortWithoutSignalsStaysQuiet(t *testing.T) {
	scheduler, db := newSchedulerStack(t)
	ctx := context.Background()

	tenant := seedTenant(t, db)
	for i := 0; i < 50; i++ {
		seedPerson(t, db, tenant.ID, types.RoleMember)
	}

	result, err := scheduler.RunHourly(ctx)
	if err != nil {
		t.Fatalf("run hourly: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("expected no tenant errors, got %+v", result.Errors)
	}
	if result.ScoresUpdated != 50 {
		t.Fatalf("expected 50 scores updated, got %d", result.ScoresUpdated)
	}
	if result.AlertsCreated != 0 {
		t.Fatalf("expected no alerts for a cohort without signals, got %d", result.AlertsCreated)
	}
	if result.SuggestionsCreated != 0 {
		t.Fatalf("expected no suggestions for a cohort without signals, got %d", result.SuggestionsCreated)
	}

	var maxScore float64
	if err := db.Model(&types.Person{}).
		Where("tenant_id = ?", tenant.ID).
		Select("COALESCE(MAX(risk_score), 0)").
		Scan(&maxScore).Error; err != nil {
		t.Fatalf("max risk score: %v", err)
	}
	if maxScore != 0 {
		t.Fatalf("expected every persisted risk score to stay 0, got max %.1f", maxScore)
	}
}

func TestRunDaily_WritesReportAndNotifiesAdmins(t *testing.T) {
	scheduler, db := newSchedulerStack(t)
	ctx := context.Background()

	tenant := seedTenant(t, db)
	admin := seedEngagedPerson(t, db, tenant.ID, types.RoleAdmin)
	seedEngagedPerson(t, db, tenant.ID, types.RoleMember)

	result, err := scheduler.RunDaily(ctx)
	if err != nil {
		t.Fatalf("run daily: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("expected no tenant errors, got %+v", result.Errors)
	}
	if result.ReportsCreated != 1 {
		t.Fatalf("expected 1 report, got %d", result.ReportsCreated)
	}
	if result.NotificationsSent != 1 {
		t.Fatalf("expected 1 admin notification, got %d", result.NotificationsSent)
	}

	var report types.Report
	if err := db.First(&report, "tenant_id = ? AND kind = ?", tenant.ID, types.ReportKindDailySummary).Error; err != nil {
		t.Fatalf("expected a persisted report: %v", err)
	}

	var notification types.Notification
	if err := db.First(&notification, "recipient_id = ? AND type = ?", admin.ID, types.NotificationTypeDailyReport).Error; err != nil {
		t.Fatalf("expected a daily report notification: %v", err)
	}
	if !strings.HasPrefix(notification.Link, "/reports/") {
		t.Fatalf("expected a report link, got %q", notification.Link)
	}
}

func TestRunDaily_PurgesOldNotifications(t *testing.T) {
	scheduler, db := newSchedulerStack(t)
	ctx := context.Background()

	tenant := seedTenant(t, db)
	admin := seedEngagedPerson(t, db, tenant.ID, types.RoleAdmin)

	stale := &types.Notification{
		ID:          uuid.New(),
		TenantID:    tenant.ID,
		RecipientID: admin.ID,
		Type:        types.NotificationTypeSystem,
		Title:       "stale",
		Message:     "stale",
		CreatedAt:   time.Now().UTC().Add(-45 * 24 * time.Hour),
	}
	if err := db.Create(stale).Error; err != nil {
		t.Fatalf("seed stale notification: %v", err)
	}

	if _, err := scheduler.RunDaily(ctx); err != nil {
		t.Fatalf("run daily: %v", err)
	}

	var count int64
	if err := db.Model(&types.Notification{}).Where("id = ?", stale.ID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected the stale notification to be purged")
	}
}

func TestRunContinuous_NoTenants(t *testing.T) {
	scheduler, _ := newSchedulerStack(t)
	result, err := scheduler.RunContinuous(context.Background())
	if err != nil {
		t.Fatalf("run continuous: %v", err)
	}
	if result.TenantsProcessed != 0 || len(result.Errors) != 0 {
		t.Fatalf("expected an empty clean run, got %+v", result)
	}
}
