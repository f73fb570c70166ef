package repos

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/onboardhq/pulse-backend/internal/logger"
	"github.com/onboardhq/pulse-backend/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&types.Tenant{},
		&types.Person{},
		&types.SentimentRecord{},
		&types.TrackProgress{},
		&types.ActivityRecord{},
		&types.Annotation{},
		&types.Alert{},
		&types.ImprovementSuggestion{},
		&types.Notification{},
		&types.Report{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedTenantWithPerson(t *testing.T, db *gorm.DB, role string) (*types.Tenant, *types.Person) {
	t.Helper()
	tenant := &types.Tenant{ID: uuid.New(), Name: "Tenant", IsActive: true}
	if err := db.Create(tenant).Error; err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	person := &types.Person{
		ID:       uuid.New(),
		TenantID: tenant.ID,
		FullName: "Sam Field",
		Email:    uuid.NewString() + "@example.com",
		Role:     role,
		IsActive: true,
	}
	if err := db.Create(person).Error; err != nil {
		t.Fatalf("seed person: %v", err)
	}
	return tenant, person
}

func TestAlertRepo_TenantIsolation(t *testing.T) {
	db := newTestDB(t)
	log := logger.NewNop()
	repo := NewAlertRepo(db, log)
	ctx := context.Background()

	tenantA, personA := seedTenantWithPerson(t, db, types.RoleMember)
	tenantB, _ := seedTenantWithPerson(t, db, types.RoleMember)

	alert := &types.Alert{
		ID:       uuid.New(),
		TenantID: tenantA.ID,
		PersonID: &personA.ID,
		Category: types.AlertCategoryInactivity,
		Severity: types.SeverityMedium,
		Status:   types.AlertStatusActive,
		Title:    "quiet",
	}
	if _, err := repo.Create(ctx, nil, []*types.Alert{alert}); err != nil {
		t.Fatalf("create alert: %v", err)
	}

	_, totalA, err := repo.List(ctx, nil, tenantA.ID, ListAlertsOptions{})
	if err != nil {
		t.Fatalf("list tenant A: %v", err)
	}
	if totalA != 1 {
		t.Fatalf("expected 1 alert in tenant A, got %d", totalA)
	}

	_, totalB, err := repo.List(ctx, nil, tenantB.ID, ListAlertsOptions{})
	if err != nil {
		t.Fatalf("list tenant B: %v", err)
	}
	if totalB != 0 {
		t.Fatalf("expected tenant B to see no alerts, got %d", totalB)
	}

	if _, err := repo.GetByID(ctx, nil, tenantB.ID, alert.ID); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected cross-tenant get to miss, got %v", err)
	}
}

func TestPersonRepo_ListAdminsAndStale(t *testing.T) {
	db := newTestDB(t)
	log := logger.NewNop()
	repo := NewPersonRepo(db, log)
	ctx := context.Background()
	now := time.Now().UTC()

	tenant, admin := seedTenantWithPerson(t, db, types.RoleAdmin)
	member := &types.Person{
		ID:       uuid.New(),
		TenantID: tenant.ID,
		FullName: "Member",
		Email:    uuid.NewString() + "@example.com",
		Role:     types.RoleMember,
		IsActive: true,
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("seed member: %v", err)
	}

	admins, err := repo.ListAdmins(ctx, nil, tenant.ID)
	if err != nil {
		t.Fatalf("list admins: %v", err)
	}
	if len(admins) != 1 || admins[0].ID != admin.ID {
		t.Fatalf("expected only the admin, got %d rows", len(admins))
	}

	// both people start with no risk_updated_at
	stale, err := repo.ListStale(ctx, nil, tenant.ID, now.Add(-15*time.Minute))
	if err != nil {
		t.Fatalf("list stale: %v", err)
	}
	if len(stale) != 2 {
		t.Fatalf("expected both people stale, got %d", len(stale))
	}

	if err := repo.UpdateRisk(ctx, nil, tenant.ID, member.ID, 42, now); err != nil {
		t.Fatalf("update risk: %v", err)
	}
	stale, err = repo.ListStale(ctx, nil, tenant.ID, now.Add(-15*time.Minute))
	if err != nil {
		t.Fatalf("list stale after update: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != admin.ID {
		t.Fatalf("expected only the admin to stay stale, got %d rows", len(stale))
	}

	var reloaded types.Person
	if err := db.First(&reloaded, "id = ?", member.ID).Error; err != nil {
		t.Fatalf("reload member: %v", err)
	}
	if reloaded.RiskScore != 42 || reloaded.RiskUpdatedAt == nil {
		t.Fatalf("expected risk fields persisted, got %.1f / %v", reloaded.RiskScore, reloaded.RiskUpdatedAt)
	}
}

func TestSentimentRecordRepo_PrevBefore(t *testing.T) {
	db := newTestDB(t)
	log := logger.NewNop()
	repo := NewSentimentRecordRepo(db, log)
	ctx := context.Background()
	now := time.Now().UTC()

	tenant, person := seedTenantWithPerson(t, db, types.RoleMember)
	older := &types.SentimentRecord{
		ID: uuid.New(), TenantID: tenant.ID, PersonID: person.ID,
		Label: types.SentimentPositive, CreatedAt: now.Add(-2 * time.Hour),
	}
	newer := &types.SentimentRecord{
		ID: uuid.New(), TenantID: tenant.ID, PersonID: person.ID,
		Label: types.SentimentNegative, CreatedAt: now.Add(-time.Hour),
	}
	if _, err := repo.Create(ctx, nil, []*types.SentimentRecord{older, newer}); err != nil {
		t.Fatalf("create records: %v", err)
	}

	prev, err := repo.PrevBefore(ctx, nil, tenant.ID, person.ID, newer.CreatedAt)
	if err != nil {
		t.Fatalf("prev before: %v", err)
	}
	if prev.ID != older.ID {
		t.Fatalf("expected the older record, got %s", prev.Label)
	}

	if _, err := repo.PrevBefore(ctx, nil, tenant.ID, person.ID, older.CreatedAt); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected not found before the first record, got %v", err)
	}
}

func TestTrackProgressRepo_ListNewlyOverdue(t *testing.T) {
	db := newTestDB(t)
	log := logger.NewNop()
	repo := NewTrackProgressRepo(db, log)
	ctx := context.Background()
	now := time.Now().UTC()

	tenant, person := seedTenantWithPerson(t, db, types.RoleMember)
	mk := func(due time.Time, status string) *types.TrackProgress {
		return &types.TrackProgress{
			ID: uuid.New(), TenantID: tenant.ID, PersonID: person.ID,
			TrackName: "t", Status: status, DueAt: &due,
		}
	}
	rows := []*types.TrackProgress{
		mk(now.Add(-30*time.Minute), types.TrackInProgress),   // newly overdue
		mk(now.Add(-30*time.Minute), types.TrackCompleted),    // completed, ignored
		mk(now.Add(-3*time.Hour), types.TrackInProgress),      // overdue before the window
		mk(now.Add(time.Hour), types.TrackInProgress),         // not due yet
	}
	if _, err := repo.Create(ctx, nil, rows); err != nil {
		t.Fatalf("create tracks: %v", err)
	}

	got, err := repo.ListNewlyOverdue(ctx, nil, tenant.ID, now.Add(-time.Hour), now)
	if err != nil {
		t.Fatalf("list newly overdue: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 newly overdue track, got %d", len(got))
	}
	if got[0].ID != rows[0].ID {
		t.Fatalf("unexpected track returned")
	}
}
