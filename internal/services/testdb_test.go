package services

import (
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

func newTestLogger() *logger.Logger {
	return logger.NewNop()
}

func seedTenant(t *testing.T, db *gorm.DB) *types.Tenant {
	t.Helper()
	tenant := &types.Tenant{ID: uuid.New(), Name: "Acme", IsActive: true}
	if err := db.Create(tenant).Error; err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	return tenant
}

func seedPerson(t *testing.T, db *gorm.DB, tenantID uuid.UUID, role string) *types.Person {
	t.Helper()
	person := &types.Person{
		ID:       uuid.New(),
		TenantID: tenantID,
		FullName: "Jordan Blake",
		Email:    uuid.NewString() + "@example.com",
		Role:     role,
		IsActive: true,
	}
	if err := db.Create(person).Error; err != nil {
		t.Fatalf("seed person: %v", err)
	}
	return person
}

func ago(d time.Duration) time.Time {
	return time.Now().UTC().Add(-d)
}

func timePtr(ts time.Time) *time.Time { return &ts }
