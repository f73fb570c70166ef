package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/onboardhq/pulse-backend/internal/repos"
	"github.com/onboardhq/pulse-backend/internal/types"
)

func newAlertManager(t *testing.T) (AlertManager, repos.AlertRepo, repos.SuggestionRepo, *types.Tenant, *types.Person) {
	t.Helper()
	db := newTestDB(t)
	log := newTestLogger()
	alertRepo := repos.NewAlertRepo(db, log)
	suggestionRepo := repos.NewSuggestionRepo(db, log)
	tenant := seedTenant(t, db)
	person := seedPerson(t, db, tenant.ID, types.RoleMember)
	return NewAlertManager(log, alertRepo, suggestionRepo, nil), alertRepo, suggestionRepo, tenant, person
}

func TestRaise_CreatesThenRefreshesWithinCooldown(t *testing.T) {
	manager, alertRepo, _, tenant, person := newAlertManager(t)
	ctx := context.Background()

	input := RaiseAlertInput{
		TenantID:      tenant.ID,
		PersonID:      &person.ID,
		Category:      types.AlertCategoryAttritionRisk,
		Severity:      types.SeverityHigh,
		Score:         72,
		Title:         "Jordan Blake is at high risk",
		Justification: "Composite risk score 72.",
		Factors:       []string{"no activity for 8 days"},
	}

	first, created, err := manager.Raise(ctx, nil, input)
	if err != nil {
		t.Fatalf("first raise: %v", err)
	}
	if !created {
		t.Fatalf("expected first raise to create an alert")
	}

	input.Score = 85
	input.Severity = types.SeverityCritical
	second, created, err := manager.Raise(ctx, nil, input)
	if err != nil {
		t.Fatalf("second raise: %v", err)
	}
	if created {
		t.Fatalf("expected second raise to refresh, not create")
	}
	if second.ID != first.ID {
		t.Fatalf("expected the same alert to be refreshed")
	}
	if second.Score != 85 || second.Severity != types.SeverityCritical {
		t.Fatalf("expected refresh to carry new score/severity, got %.0f/%s", second.Score, second.Severity)
	}

	_, total, err := alertRepo.List(ctx, nil, tenant.ID, repos.ListAlertsOptions{})
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected exactly 1 alert row, got %d", total)
	}
}

func TestRaise_DifferentCategoriesDoNotCollide(t *testing.T) {
	manager, alertRepo, _, tenant, person := newAlertManager(t)
	ctx := context.Background()

	for _, category := range []string{types.AlertCategoryAttritionRisk, types.AlertCategoryInactivity} {
		_, created, err := manager.Raise(ctx, nil, RaiseAlertInput{
			TenantID: tenant.ID,
			PersonID: &person.ID,
			Category: category,
			Severity: types.SeverityMedium,
			Title:    "alert " + category,
		})
		if err != nil {
			t.Fatalf("raise %s: %v", category, err)
		}
		if !created {
			t.Fatalf("expected a fresh alert for category %s", category)
		}
	}

	_, total, err := alertRepo.List(ctx, nil, tenant.ID, repos.ListAlertsOptions{})
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 alert rows, got %d", total)
	}
}

func TestRaise_RejectsMissingFields(t *testing.T) {
	manager, _, _, tenant, _ := newAlertManager(t)
	_, _, err := manager.Raise(context.Background(), nil, RaiseAlertInput{TenantID: tenant.ID})
	if !errors.Is(err, types.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolve_StampsResolverAndIsIdempotent(t *testing.T) {
	manager, _, _, tenant, person := newAlertManager(t)
	ctx := context.Background()

	alert, _, err := manager.Raise(ctx, nil, RaiseAlertInput{
		TenantID: tenant.ID,
		PersonID: &person.ID,
		Category: types.AlertCategoryNegativeSentiment,
		Severity: types.SeverityMedium,
		Title:    "Sentiment turned negative",
	})
	if err != nil {
		t.Fatalf("raise: %v", err)
	}

	resolver := uuid.New()
	resolved, err := manager.Resolve(ctx, nil, tenant.ID, alert.ID, resolver, "spoke with their manager")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != types.AlertStatusResolved {
		t.Fatalf("expected resolved status, got %q", resolved.Status)
	}
	if resolved.ResolvedBy == nil || *resolved.ResolvedBy != resolver {
		t.Fatalf("expected resolver stamped")
	}
	if resolved.ResolvedAt == nil {
		t.Fatalf("expected resolved_at stamped")
	}
	if resolved.ResolutionNote != "spoke with their manager" {
		t.Fatalf("expected resolution note persisted, got %q", resolved.ResolutionNote)
	}

	again, err := manager.Resolve(ctx, nil, tenant.ID, alert.ID, uuid.New(), "other note")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if again.ResolvedBy == nil || *again.ResolvedBy != resolver {
		t.Fatalf("second resolve must not overwrite the original resolver")
	}
	if again.ResolutionNote != "spoke with their manager" {
		t.Fatalf("second resolve must not overwrite the original note")
	}
}

func TestResolve_UnknownAlert(t *testing.T) {
	manager, _, _, tenant, _ := newAlertManager(t)
	_, err := manager.Resolve(context.Background(), nil, tenant.ID, uuid.New(), uuid.New(), "")
	if !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func seedSuggestion(t *testing.T, repo repos.SuggestionRepo, tenantID uuid.UUID) *types.ImprovementSuggestion {
	t.Helper()
	suggestion := &types.ImprovementSuggestion{
		ID:       uuid.New(),
		TenantID: tenantID,
		Category: "monitoring_insight",
		Priority: types.PriorityHigh,
		Title:    "Track completion is lagging",
		Status:   types.SuggestionStatusSuggested,
		Author:   types.SuggestionAuthorSystem,
	}
	if _, err := repo.Create(context.Background(), nil, []*types.ImprovementSuggestion{suggestion}); err != nil {
		t.Fatalf("seed suggestion: %v", err)
	}
	return suggestion
}

func TestApproveSuggestion(t *testing.T) {
	manager, _, suggestionRepo, tenant, person := newAlertManager(t)
	suggestion := seedSuggestion(t, suggestionRepo, tenant.ID)

	approved, err := manager.ApproveSuggestion(context.Background(), nil, tenant.ID, suggestion.ID, person.ID, "makes sense")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != types.SuggestionStatusApproved {
		t.Fatalf("expected approved status, got %q", approved.Status)
	}
	if approved.ReviewerID == nil || *approved.ReviewerID != person.ID {
		t.Fatalf("expected reviewer stamped")
	}
	if approved.ReviewerNotes != "makes sense" {
		t.Fatalf("expected notes persisted, got %q", approved.ReviewerNotes)
	}
}

func TestRejectSuggestion_RequiresReviewer(t *testing.T) {
	manager, _, suggestionRepo, tenant, _ := newAlertManager(t)
	suggestion := seedSuggestion(t, suggestionRepo, tenant.ID)

	_, err := manager.RejectSuggestion(context.Background(), nil, tenant.ID, suggestion.ID, uuid.Nil, "")
	if !errors.Is(err, types.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReviewSuggestion_AlreadyReviewed(t *testing.T) {
	manager, _, suggestionRepo, tenant, person := newAlertManager(t)
	suggestion := seedSuggestion(t, suggestionRepo, tenant.ID)

	if _, err := manager.ApproveSuggestion(context.Background(), nil, tenant.ID, suggestion.ID, person.ID, ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	_, err := manager.RejectSuggestion(context.Background(), nil, tenant.ID, suggestion.ID, person.ID, "")
	if !errors.Is(err, types.ErrValidation) {
		t.Fatalf("expected validation error on double review, got %v", err)
	}
}
