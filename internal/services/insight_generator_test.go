package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/onboardhq/pulse-backend/internal/repos"
	"github.com/onboardhq/pulse-backend/internal/types"
)

type fakeLLM struct {
	response map[string]any
	err      error
	calls    int
}

func (f *fakeLLM) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func strugglingTenantMetrics() *TenantMetrics {
	return &TenantMetrics{
		TenantID:     uuid.New(),
		WindowDays:   7,
		TotalPeople:  20,
		ActivePeople: 18,
		AtRiskCount:  6,
		TrackStats:   repos.TrackStats{Total: 30, Completed: 5, Overdue: 8, AvgPct: 35},
		SentimentDistribution: []repos.SentimentDistribution{
			{Label: types.SentimentNegative, Count: 5},
			{Label: types.SentimentPositive, Count: 5},
		},
	}
}

func TestSummarize_FallsBackWhenModelFails(t *testing.T) {
	llm := &fakeLLM{err: errors.New("upstream down")}
	gen := NewInsightGenerator(newTestLogger(), llm)

	got := gen.Summarize(context.Background(), strugglingTenantMetrics(), nil)
	if llm.calls != 1 {
		t.Fatalf("expected one model call, got %d", llm.calls)
	}
	if len(got.Insights) == 0 {
		t.Fatalf("expected fallback insights, got none")
	}
	for _, ins := range got.Insights {
		if ins.Title == "" || ins.Description == "" || ins.Impact == "" {
			t.Fatalf("fallback insight incomplete: %+v", ins)
		}
	}
	if len(got.Recommendations) == 0 {
		t.Fatalf("expected fallback recommendations, got none")
	}
	for _, rec := range got.Recommendations {
		if rec.Action == "" || rec.Priority == "" || rec.Timeframe == "" {
			t.Fatalf("fallback recommendation incomplete: %+v", rec)
		}
	}
}

func TestSummarize_FallsBackOnMalformedOutput(t *testing.T) {
	llm := &fakeLLM{response: map[string]any{"insights": "not an array"}}
	gen := NewInsightGenerator(newTestLogger(), llm)

	got := gen.Summarize(context.Background(), strugglingTenantMetrics(), nil)
	if len(got.Insights) == 0 {
		t.Fatalf("expected fallback insights after malformed output")
	}
}

func TestSummarize_NormalizesModelOutput(t *testing.T) {
	llm := &fakeLLM{response: map[string]any{
		"insights": []any{
			map[string]any{
				"title":       "Completion is slipping",
				"description": "Average completion dropped to 35%.",
				"impact":      "HIGH",
			},
			map[string]any{
				"title":       "   ",
				"description": "no title, should be dropped",
				"impact":      "low",
			},
		},
		"recommendations": []any{
			map[string]any{
				"action":    "Re-plan overdue tracks.",
				"priority":  "bogus",
				"timeframe": "someday",
			},
			map[string]any{
				"action":    "   ",
				"priority":  "low",
				"timeframe": "this_week",
			},
		},
	}}
	gen := NewInsightGenerator(newTestLogger(), llm)

	got := gen.Summarize(context.Background(), strugglingTenantMetrics(), nil)
	if len(got.Insights) != 1 {
		t.Fatalf("expected 1 insight after normalization, got %d", len(got.Insights))
	}
	if got.Insights[0].Impact != ImpactHigh {
		t.Fatalf("expected impact normalized to high, got %q", got.Insights[0].Impact)
	}
	if len(got.Recommendations) != 1 {
		t.Fatalf("expected 1 recommendation after normalization, got %d", len(got.Recommendations))
	}
	if got.Recommendations[0].Priority != types.PriorityMedium {
		t.Fatalf("expected unknown priority coerced to medium, got %q", got.Recommendations[0].Priority)
	}
	if got.Recommendations[0].Timeframe != TimeframeThisWeek {
		t.Fatalf("expected unknown timeframe coerced to this_week, got %q", got.Recommendations[0].Timeframe)
	}
}

func TestSummarize_FallbackOnlyWithoutModel(t *testing.T) {
	gen := NewInsightGenerator(newTestLogger(), nil)
	got := gen.Summarize(context.Background(), strugglingTenantMetrics(), nil)
	if len(got.Insights) == 0 {
		t.Fatalf("expected deterministic insights without a model")
	}
}

func TestFallbackReport_NeverNil(t *testing.T) {
	if got := FallbackReport(nil, nil); got == nil || got.Insights == nil || got.Recommendations == nil {
		t.Fatalf("expected empty but valid report, got %+v", got)
	}
	healthy := &TenantMetrics{TenantID: uuid.New(), WindowDays: 7, ActivePeople: 5, TrackStats: repos.TrackStats{Total: 5, AvgPct: 90}}
	if got := FallbackReport(healthy, nil); got.Insights == nil || got.Recommendations == nil {
		t.Fatalf("expected empty but valid report for healthy tenant, got %+v", got)
	}
}

func TestFallbackReport_PatternDerived(t *testing.T) {
	healthy := &TenantMetrics{TenantID: uuid.New(), WindowDays: 7, ActivePeople: 5, TrackStats: repos.TrackStats{Total: 5, AvgPct: 90}}
	patterns := []Pattern{
		{Category: types.AlertCategoryOverdueTrack, Source: PatternSourceAlerts, Frequency: 4, MeanSeverity: 3.5, AffectedPersons: []uuid.UUID{uuid.New(), uuid.New()}},
		{Category: types.AlertCategoryInactivity, Source: PatternSourceAlerts, Frequency: 2, MeanSeverity: 2},
	}

	got := FallbackReport(healthy, patterns)
	if len(got.Insights) != 1 {
		t.Fatalf("expected only the frequent pattern to produce an insight, got %d", len(got.Insights))
	}
	if got.Insights[0].Impact != ImpactHigh {
		t.Fatalf("expected high impact for severe pattern, got %q", got.Insights[0].Impact)
	}
	if len(got.Recommendations) != 1 || got.Recommendations[0].Priority != types.PriorityHigh {
		t.Fatalf("expected one high-priority recommendation, got %+v", got.Recommendations)
	}
}
