package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/onboardhq/pulse-backend/internal/logger"
	"github.com/onboardhq/pulse-backend/internal/types"
	"github.com/onboardhq/pulse-backend/internal/utils"
)

const (
	ImpactLow    = "low"
	ImpactMedium = "medium"
	ImpactHigh   = "high"
)

const (
	TimeframeImmediate = "immediate"
	TimeframeThisWeek  = "this_week"
	TimeframeThisMonth = "this_month"
)

// Insight is one narrative observation about a tenant's health.
type Insight struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      string `json:"impact"` // low|medium|high
}

// Recommendation is a concrete next step derived from the insights.
type Recommendation struct {
	Action    string `json:"action"`
	Priority  string `json:"priority"`  // low|medium|high|urgent
	Timeframe string `json:"timeframe"` // immediate|this_week|this_month
}

// InsightReport pairs the narrative insights with prioritized next steps.
// Both slices are always non-nil.
type InsightReport struct {
	Insights        []Insight        `json:"insights"`
	Recommendations []Recommendation `json:"recommendations"`
}

type InsightGenerator interface {
	// Summarize turns metrics and detected patterns into an insight report. The
	// language model is tried first when configured; any failure falls back to
	// the deterministic rules, so the result is always usable and never nil.
	Summarize(ctx context.Context, metrics *TenantMetrics, patterns []Pattern) *InsightReport
}

type insightGenerator struct {
	log     *logger.Logger
	llm     LLMClient
	timeout time.Duration
}

// NewInsightGenerator accepts a nil llm, which puts the generator in
// fallback-only mode.
func NewInsightGenerator(log *logger.Logger, llm LLMClient) InsightGenerator {
	timeoutSec := utils.GetEnvAsInt("INSIGHT_TIMEOUT_SECONDS", 60, nil)
	return &insightGenerator{
		log:     log.With("service", "InsightGenerator"),
		llm:     llm,
		timeout: time.Duration(timeoutSec) * time.Second,
	}
}

func (g *insightGenerator) Summarize(ctx context.Context, metrics *TenantMetrics, patterns []Pattern) *InsightReport {
	if g.llm != nil {
		report, err := g.generateWithLLM(ctx, metrics, patterns)
		if err == nil && len(report.Insights) > 0 {
			return report
		}
		if err != nil {
			g.log.Warn("Insight generation via model failed, using fallback",
				"tenant_id", metrics.TenantID.String(),
				"error", err.Error(),
			)
		}
	}
	return FallbackReport(metrics, patterns)
}

var insightSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"insights": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":       map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
					"impact":      map[string]any{"type": "string", "enum": []string{"low", "medium", "high"}},
				},
				"required":             []string{"title", "description", "impact"},
				"additionalProperties": false,
			},
		},
		"recommendations": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"action":    map[string]any{"type": "string"},
					"priority":  map[string]any{"type": "string", "enum": []string{"low", "medium", "high", "urgent"}},
					"timeframe": map[string]any{"type": "string", "enum": []string{"immediate", "this_week", "this_month"}},
				},
				"required":             []string{"action", "priority", "timeframe"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"insights", "recommendations"},
	"additionalProperties": false,
}

const insightSystemPrompt = `You are an analyst reviewing engagement and progress metrics for a cohort of tracked people. Produce a short list of concrete insights and a prioritized list of recommended actions. Be specific: cite the numbers you are reacting to. Do not invent data that is not in the input.`

func (g *insightGenerator) generateWithLLM(ctx context.Context, metrics *TenantMetrics, patterns []Pattern) (*InsightReport, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	payload, err := json.Marshal(map[string]any{
		"metrics":  metrics,
		"patterns": patterns,
	})
	if err != nil {
		return nil, err
	}

	obj, err := g.llm.GenerateJSON(ctx, insightSystemPrompt, string(payload), "tenant_insights", insightSchema)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	var decoded InsightReport
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("model output shape invalid: %w", err)
	}

	report := &InsightReport{Insights: []Insight{}, Recommendations: []Recommendation{}}
	for _, ins := range decoded.Insights {
		ins.Title = strings.TrimSpace(ins.Title)
		if ins.Title == "" {
			continue
		}
		ins.Impact = normalizeImpact(ins.Impact)
		report.Insights = append(report.Insights, ins)
	}
	for _, rec := range decoded.Recommendations {
		rec.Action = strings.TrimSpace(rec.Action)
		if rec.Action == "" {
			continue
		}
		rec.Priority = normalizePriority(rec.Priority)
		rec.Timeframe = normalizeTimeframe(rec.Timeframe)
		report.Recommendations = append(report.Recommendations, rec)
	}
	return report, nil
}

func normalizeImpact(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case ImpactLow:
		return ImpactLow
	case ImpactHigh:
		return ImpactHigh
	default:
		return ImpactMedium
	}
}

func normalizePriority(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case types.PriorityLow:
		return types.PriorityLow
	case types.PriorityHigh:
		return types.PriorityHigh
	case types.PriorityUrgent:
		return types.PriorityUrgent
	default:
		return types.PriorityMedium
	}
}

func normalizeTimeframe(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case TimeframeImmediate:
		return TimeframeImmediate
	case TimeframeThisMonth:
		return TimeframeThisMonth
	default:
		return TimeframeThisWeek
	}
}

// FallbackReport derives the report from metrics thresholds alone. Pure.
func FallbackReport(metrics *TenantMetrics, patterns []Pattern) *InsightReport {
	report := &InsightReport{Insights: []Insight{}, Recommendations: []Recommendation{}}
	if metrics == nil {
		return report
	}

	if metrics.TrackStats.Total > 0 && metrics.TrackStats.AvgPct < 70 {
		impact := ImpactMedium
		priority := types.PriorityMedium
		if metrics.TrackStats.AvgPct < 40 {
			impact = ImpactHigh
			priority = types.PriorityHigh
		}
		report.Insights = append(report.Insights, Insight{
			Title:       "Track completion is lagging",
			Description: fmt.Sprintf("Average track completion is %.0f%% across %d tracks, with %d overdue.", metrics.TrackStats.AvgPct, metrics.TrackStats.Total, metrics.TrackStats.Overdue),
			Impact:      impact,
		})
		report.Recommendations = append(report.Recommendations, Recommendation{
			Action:    "Review pacing and due dates for the slowest tracks.",
			Priority:  priority,
			Timeframe: TimeframeThisWeek,
		})
	}

	if metrics.AtRiskCount > 0 {
		impact := ImpactMedium
		priority := types.PriorityMedium
		timeframe := TimeframeThisWeek
		if metrics.ActivePeople > 0 && float64(metrics.AtRiskCount)/float64(metrics.ActivePeople) >= 0.25 {
			impact = ImpactHigh
			priority = types.PriorityUrgent
			timeframe = TimeframeImmediate
		}
		report.Insights = append(report.Insights, Insight{
			Title:       "People flagged at risk",
			Description: fmt.Sprintf("%d of %d active people currently carry an elevated risk score.", metrics.AtRiskCount, metrics.ActivePeople),
			Impact:      impact,
		})
		report.Recommendations = append(report.Recommendations, Recommendation{
			Action:    "Prioritize check-ins with the highest scored people first.",
			Priority:  priority,
			Timeframe: timeframe,
		})
	}

	if share := metrics.NegativeShare(); share >= 0.3 {
		report.Insights = append(report.Insights, Insight{
			Title:       "Sentiment is skewing negative",
			Description: fmt.Sprintf("%.0f%% of sentiment readings in the last %d days were negative.", share*100, metrics.WindowDays),
			Impact:      ImpactHigh,
		})
		report.Recommendations = append(report.Recommendations, Recommendation{
			Action:    "Investigate common causes behind the negative readings.",
			Priority:  types.PriorityHigh,
			Timeframe: TimeframeThisWeek,
		})
	}

	for _, p := range patterns {
		if p.Frequency < 3 {
			continue
		}
		impact := ImpactMedium
		priority := types.PriorityMedium
		if p.MeanSeverity >= 3 {
			impact = ImpactHigh
			priority = types.PriorityHigh
		}
		report.Insights = append(report.Insights, Insight{
			Title:       fmt.Sprintf("Recurring pattern: %s", p.Category),
			Description: fmt.Sprintf("The %s category recurred %d times across %d people.", p.Category, p.Frequency, len(p.AffectedPersons)),
			Impact:      impact,
		})
		report.Recommendations = append(report.Recommendations, Recommendation{
			Action:    fmt.Sprintf("Address the root cause behind repeated %s signals.", p.Category),
			Priority:  priority,
			Timeframe: TimeframeThisWeek,
		})
	}

	return report
}
