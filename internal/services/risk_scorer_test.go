package services

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/onboardhq/pulse-backend/internal/types"
)

func newScorer() RiskScorer {
	return NewRiskScorer(newTestLogger(), nil, nil, nil, nil)
}

func activePerson(now time.Time) *types.Person {
	lastActive := now.Add(-time.Hour)
	return &types.Person{
		ID:             uuid.New(),
		TenantID:       uuid.New(),
		FullName:       "Jordan Blake",
		LastActivityAt: &lastActive,
		CreatedAt:      now.Add(-30 * 24 * time.Hour),
	}
}

func sentimentRec(label string, intensity float64, at time.Time) *types.SentimentRecord {
	return &types.SentimentRecord{ID: uuid.New(), Label: label, Intensity: intensity, CreatedAt: at}
}

func overdueTrack(now time.Time) *types.TrackProgress {
	due := now.Add(-48 * time.Hour)
	return &types.TrackProgress{
		ID:        uuid.New(),
		TrackName: "orientation",
		Status:    types.TrackInProgress,
		DueAt:     &due,
	}
}

func TestScore_EngagedPersonStaysLowRisk(t *testing.T) {
	now := time.Now().UTC()
	person := activePerson(now)

	got := newScorer().Score(person, RiskSignals{
		Sentiments:    []*types.SentimentRecord{sentimentRec(types.SentimentPositive, 0.5, now.Add(-time.Hour))},
		ActivityCount: 12,
		Now:           now,
	})

	if got.Level != types.RiskLevelLow {
		t.Fatalf("expected low risk, got %q (score %.1f)", got.Level, got.Score)
	}
	if len(got.Breakdown) != 2 {
		t.Fatalf("expected sentiment+activity factors, got %d", len(got.Breakdown))
	}
}

// A person with no signals at all must score exactly zero with no active
// factors, regardless of how long ago the record was created.
func TestScore_NoSignalsScoresZero(t *testing.T) {
	now := time.Now().UTC()
	scorer := newScorer()

	for _, ageDays := range []int{0, 10, 100} {
		person := &types.Person{
			ID:        uuid.New(),
			TenantID:  uuid.New(),
			FullName:  "Robin Hale",
			CreatedAt: now.Add(-time.Duration(ageDays) * 24 * time.Hour),
		}

		got := scorer.Score(person, RiskSignals{Now: now})

		if got.Score != 0 {
			t.Fatalf("age %dd: expected score 0, got %.1f", ageDays, got.Score)
		}
		if got.Level != types.RiskLevelLow {
			t.Fatalf("age %dd: expected low risk, got %q", ageDays, got.Level)
		}
		if got.ActiveWeight != 0 {
			t.Fatalf("age %dd: expected no active factors, got weight %.2f", ageDays, got.ActiveWeight)
		}
		if len(got.Breakdown) != 0 || len(got.Factors) != 0 || len(got.Actions) != 0 {
			t.Fatalf("age %dd: expected empty breakdown/factors/actions, got %d/%d/%d",
				ageDays, len(got.Breakdown), len(got.Factors), len(got.Actions))
		}
	}
}

func TestScore_CompositeReconstructsFromBreakdown(t *testing.T) {
	now := time.Now().UTC()
	person := activePerson(now)
	due := now.Add(24 * time.Hour)

	got := newScorer().Score(person, RiskSignals{
		Sentiments: []*types.SentimentRecord{
			sentimentRec(types.SentimentNeutral, 0.2, now.Add(-48*time.Hour)),
			sentimentRec(types.SentimentNegative, 0.6, now.Add(-time.Hour)),
		},
		Tracks: []*types.TrackProgress{
			{ID: uuid.New(), TrackName: "a", Status: types.TrackInProgress, DueAt: &due, PercentComplete: 20},
		},
		Annotations: []*types.Annotation{
			{ID: uuid.New(), Category: types.AnnotationContentDifficulty, CreatedAt: now},
			{ID: uuid.New(), Category: types.AnnotationContentDifficulty, CreatedAt: now},
		},
		ActivityCount: 10,
		Now:           now,
	})

	var weighted, activeWeight float64
	for _, f := range got.Breakdown {
		weighted += f.Score * f.Weight
		activeWeight += f.Weight
	}
	if math.Abs(activeWeight-got.ActiveWeight) > 1e-9 {
		t.Fatalf("active weight mismatch: breakdown %.4f vs %.4f", activeWeight, got.ActiveWeight)
	}
	want := weighted / activeWeight
	if want > 100 {
		want = 100
	}
	if math.Abs(got.Score-want) > 1e-9 {
		t.Fatalf("score %.4f does not reconstruct from breakdown (%.4f)", got.Score, want)
	}
	if got.Level != types.RiskLevelForScore(got.Score) {
		t.Fatalf("level %q inconsistent with score %.1f", got.Level, got.Score)
	}
}

func TestScore_ExtraOverdueTrackNeverLowersScore(t *testing.T) {
	now := time.Now().UTC()
	person := activePerson(now)
	scorer := newScorer()

	base := RiskSignals{
		Tracks:        []*types.TrackProgress{overdueTrack(now)},
		ActivityCount: 10,
		Now:           now,
	}
	one := scorer.Score(person, base)

	withMore := base
	withMore.Tracks = append([]*types.TrackProgress{overdueTrack(now)}, base.Tracks...)
	two := scorer.Score(person, withMore)

	if two.Score < one.Score {
		t.Fatalf("adding an overdue track lowered the score: %.2f -> %.2f", one.Score, two.Score)
	}
}

func TestScore_WorseSentimentNeverLowersScore(t *testing.T) {
	now := time.Now().UTC()
	person := activePerson(now)
	scorer := newScorer()

	neutral := scorer.Score(person, RiskSignals{
		Sentiments:    []*types.SentimentRecord{sentimentRec(types.SentimentNeutral, 0.5, now.Add(-time.Hour))},
		ActivityCount: 10,
		Now:           now,
	})
	negative := scorer.Score(person, RiskSignals{
		Sentiments:    []*types.SentimentRecord{sentimentRec(types.SentimentVeryNegative, 0.5, now.Add(-time.Hour))},
		ActivityCount: 10,
		Now:           now,
	})

	if negative.Score < neutral.Score {
		t.Fatalf("worse sentiment lowered the score: %.2f -> %.2f", neutral.Score, negative.Score)
	}
}

// A person with strongly negative worsening sentiment, overdue tracks and a
// long silence must land in the critical band even though only three factors
// have signals.
func TestScore_DistressedPersonIsCritical(t *testing.T) {
	now := time.Now().UTC()
	lastActive := now.Add(-10 * 24 * time.Hour)
	person := &types.Person{
		ID:             uuid.New(),
		FullName:       "Casey Morgan",
		LastActivityAt: &lastActive,
		CreatedAt:      now.Add(-60 * 24 * time.Hour),
	}

	got := newScorer().Score(person, RiskSignals{
		Sentiments: []*types.SentimentRecord{
			sentimentRec(types.SentimentNeutral, 0.3, now.Add(-72*time.Hour)),
			sentimentRec(types.SentimentNegative, 0.7, now.Add(-24*time.Hour)),
			sentimentRec(types.SentimentVeryNegative, 0.9, now.Add(-time.Hour)),
		},
		Tracks:        []*types.TrackProgress{overdueTrack(now), overdueTrack(now)},
		ActivityCount: 0,
		Now:           now,
	})

	if got.Level != types.RiskLevelCritical {
		t.Fatalf("expected critical, got %q (score %.1f)", got.Level, got.Score)
	}
	if got.Score < 80 {
		t.Fatalf("expected score >= 80, got %.1f", got.Score)
	}
	if len(got.Factors) == 0 || len(got.Actions) == 0 {
		t.Fatalf("expected factors and actions to be populated")
	}
}

func TestScore_ClampedToHundred(t *testing.T) {
	now := time.Now().UTC()
	person := &types.Person{ID: uuid.New(), CreatedAt: now.Add(-100 * 24 * time.Hour)}

	got := newScorer().Score(person, RiskSignals{
		Sentiments:    []*types.SentimentRecord{sentimentRec(types.SentimentVeryNegative, 1.0, now)},
		ActivityCount: 0,
		Now:           now,
	})
	if got.Score > 100 {
		t.Fatalf("score exceeded 100: %.2f", got.Score)
	}
}
