package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/onboardhq/pulse-backend/internal/logger"
	"github.com/onboardhq/pulse-backend/internal/repos"
	"github.com/onboardhq/pulse-backend/internal/types"
)

// Factor weights. Factors without any signal are excluded and the composite is
// renormalized over the weights that remain, so a person with only negative
// sentiment data is not diluted by factors we know nothing about.
const (
	weightSentiment = 0.30
	weightProgress  = 0.25
	weightActivity  = 0.20
	weightPattern   = 0.15
	weightFeedback  = 0.10
)

const (
	factorSentiment = "sentiment"
	factorProgress  = "progress"
	factorActivity  = "activity"
	factorPattern   = "pattern"
	factorFeedback  = "feedback"
)

// RiskSignals is everything the scorer looks at for one person. Sentiments
// must be ordered oldest first.
type RiskSignals struct {
	Sentiments    []*types.SentimentRecord
	Tracks        []*types.TrackProgress
	Annotations   []*types.Annotation
	ActivityCount int64
	Now           time.Time
}

type RiskScorer interface {
	// Assess gathers the person's signals inside the lookback window and
	// scores them. The lookback bounds sentiment and annotation history;
	// track state and lifetime activity are not windowed.
	Assess(ctx context.Context, tx *gorm.DB, person *types.Person, lookback time.Duration) (*types.RiskAssessment, error)
	// Score computes an assessment from pre-gathered signals. Pure.
	Score(person *types.Person, sig RiskSignals) *types.RiskAssessment
}

type riskScorer struct {
	log            *logger.Logger
	sentimentRepo  repos.SentimentRecordRepo
	trackRepo      repos.TrackProgressRepo
	annotationRepo repos.AnnotationRepo
	activityRepo   repos.ActivityRecordRepo
}

func NewRiskScorer(
	log *logger.Logger,
	sentimentRepo repos.SentimentRecordRepo,
	trackRepo repos.TrackProgressRepo,
	annotationRepo repos.AnnotationRepo,
	activityRepo repos.ActivityRecordRepo,
) RiskScorer {
	return &riskScorer{
		log:            log.With("service", "RiskScorer"),
		sentimentRepo:  sentimentRepo,
		trackRepo:      trackRepo,
		annotationRepo: annotationRepo,
		activityRepo:   activityRepo,
	}
}

func (s *riskScorer) Assess(ctx context.Context, tx *gorm.DB, person *types.Person, lookback time.Duration) (*types.RiskAssessment, error) {
	now := time.Now().UTC()
	if lookback <= 0 {
		lookback = 30 * 24 * time.Hour
	}
	since := now.Add(-lookback)

	sentiments, err := s.sentimentRepo.ListByPersonSince(ctx, tx, person.TenantID, person.ID, since)
	if err != nil {
		return nil, fmt.Errorf("list sentiments: %w", err)
	}
	tracks, err := s.trackRepo.ListByPerson(ctx, tx, person.TenantID, person.ID)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	annotations, err := s.annotationRepo.ListByPersonSince(ctx, tx, person.TenantID, person.ID, since)
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	activityCount, err := s.activityRepo.CountByPerson(ctx, tx, person.TenantID, person.ID)
	if err != nil {
		return nil, fmt.Errorf("count activity: %w", err)
	}

	return s.Score(person, RiskSignals{
		Sentiments:    sentiments,
		Tracks:        tracks,
		Annotations:   annotations,
		ActivityCount: activityCount,
		Now:           now,
	}), nil
}

func (s *riskScorer) Score(person *types.Person, sig RiskSignals) *types.RiskAssessment {
	now := sig.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	assessment := &types.RiskAssessment{
		Factors:   []string{},
		Actions:   []string{},
		Breakdown: []types.FactorScore{},
	}

	var weighted float64

	addFactor := func(name string, sub, weight float64) {
		assessment.Breakdown = append(assessment.Breakdown, types.FactorScore{
			Name:   name,
			Score:  sub,
			Weight: weight,
		})
		weighted += sub * weight
		assessment.ActiveWeight += weight
	}

	if len(sig.Sentiments) > 0 {
		sub := s.scoreSentiment(sig.Sentiments, assessment)
		addFactor(factorSentiment, sub, weightSentiment)
	}
	if len(sig.Tracks) > 0 {
		sub := s.scoreProgress(sig.Tracks, now, assessment)
		addFactor(factorProgress, sub, weightProgress)
	}
	if person.LastActivityAt != nil || sig.ActivityCount > 0 {
		sub := s.scoreActivity(person, sig.ActivityCount, now, assessment)
		addFactor(factorActivity, sub, weightActivity)
	}
	if len(sig.Annotations) > 0 {
		patternSub := s.scorePattern(sig.Annotations, assessment)
		addFactor(factorPattern, patternSub, weightPattern)

		feedbackSub := s.scoreFeedback(sig.Annotations, assessment)
		addFactor(factorFeedback, feedbackSub, weightFeedback)
	}

	if assessment.ActiveWeight > 0 {
		assessment.Score = clamp(weighted/assessment.ActiveWeight, 0, 100)
	}
	assessment.Level = types.RiskLevelForScore(assessment.Score)
	return assessment
}

func sentimentBase(label string) float64 {
	switch label {
	case types.SentimentVeryNegative:
		return 90
	case types.SentimentNegative:
		return 75
	case types.SentimentNeutral:
		return 35
	case types.SentimentPositive:
		return 10
	default: // very_positive or unknown
		return 0
	}
}

// scoreSentiment rates the latest reading plus the trend across up to the
// three most recent samples.
func (s *riskScorer) scoreSentiment(records []*types.SentimentRecord, out *types.RiskAssessment) float64 {
	latest := records[len(records)-1]
	sub := sentimentBase(latest.Label)
	if types.IsNegativeSentiment(latest.Label) {
		sub += 20 * latest.Intensity
		out.Factors = append(out.Factors, fmt.Sprintf("current sentiment is %s (intensity %.2f)", latest.Label, latest.Intensity))
		out.Actions = append(out.Actions, "schedule a check-in conversation within 24 hours")
	}

	window := records
	if len(window) > 3 {
		window = window[len(window)-3:]
	}
	if len(window) >= 2 {
		oldest := window[0]
		delta := sentimentBase(latest.Label) - sentimentBase(oldest.Label)
		if delta > 20 {
			sub += 20
			out.Factors = append(out.Factors, fmt.Sprintf("sentiment worsening: %s -> %s", oldest.Label, latest.Label))
			out.Actions = append(out.Actions, "review recent interactions for the cause of the sentiment drop")
		} else if delta < -20 {
			sub -= 10
		}
	}

	return clamp(sub, 0, 100)
}

// scoreProgress rates overdue tracks and completion pace. Average completion
// is computed over non-overdue tracks only so an extra overdue track can never
// lower the sub-score; when every track is overdue the average counts as zero.
func (s *riskScorer) scoreProgress(tracks []*types.TrackProgress, now time.Time, out *types.RiskAssessment) float64 {
	var sub float64

	overdue := 0
	inProgress := 0
	var pctSum float64
	notOverdue := 0
	for _, t := range tracks {
		if t.IsOverdue(now) {
			overdue++
		} else {
			pctSum += t.PercentComplete
			notOverdue++
		}
		if t.Status == types.TrackInProgress {
			inProgress++
		}
	}

	if overdue > 0 {
		sub += minF(15*float64(overdue), 45)
		out.Factors = append(out.Factors, fmt.Sprintf("%d overdue track(s)", overdue))
		out.Actions = append(out.Actions, "re-plan overdue tracks with adjusted due dates")
	}

	avgPct := 0.0
	if notOverdue > 0 {
		avgPct = pctSum / float64(notOverdue)
	}
	if avgPct < 30 {
		sub += 25
		if notOverdue > 0 {
			out.Factors = append(out.Factors, fmt.Sprintf("average completion is low (%.0f%%)", avgPct))
		}
	}

	if inProgress > 3 {
		sub += 20
		out.Factors = append(out.Factors, fmt.Sprintf("%d tracks in progress at once", inProgress))
		out.Actions = append(out.Actions, "reduce the number of concurrently assigned tracks")
	}

	return clamp(sub, 0, 100)
}

// scoreActivity rates how long the person has been silent and how thin their
// lifetime engagement is. The two escalators are independent. Only consulted
// for people with an activity signal; a person who has never produced one is
// not penalized for the silence.
func (s *riskScorer) scoreActivity(person *types.Person, lifetimeCount int64, now time.Time, out *types.RiskAssessment) float64 {
	var sub float64

	anchor := person.CreatedAt
	if person.LastActivityAt != nil {
		anchor = *person.LastActivityAt
	}
	days := now.Sub(anchor).Hours() / 24

	if days > 5 {
		sub += minF(5*days, 50)
		out.Factors = append(out.Factors, fmt.Sprintf("no activity for %.0f days", days))
		out.Actions = append(out.Actions, "reach out directly to re-engage")
	}
	if lifetimeCount == 0 {
		sub += 40
		out.Factors = append(out.Factors, "no recorded activity at all")
	}
	if lifetimeCount < 3 {
		sub += 20
	}

	return clamp(sub, 0, 100)
}

// scorePattern rates repeated structural annotations.
func (s *riskScorer) scorePattern(annotations []*types.Annotation, out *types.RiskAssessment) float64 {
	var sub float64

	difficulty := 0
	orgCount := 0
	var orgIntensitySum float64
	for _, a := range annotations {
		switch a.Category {
		case types.AnnotationContentDifficulty:
			difficulty++
		case types.AnnotationOrgSentiment:
			orgCount++
			orgIntensitySum += a.Intensity
		}
	}

	if difficulty >= 2 {
		sub += 25
		out.Factors = append(out.Factors, fmt.Sprintf("content difficulty flagged %d times", difficulty))
		out.Actions = append(out.Actions, "review content difficulty for this person's tracks")
	}
	if orgCount >= 2 && orgIntensitySum/float64(orgCount) >= 0.6 {
		sub += 30
		out.Factors = append(out.Factors, "repeated strong concerns about the organization")
		out.Actions = append(out.Actions, "escalate organizational concerns to leadership")
	}

	return clamp(sub, 0, 100)
}

// scoreFeedback rates negative direct feedback.
func (s *riskScorer) scoreFeedback(annotations []*types.Annotation, out *types.RiskAssessment) float64 {
	var sub float64

	negative := 0
	problemTags := 0
	for _, a := range annotations {
		if types.IsNegativeSentiment(a.Sentiment) {
			negative++
		}
		problemTags += countTag(a.Tags, "problem")
	}

	if negative >= 2 {
		sub += 20
		out.Factors = append(out.Factors, fmt.Sprintf("%d negative feedback entries", negative))
		out.Actions = append(out.Actions, "follow up on negative feedback items")
	}
	if problemTags >= 3 {
		sub += 15
		out.Factors = append(out.Factors, "recurring problem tags in feedback")
	}

	return clamp(sub, 0, 100)
}

func countTag(raw []byte, tag string) int {
	if len(raw) == 0 {
		return 0
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return 0
	}
	n := 0
	for _, t := range tags {
		if t == tag {
			n++
		}
	}
	return n
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
