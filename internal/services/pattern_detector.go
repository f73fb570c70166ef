package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/onboardhq/pulse-backend/internal/logger"
	"github.com/onboardhq/pulse-backend/internal/repos"
	"github.com/onboardhq/pulse-backend/internal/types"
)

const (
	PatternSourceAlerts      = "alerts"
	PatternSourceAnnotations = "annotations"
)

// Pattern is a recurring category of trouble across a tenant within a window.
type Pattern struct {
	Category        string      `json:"category"`
	Source          string      `json:"source"`
	Frequency       int         `json:"frequency"`
	MeanSeverity    float64     `json:"mean_severity"` // 0..4 scale
	AffectedPersons []uuid.UUID `json:"affected_persons"`
}

type PatternDetector interface {
	// Detect scans the tenant's alerts and annotations created inside the
	// window and reports categories recurring at least minOccurrences times.
	Detect(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, window time.Duration, minOccurrences int) ([]Pattern, error)
}

type patternDetector struct {
	log            *logger.Logger
	alertRepo      repos.AlertRepo
	annotationRepo repos.AnnotationRepo
}

func NewPatternDetector(log *logger.Logger, alertRepo repos.AlertRepo, annotationRepo repos.AnnotationRepo) PatternDetector {
	return &patternDetector{
		log:            log.With("service", "PatternDetector"),
		alertRepo:      alertRepo,
		annotationRepo: annotationRepo,
	}
}

func (d *patternDetector) Detect(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, window time.Duration, minOccurrences int) ([]Pattern, error) {
	since := time.Now().UTC().Add(-window)

	alerts, err := d.alertRepo.ListSince(ctx, tx, tenantID, since)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	annotations, err := d.annotationRepo.ListByTenantSince(ctx, tx, tenantID, since)
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}

	patterns := DetectPatterns(alerts, annotations, minOccurrences)
	d.log.Debug("Pattern scan complete",
		"tenant_id", tenantID.String(),
		"alerts", len(alerts),
		"annotations", len(annotations),
		"patterns", len(patterns),
	)
	return patterns, nil
}

type patternAcc struct {
	frequency   int
	severitySum float64
	persons     map[uuid.UUID]struct{}
}

// DetectPatterns groups alerts by category and annotations by category, keeping
// groups that recur at least minOccurrences times. Pure; ordered by frequency
// descending, category ascending on ties.
func DetectPatterns(alerts []*types.Alert, annotations []*types.Annotation, minOccurrences int) []Pattern {
	if minOccurrences < 1 {
		minOccurrences = 1
	}

	byKey := map[string]*patternAcc{}
	add := func(source, category string, severity float64, personID *uuid.UUID) {
		key := source + "/" + category
		acc := byKey[key]
		if acc == nil {
			acc = &patternAcc{persons: map[uuid.UUID]struct{}{}}
			byKey[key] = acc
		}
		acc.frequency++
		acc.severitySum += severity
		if personID != nil {
			acc.persons[*personID] = struct{}{}
		}
	}

	for _, a := range alerts {
		add(PatternSourceAlerts, a.Category, float64(types.SeverityRank(a.Severity)), a.PersonID)
	}
	for _, a := range annotations {
		// annotation intensity lives in [0,1]; scale to the severity range
		personID := a.PersonID
		add(PatternSourceAnnotations, a.Category, a.Intensity*4, &personID)
	}

	var out []Pattern
	for key, acc := range byKey {
		if acc.frequency < minOccurrences {
			continue
		}
		var source, category string
		for i := 0; i < len(key); i++ {
			if key[i] == '/' {
				source = key[:i]
				category = key[i+1:]
				break
			}
		}
		persons := make([]uuid.UUID, 0, len(acc.persons))
		for id := range acc.persons {
			persons = append(persons, id)
		}
		sort.Slice(persons, func(i, j int) bool { return persons[i].String() < persons[j].String() })
		out = append(out, Pattern{
			Category:        category,
			Source:          source,
			Frequency:       acc.frequency,
			MeanSeverity:    acc.severitySum / float64(acc.frequency),
			AffectedPersons: persons,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Category < out[j].Category
	})
	return out
}
