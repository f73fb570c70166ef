package types

const (
	RiskLevelLow      = "low"
	RiskLevelMedium   = "medium"
	RiskLevelHigh     = "high"
	RiskLevelCritical = "critical"
)

// RiskLevelForScore maps a composite score to its coarse bucket.
func RiskLevelForScore(score float64) string {
	switch {
	case score >= 80:
		return RiskLevelCritical
	case score >= 60:
		return RiskLevelHigh
	case score >= 30:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// FactorScore is one factor's raw sub-score and its configured weight,
// returned so the composite can be reconstructed for audit.
type FactorScore struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`  // [0,100]
	Weight float64 `json:"weight"` // configured weight
}

// RiskAssessment is computed on demand and never persisted as its own entity;
// only the person's refreshed score and any alert it triggers are written.
type RiskAssessment struct {
	Score     float64       `json:"score"` // [0,100]
	Level     string        `json:"level"`
	Factors   []string      `json:"factors"`
	Actions   []string      `json:"actions"`
	Breakdown []FactorScore `json:"breakdown"`
	// ActiveWeight is the sum of weights of factors that had any signal.
	// Composite = clamp(sum(score_i * weight_i) / ActiveWeight).
	ActiveWeight float64 `json:"active_weight"`
}
