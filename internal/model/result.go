package model

import "time"

// Grade is the letter grade derived from the total score.
type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeBPlus Grade = "B+"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
	GradeD     Grade = "D"
	GradeE     Grade = "E"
)

// Status is the coarser qualitative band derived from the total score.
type Status string

const (
	StatusExcellent Status = "excellent"
	StatusGood      Status = "good"
	StatusRegular   Status = "regular"
	StatusAttention Status = "attention"
	StatusCritical  Status = "critical"
)

// DimensionScore is one weighted sub-score of the health score. Computed
// fresh each invocation and never mutated.
type DimensionScore struct {
	Name      string  `json:"name"`
	RawPoints float64 `json:"raw_points"`
	Score     float64 `json:"score"` // normalized to 0-100
	Weight    float64 `json:"weight"`
}

// FinancialImpact holds the monetary projections derived from the snapshot.
// All amounts are non-negative and independent of the dimension scores.
type FinancialImpact struct {
	PotentialSavings float64 `json:"potential_savings"`
	AuditExposure    float64 `json:"audit_exposure"`
	UnclaimedCredits float64 `json:"unclaimed_credits"`
}

// RecommendedAction is one prioritized next step for the company.
type RecommendedAction struct {
	// Code is a stable identifier, unique within one invocation's output.
	// Callers use it to diff against previously-shown recommendations.
	Code               string  `json:"code"`
	Title              string  `json:"title"`
	Description        string  `json:"description"`
	EstimatedScoreGain int     `json:"estimated_score_gain"`
	EstimatedSavings   float64 `json:"estimated_savings"`
	Priority           int     `json:"priority"` // lower = more urgent
	Target             string  `json:"target"`   // opaque routing token for the UI
}

// CompletionCounters reports how much of the company's data is on file.
type CompletionCounters struct {
	QuestionsAnswered  int  `json:"questions_answered"`
	QuestionsTotal     int  `json:"questions_total"`
	DocumentsImported  int  `json:"documents_imported"`
	HasStatement       bool `json:"has_statement"`
	RegimeAnalysisDone bool `json:"regime_analysis_done"`
}

// ScoreResult is the immutable output of one scoring invocation. The engine
// returns it; upserting current state and appending history are the
// caller's responsibility.
type ScoreResult struct {
	CompanyID  string              `json:"company_id"`
	TotalScore int                 `json:"total_score"`
	Grade      Grade               `json:"grade"`
	Status     Status              `json:"status"`
	Dimensions []DimensionScore    `json:"dimensions"`
	Impact     FinancialImpact     `json:"impact"`
	Actions    []RecommendedAction `json:"actions"`
	Counters   CompletionCounters  `json:"counters"`

	// Set by the persistence wrapper, not by the pure compute path.
	ConfigHash string    `json:"config_hash,omitempty"`
	ScoredAt   time.Time `json:"scored_at,omitempty"`
}

// Dimension returns the named dimension score, or a zero value if absent.
func (r *ScoreResult) Dimension(name string) DimensionScore {
	for _, d := range r.Dimensions {
		if d.Name == name {
			return d
		}
	}
	return DimensionScore{}
}
