package scoring

import (
	"math"

	"go.uber.org/zap"

	"github.com/veritax-advisory/taxhealth-cli/internal/config"
	"github.com/veritax-advisory/taxhealth-cli/internal/model"
)

// Engine computes health scores from signal snapshots. It is stateless and
// safe for concurrent use; all rules come from the config captured at
// construction.
type Engine struct {
	cfg config.ScoringConfig
}

// NewEngine creates an Engine with the given scoring config.
func NewEngine(cfg config.ScoringConfig) *Engine {
	return &Engine{cfg: cfg}
}

// ComputeScore produces the full scoring result for one snapshot. It is
// pure and total: no I/O, no clock, no randomness, and a valid result for
// any snapshot including the all-fields-absent case.
func (e *Engine) ComputeScore(snap *model.SignalSnapshot) model.ScoreResult {
	dims := []model.DimensionScore{
		scoreCompliance(snap, e.cfg),
		scoreEfficiency(snap, e.cfg),
		scoreRisk(snap, e.cfg),
		scoreDocumentation(snap, e.cfg),
		scoreManagement(snap, e.cfg),
	}

	total := aggregate(dims)

	result := model.ScoreResult{
		CompanyID:  snap.Profile.CompanyID,
		TotalScore: total,
		Grade:      gradeFor(total),
		Status:     statusFor(total),
		Dimensions: dims,
		Impact:     ComputeImpact(snap, e.cfg),
		Actions:    Recommend(snap, e.cfg),
		Counters:   counters(snap),
	}

	zap.L().Debug("scoring: computed health score",
		zap.String("company_id", snap.Profile.CompanyID),
		zap.Int("total_score", total),
		zap.String("grade", string(result.Grade)),
		zap.String("status", string(result.Status)),
		zap.Int("actions", len(result.Actions)),
	)

	return result
}

// aggregate combines the dimension scores with their weights into one
// 0-100 integer.
func aggregate(dims []model.DimensionScore) int {
	var weighted, weightSum float64
	for _, d := range dims {
		weighted += d.Score * d.Weight
		weightSum += d.Weight
	}
	if weightSum <= 0 {
		return 0
	}
	total := int(math.Round(weighted / weightSum))
	if total < 0 {
		return 0
	}
	if total > 100 {
		return 100
	}
	return total
}

// gradeFor maps a total score to a letter grade, highest threshold first.
func gradeFor(total int) model.Grade {
	for _, t := range gradeThresholds {
		if total >= t.Min {
			return t.Grade
		}
	}
	return model.GradeE
}

// statusFor maps a total score to its qualitative band, highest first.
func statusFor(total int) model.Status {
	for _, t := range statusThresholds {
		if total >= t.Min {
			return t.Status
		}
	}
	return model.StatusCritical
}

func counters(snap *model.SignalSnapshot) model.CompletionCounters {
	return model.CompletionCounters{
		QuestionsAnswered:  snap.SelfReported.AnsweredCount(),
		QuestionsTotal:     model.QuestionCount,
		DocumentsImported:  snap.DocumentCount(),
		HasStatement:       snap.Statement != nil,
		RegimeAnalysisDone: snap.RegimeAnalysisDone,
	}
}
