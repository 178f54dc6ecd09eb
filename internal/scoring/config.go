// Package scoring implements the weighted multi-dimensional tax health
// score, its financial impact estimate, and the recommendation rules.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/veritax-advisory/taxhealth-cli/internal/config"
	"github.com/veritax-advisory/taxhealth-cli/internal/model"
)

// Dimension names used across results, persistence, and tests.
const (
	DimCompliance    = "compliance"
	DimEfficiency    = "efficiency"
	DimRisk          = "risk"
	DimDocumentation = "documentation"
	DimManagement    = "management"
)

// DefaultConfig returns a config.ScoringConfig with the production rules.
// Weights sum to 10.
func DefaultConfig() config.ScoringConfig {
	return config.ScoringConfig{
		ComplianceWeight:    2.5,
		EfficiencyWeight:    2.5,
		RiskWeight:          2.0,
		DocumentationWeight: 1.5,
		ManagementWeight:    1.5,

		MinDocumentCount:     50,
		DefaultAnnualRevenue: 600_000,
		SavingsRate:          0.15,
		NotifiedExposureRate: 0.03,
		PendingExposureRate:  0.01,
	}
}

// WeightSum returns the sum of the five dimension weights.
func WeightSum(c config.ScoringConfig) float64 {
	return c.ComplianceWeight + c.EfficiencyWeight + c.RiskWeight +
		c.DocumentationWeight + c.ManagementWeight
}

// ValidateConfig checks that a ScoringConfig is internally consistent.
func ValidateConfig(c config.ScoringConfig) error {
	var errs []string

	weights := map[string]float64{
		"compliance_weight":    c.ComplianceWeight,
		"efficiency_weight":    c.EfficiencyWeight,
		"risk_weight":          c.RiskWeight,
		"documentation_weight": c.DocumentationWeight,
		"management_weight":    c.ManagementWeight,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	sum := WeightSum(c)
	if sum <= 0 {
		errs = append(errs, "weight sum must be > 0")
	}
	// Weights must stay on the documented 10-point scale (tolerance for
	// floating-point representation of overridden values).
	if math.Abs(sum-10) > 0.01 {
		errs = append(errs, fmt.Sprintf("weights should sum to 10, got %.2f", sum))
	}

	if c.MinDocumentCount < 0 {
		errs = append(errs, "min_document_count must be >= 0")
	}
	if c.DefaultAnnualRevenue < 0 {
		errs = append(errs, "default_annual_revenue must be >= 0")
	}

	rates := map[string]float64{
		"savings_rate":           c.SavingsRate,
		"notified_exposure_rate": c.NotifiedExposureRate,
		"pending_exposure_rate":  c.PendingExposureRate,
	}
	for name, r := range rates {
		if r < 0 || r > 1 {
			errs = append(errs, fmt.Sprintf("%s must be between 0 and 1", name))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("scoring: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Tier tables for the qualitative answers. These are fixed, auditable
// business rules, not deployment knobs. The unknown values are deliberately
// asymmetric (certificates 40/80, obligations 60/90): incomplete profiles
// score optimistically so that "don't know" lands between "good" and "bad"
// rather than at the bottom. Preserve the exact per-field values.
var (
	fiscalStandingPoints = map[model.FiscalStanding]float64{
		model.StandingRegular:  80,
		model.StandingPending:  35,
		model.StandingNotified: 0,
		model.StandingUnknown:  40,
	}

	certificatePoints = map[model.CertificateStatus]float64{
		model.CertificatesValid:       80,
		model.CertificatesInstallment: 50,
		model.CertificatesExpired:     10,
		model.CertificatesUnknown:     40,
	}

	obligationPoints = map[model.ObligationTiming]float64{
		model.ObligationsOnTime:        90,
		model.ObligationsSometimesLate: 50,
		model.ObligationsOftenLate:     15,
		model.ObligationsUnknown:       60,
	}

	controlsPoints = map[model.ControlsMaturity]float64{
		model.ControlsSystem:     95,
		model.ControlsAccountant: 75,
		model.ControlsManual:     45,
		model.ControlsNone:       15,
		model.ControlsUnknown:    50,
	}
)

// Risk penalties, subtracted from the 200-point ceiling.
const (
	riskCeiling = 200

	penaltyNotified        = 80
	penaltyPending         = 40
	penaltyCertExpired     = 60
	penaltyCertInstallment = 20
	penaltyOftenLate       = 60
	penaltySometimesLate   = 30
)

// Efficiency tier points.
const (
	regimeAnalysisDonePoints = 80
	regimeAnalysisNonePoints = 20

	noStatementDeductionPoints = 40
)

// deductionRatioTiers maps deduction-ratio upper bounds to points, most
// favorable (lowest ratio) first. First matching tier wins.
var deductionRatioTiers = []struct {
	Below  float64
	Points float64
}{
	{0.10, 70},
	{0.20, 55},
	{0.30, 40},
	{math.Inf(1), 25},
}

// creditTiers maps unclaimed-credit totals to points: the more money left
// on the table, the lower the efficiency.
const (
	highCreditThreshold = 10_000

	highCreditPoints = 30
	someCreditPoints = 60
	noCreditPoints   = 100
)

// documentTiers maps document-volume lower bounds to points, highest first.
var documentTiers = []struct {
	AtLeast int
	Points  float64
}{
	{500, 100},
	{100, 70},
	{1, 40},
	{0, 0},
}

const statementBonusPoints = 50

// Grade and status thresholds, checked highest-first so boundary values
// land in the upper band.
var gradeThresholds = []struct {
	Min   int
	Grade model.Grade
}{
	{90, model.GradeAPlus},
	{80, model.GradeA},
	{70, model.GradeBPlus},
	{60, model.GradeB},
	{50, model.GradeC},
	{40, model.GradeD},
	{0, model.GradeE},
}

var statusThresholds = []struct {
	Min    int
	Status model.Status
}{
	{80, model.StatusExcellent},
	{60, model.StatusGood},
	{40, model.StatusRegular},
	{20, model.StatusAttention},
	{0, model.StatusCritical},
}
