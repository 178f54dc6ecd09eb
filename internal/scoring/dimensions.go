package scoring

import (
	"math"

	"github.com/veritax-advisory/taxhealth-cli/internal/config"
	"github.com/veritax-advisory/taxhealth-cli/internal/model"
)

// partialCredit sums the earned tier points, divides by the weight divisor,
// and clamps to [0,100]. Every divider-style dimension (and the readiness
// checklist) normalizes through this one helper.
func partialCredit(points []float64, divisor float64) (raw, score float64) {
	for _, p := range points {
		raw += p
	}
	if divisor <= 0 {
		return raw, 0
	}
	score = raw / divisor
	return raw, clamp(score)
}

func clamp(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}

// answerPoints looks up the tier points for a qualitative answer. Values
// outside the closed set score as unknown, keeping the engine total even
// for snapshots built without the Parse helpers.
func answerPoints[K comparable](table map[K]float64, answer, unknown K) float64 {
	if p, ok := table[answer]; ok {
		return p
	}
	return table[unknown]
}

// scoreCompliance sums the three independently-tiered qualitative answers.
// Max raw sum 250 (80 + 80 + 90), divided by 2.5.
func scoreCompliance(snap *model.SignalSnapshot, cfg config.ScoringConfig) model.DimensionScore {
	raw, score := partialCredit([]float64{
		answerPoints(fiscalStandingPoints, snap.SelfReported.FiscalStanding, model.StandingUnknown),
		answerPoints(certificatePoints, snap.SelfReported.Certificates, model.CertificatesUnknown),
		answerPoints(obligationPoints, snap.SelfReported.Obligations, model.ObligationsUnknown),
	}, 2.5)

	return model.DimensionScore{
		Name:      DimCompliance,
		RawPoints: raw,
		Score:     score,
		Weight:    cfg.ComplianceWeight,
	}
}

// scoreEfficiency rewards having compared tax regimes, a low deduction
// ratio, and little money left in unclaimed credits. Max raw sum 250.
func scoreEfficiency(snap *model.SignalSnapshot, cfg config.ScoringConfig) model.DimensionScore {
	regime := float64(regimeAnalysisNonePoints)
	if snap.RegimeAnalysisDone {
		regime = regimeAnalysisDonePoints
	}

	raw, score := partialCredit([]float64{
		regime,
		deductionRatioPoints(snap.Statement),
		creditPoints(snap.UnclaimedCredits()),
	}, 2.5)

	return model.DimensionScore{
		Name:      DimEfficiency,
		RawPoints: raw,
		Score:     score,
		Weight:    cfg.EfficiencyWeight,
	}
}

// deductionRatioPoints walks the ratio tiers most-favorable-first; the
// first matching tier wins. A missing statement (or a statement without a
// ratio) falls back to the flat mid-range value.
func deductionRatioPoints(stmt *model.FinancialStatement) float64 {
	if stmt == nil || stmt.DeductionsRatio == nil {
		return noStatementDeductionPoints
	}
	ratio := *stmt.DeductionsRatio
	for _, tier := range deductionRatioTiers {
		if ratio < tier.Below {
			return tier.Points
		}
	}
	return deductionRatioTiers[len(deductionRatioTiers)-1].Points
}

// creditPoints scores inversely on the unclaimed-credit total: identified
// credits sitting unclaimed are an efficiency failure, not an asset.
func creditPoints(unclaimed float64) float64 {
	switch {
	case unclaimed > highCreditThreshold:
		return highCreditPoints
	case unclaimed > 0:
		return someCreditPoints
	default:
		return noCreditPoints
	}
}

// scoreRisk starts from a 200-point ceiling and subtracts a fixed penalty
// per adverse answer. It measures how little is wrong, not how much is
// right, so missing answers cost nothing here.
func scoreRisk(snap *model.SignalSnapshot, cfg config.ScoringConfig) model.DimensionScore {
	raw := float64(riskCeiling)

	switch snap.SelfReported.FiscalStanding {
	case model.StandingNotified:
		raw -= penaltyNotified
	case model.StandingPending:
		raw -= penaltyPending
	}

	switch snap.SelfReported.Certificates {
	case model.CertificatesExpired:
		raw -= penaltyCertExpired
	case model.CertificatesInstallment:
		raw -= penaltyCertInstallment
	}

	switch snap.SelfReported.Obligations {
	case model.ObligationsOftenLate:
		raw -= penaltyOftenLate
	case model.ObligationsSometimesLate:
		raw -= penaltySometimesLate
	}

	if raw < 0 {
		raw = 0
	}

	return model.DimensionScore{
		Name:      DimRisk,
		RawPoints: raw,
		Score:     clamp(raw / 2),
		Weight:    cfg.RiskWeight,
	}
}

// scoreDocumentation tiers on import volume plus a flat bonus for having
// any financial statement on file. Max raw sum 150.
func scoreDocumentation(snap *model.SignalSnapshot, cfg config.ScoringConfig) model.DimensionScore {
	var volume float64
	count := snap.DocumentCount()
	for _, tier := range documentTiers {
		if count >= tier.AtLeast {
			volume = tier.Points
			break
		}
	}

	var bonus float64
	if snap.Statement != nil {
		bonus = statementBonusPoints
	}

	raw, score := partialCredit([]float64{volume, bonus}, 1.5)

	return model.DimensionScore{
		Name:      DimDocumentation,
		RawPoints: raw,
		Score:     score,
		Weight:    cfg.DocumentationWeight,
	}
}

// scoreManagement maps the single controls-maturity answer straight onto
// the 0-100 scale; the weight is already folded into the tier values.
func scoreManagement(snap *model.SignalSnapshot, cfg config.ScoringConfig) model.DimensionScore {
	points := answerPoints(controlsPoints, snap.SelfReported.Controls, model.ControlsUnknown)

	return model.DimensionScore{
		Name:      DimManagement,
		RawPoints: points,
		Score:     clamp(points),
		Weight:    cfg.ManagementWeight,
	}
}
