package scoring

import (
	"github.com/veritax-advisory/taxhealth-cli/internal/config"
	"github.com/veritax-advisory/taxhealth-cli/internal/model"
)

// ComputeImpact derives the monetary projections from the snapshot. It
// reads the signals directly; no dimension score feeds into it.
func ComputeImpact(snap *model.SignalSnapshot, cfg config.ScoringConfig) model.FinancialImpact {
	unclaimed := snap.UnclaimedCredits()

	// Savings from a regime comparison are only claimed when a statement
	// exists to base the estimate on. Unclaimed credits count in full
	// either way.
	var savings float64
	if !snap.RegimeAnalysisDone && snap.Statement != nil {
		savings = cfg.SavingsRate * deductionsFigure(snap, cfg)
	}
	savings += unclaimed

	return model.FinancialImpact{
		PotentialSavings: savings,
		AuditExposure:    auditExposure(snap, cfg),
		UnclaimedCredits: unclaimed,
	}
}

// deductionsFigure returns the statement's deductions amount, or 15% of
// annualized revenue when the statement carries no deductions ratio.
func deductionsFigure(snap *model.SignalSnapshot, cfg config.ScoringConfig) float64 {
	if snap.Statement != nil && snap.Statement.DeductionsRatio != nil {
		return snap.Statement.GrossRevenue * *snap.Statement.DeductionsRatio
	}
	return cfg.SavingsRate * AnnualizedRevenue(snap, cfg)
}

// auditExposure applies the fiscal-standing rate to annualized revenue.
// Only adverse standings carry exposure.
func auditExposure(snap *model.SignalSnapshot, cfg config.ScoringConfig) float64 {
	var rate float64
	switch snap.SelfReported.FiscalStanding {
	case model.StandingNotified:
		rate = cfg.NotifiedExposureRate
	case model.StandingPending:
		rate = cfg.PendingExposureRate
	default:
		return 0
	}
	return rate * AnnualizedRevenue(snap, cfg)
}

// AnnualizedRevenue resolves yearly revenue through the documented
// fallback chain: statement gross revenue x12, then profile monthly
// revenue x12, then the fixed conservative default.
func AnnualizedRevenue(snap *model.SignalSnapshot, cfg config.ScoringConfig) float64 {
	if snap.Statement != nil && snap.Statement.GrossRevenue > 0 {
		return snap.Statement.GrossRevenue * 12
	}
	if snap.Profile.MonthlyRevenue > 0 {
		return snap.Profile.MonthlyRevenue * 12
	}
	return cfg.DefaultAnnualRevenue
}
