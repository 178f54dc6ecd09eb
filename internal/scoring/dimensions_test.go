package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veritax-advisory/taxhealth-cli/internal/model"
)

func ptrFloat64(v float64) *float64 { return &v }

// emptySnapshot is the all-fields-absent case: unknown answers, no
// documents, no statement, no credits, no regime analysis.
func emptySnapshot() *model.SignalSnapshot {
	return &model.SignalSnapshot{
		Profile: model.CompanyProfile{CompanyID: "co-1"},
		SelfReported: model.SelfReported{
			FiscalStanding: model.StandingUnknown,
			Certificates:   model.CertificatesUnknown,
			Obligations:    model.ObligationsUnknown,
			Controls:       model.ControlsUnknown,
		},
	}
}

func healthySnapshot() *model.SignalSnapshot {
	return &model.SignalSnapshot{
		Profile: model.CompanyProfile{CompanyID: "co-2", MonthlyRevenue: 80_000},
		SelfReported: model.SelfReported{
			FiscalStanding: model.StandingRegular,
			Certificates:   model.CertificatesValid,
			Obligations:    model.ObligationsOnTime,
			Controls:       model.ControlsSystem,
		},
		Documents: &model.DocumentActivity{Count: 650},
		Statement: &model.FinancialStatement{
			GrossRevenue:    85_000,
			DeductionsRatio: ptrFloat64(0.08),
		},
		Credits:            &model.CreditRecovery{UnclaimedTotal: 0},
		RegimeAnalysisDone: true,
	}
}

func TestScoreCompliance(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		reported model.SelfReported
		wantRaw  float64
		want     float64
	}{
		{
			"all best answers",
			model.SelfReported{
				FiscalStanding: model.StandingRegular,
				Certificates:   model.CertificatesValid,
				Obligations:    model.ObligationsOnTime,
			},
			250, 100,
		},
		{
			"all unknown",
			model.SelfReported{
				FiscalStanding: model.StandingUnknown,
				Certificates:   model.CertificatesUnknown,
				Obligations:    model.ObligationsUnknown,
			},
			140, 56,
		},
		{
			"all worst answers",
			model.SelfReported{
				FiscalStanding: model.StandingNotified,
				Certificates:   model.CertificatesExpired,
				Obligations:    model.ObligationsOftenLate,
			},
			25, 10,
		},
		{
			"mixed",
			model.SelfReported{
				FiscalStanding: model.StandingPending,
				Certificates:   model.CertificatesInstallment,
				Obligations:    model.ObligationsSometimesLate,
			},
			135, 54,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := emptySnapshot()
			snap.SelfReported = tt.reported

			got := scoreCompliance(snap, cfg)
			assert.Equal(t, DimCompliance, got.Name)
			assert.InDelta(t, tt.wantRaw, got.RawPoints, 0.01)
			assert.InDelta(t, tt.want, got.Score, 0.01)
			assert.InDelta(t, cfg.ComplianceWeight, got.Weight, 0.001)
		})
	}
}

func TestScoreComplianceTotalOverMalformedAnswers(t *testing.T) {
	snap := emptySnapshot()
	snap.SelfReported.FiscalStanding = model.FiscalStanding("garbage")
	snap.SelfReported.Certificates = model.CertificateStatus("???")
	snap.SelfReported.Obligations = model.ObligationTiming("")

	got := scoreCompliance(snap, DefaultConfig())

	// malformed answers score as unknown
	assert.InDelta(t, 140, got.RawPoints, 0.01)
	assert.InDelta(t, 56, got.Score, 0.01)
}

func TestScoreEfficiency(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name    string
		mutate  func(*model.SignalSnapshot)
		wantRaw float64
	}{
		{
			"nothing on file",
			func(s *model.SignalSnapshot) {},
			// regime 20 + no-statement 40 + no credits 100
			160,
		},
		{
			"regime done, low ratio, no credits",
			func(s *model.SignalSnapshot) {
				s.RegimeAnalysisDone = true
				s.Statement = &model.FinancialStatement{GrossRevenue: 50_000, DeductionsRatio: ptrFloat64(0.05)}
			},
			// 80 + 70 + 100
			250,
		},
		{
			"high unclaimed credits",
			func(s *model.SignalSnapshot) {
				s.Credits = &model.CreditRecovery{UnclaimedTotal: 45_000}
			},
			// 20 + 40 + 30
			90,
		},
		{
			"small unclaimed credits",
			func(s *model.SignalSnapshot) {
				s.Credits = &model.CreditRecovery{UnclaimedTotal: 500}
			},
			// 20 + 40 + 60
			120,
		},
		{
			"statement without ratio",
			func(s *model.SignalSnapshot) {
				s.Statement = &model.FinancialStatement{GrossRevenue: 50_000}
			},
			// 20 + 40 + 100
			160,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := emptySnapshot()
			tt.mutate(snap)

			got := scoreEfficiency(snap, cfg)
			assert.InDelta(t, tt.wantRaw, got.RawPoints, 0.01)
			assert.InDelta(t, tt.wantRaw/2.5, got.Score, 0.01)
		})
	}
}

func TestDeductionRatioPoints(t *testing.T) {
	tests := []struct {
		name string
		stmt *model.FinancialStatement
		want float64
	}{
		{"no statement", nil, 40},
		{"no ratio", &model.FinancialStatement{GrossRevenue: 10_000}, 40},
		{"very low ratio", &model.FinancialStatement{DeductionsRatio: ptrFloat64(0.05)}, 70},
		{"boundary 0.10 falls to next tier", &model.FinancialStatement{DeductionsRatio: ptrFloat64(0.10)}, 55},
		{"mid ratio", &model.FinancialStatement{DeductionsRatio: ptrFloat64(0.15)}, 55},
		{"high ratio", &model.FinancialStatement{DeductionsRatio: ptrFloat64(0.25)}, 40},
		{"very high ratio", &model.FinancialStatement{DeductionsRatio: ptrFloat64(0.9)}, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, deductionRatioPoints(tt.stmt), 0.01)
		})
	}
}

func TestCreditPoints(t *testing.T) {
	tests := []struct {
		name      string
		unclaimed float64
		want      float64
	}{
		{"none", 0, 100},
		{"small", 1, 60},
		{"at threshold", 10_000, 60},
		{"over threshold", 10_001, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, creditPoints(tt.unclaimed), 0.01)
		})
	}
}

func TestScoreRisk(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		reported model.SelfReported
		wantRaw  float64
	}{
		{
			"no adverse answers",
			model.SelfReported{
				FiscalStanding: model.StandingRegular,
				Certificates:   model.CertificatesValid,
				Obligations:    model.ObligationsOnTime,
			},
			200,
		},
		{
			// unknown answers carry no penalty either
			"all unknown",
			model.SelfReported{
				FiscalStanding: model.StandingUnknown,
				Certificates:   model.CertificatesUnknown,
				Obligations:    model.ObligationsUnknown,
			},
			200,
		},
		{
			"notified only",
			model.SelfReported{FiscalStanding: model.StandingNotified},
			120,
		},
		{
			"everything wrong",
			model.SelfReported{
				FiscalStanding: model.StandingNotified,
				Certificates:   model.CertificatesExpired,
				Obligations:    model.ObligationsOftenLate,
			},
			0,
		},
		{
			"milder adverse set",
			model.SelfReported{
				FiscalStanding: model.StandingPending,
				Certificates:   model.CertificatesInstallment,
				Obligations:    model.ObligationsSometimesLate,
			},
			110,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := emptySnapshot()
			snap.SelfReported = tt.reported

			got := scoreRisk(snap, cfg)
			assert.InDelta(t, tt.wantRaw, got.RawPoints, 0.01)
			assert.InDelta(t, tt.wantRaw/2, got.Score, 0.01)
			assert.GreaterOrEqual(t, got.Score, 0.0)
		})
	}
}

func TestScoreDocumentation(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name      string
		docs      *model.DocumentActivity
		stmt      *model.FinancialStatement
		wantRaw   float64
		wantScore float64
	}{
		{"nothing", nil, nil, 0, 0},
		{"one document", &model.DocumentActivity{Count: 1}, nil, 40, 40.0 / 1.5},
		{"hundred documents", &model.DocumentActivity{Count: 100}, nil, 70, 70.0 / 1.5},
		{"five hundred documents", &model.DocumentActivity{Count: 500}, nil, 100, 100.0 / 1.5},
		{"statement only", nil, &model.FinancialStatement{}, 50, 50.0 / 1.5},
		{"full house", &model.DocumentActivity{Count: 900}, &model.FinancialStatement{}, 150, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := emptySnapshot()
			snap.Documents = tt.docs
			snap.Statement = tt.stmt

			got := scoreDocumentation(snap, cfg)
			assert.InDelta(t, tt.wantRaw, got.RawPoints, 0.01)
			assert.InDelta(t, tt.wantScore, got.Score, 0.01)
		})
	}
}

func TestScoreManagement(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		controls model.ControlsMaturity
		want     float64
	}{
		{"system", model.ControlsSystem, 95},
		{"accountant", model.ControlsAccountant, 75},
		{"manual", model.ControlsManual, 45},
		{"none", model.ControlsNone, 15},
		{"unknown", model.ControlsUnknown, 50},
		{"malformed", model.ControlsMaturity("spreadsheet"), 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := emptySnapshot()
			snap.SelfReported.Controls = tt.controls

			got := scoreManagement(snap, cfg)
			assert.InDelta(t, tt.want, got.Score, 0.01)
		})
	}
}

func TestPartialCredit(t *testing.T) {
	raw, score := partialCredit([]float64{80, 80, 90}, 2.5)
	assert.InDelta(t, 250, raw, 0.001)
	assert.InDelta(t, 100, score, 0.001)

	_, score = partialCredit([]float64{300}, 2.5)
	assert.InDelta(t, 100, score, 0.001) // clamped

	raw, score = partialCredit([]float64{50}, 0)
	assert.InDelta(t, 50, raw, 0.001)
	assert.InDelta(t, 0, score, 0.001)
}
