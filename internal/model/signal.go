// Package model defines the data types exchanged between the signal
// collector, the scoring engine, and its callers.
package model

import "time"

// FiscalStanding describes the company's standing with the tax authority.
type FiscalStanding string

const (
	StandingRegular  FiscalStanding = "regular"
	StandingPending  FiscalStanding = "pending"
	StandingNotified FiscalStanding = "notified"
	StandingUnknown  FiscalStanding = "unknown"
)

// ParseFiscalStanding maps a stored answer onto the closed value set.
// Anything outside the set is treated as unknown rather than rejected, so
// the engine stays total over malformed data.
func ParseFiscalStanding(s string) FiscalStanding {
	switch FiscalStanding(s) {
	case StandingRegular, StandingPending, StandingNotified:
		return FiscalStanding(s)
	default:
		return StandingUnknown
	}
}

// CertificateStatus describes the state of the company's tax clearance
// certificates.
type CertificateStatus string

const (
	CertificatesValid       CertificateStatus = "valid"
	CertificatesInstallment CertificateStatus = "installment"
	CertificatesExpired     CertificateStatus = "expired"
	CertificatesUnknown     CertificateStatus = "unknown"
)

// ParseCertificateStatus maps a stored answer onto the closed value set.
func ParseCertificateStatus(s string) CertificateStatus {
	switch CertificateStatus(s) {
	case CertificatesValid, CertificatesInstallment, CertificatesExpired:
		return CertificateStatus(s)
	default:
		return CertificatesUnknown
	}
}

// ObligationTiming describes how punctually the company files its
// recurring tax obligations.
type ObligationTiming string

const (
	ObligationsOnTime        ObligationTiming = "on_time"
	ObligationsSometimesLate ObligationTiming = "sometimes_late"
	ObligationsOftenLate     ObligationTiming = "often_late"
	ObligationsUnknown       ObligationTiming = "unknown"
)

// ParseObligationTiming maps a stored answer onto the closed value set.
func ParseObligationTiming(s string) ObligationTiming {
	switch ObligationTiming(s) {
	case ObligationsOnTime, ObligationsSometimesLate, ObligationsOftenLate:
		return ObligationTiming(s)
	default:
		return ObligationsUnknown
	}
}

// ControlsMaturity describes how the company runs its internal tax controls.
type ControlsMaturity string

const (
	ControlsSystem     ControlsMaturity = "system"
	ControlsAccountant ControlsMaturity = "accountant"
	ControlsManual     ControlsMaturity = "manual"
	ControlsNone       ControlsMaturity = "none"
	ControlsUnknown    ControlsMaturity = "unknown"
)

// ParseControlsMaturity maps a stored answer onto the closed value set.
func ParseControlsMaturity(s string) ControlsMaturity {
	switch ControlsMaturity(s) {
	case ControlsSystem, ControlsAccountant, ControlsManual, ControlsNone:
		return ControlsMaturity(s)
	default:
		return ControlsUnknown
	}
}

// CompanyProfile holds the registration facts every company has. It is the
// only group of the snapshot that is always present.
type CompanyProfile struct {
	CompanyID      string  `json:"company_id"`
	Sector         string  `json:"sector"`
	TaxRegime      string  `json:"tax_regime"`
	MonthlyRevenue float64 `json:"monthly_revenue"`
}

// SelfReported groups the qualitative questionnaire answers. Unanswered
// questions carry the unknown member of their value set.
type SelfReported struct {
	FiscalStanding FiscalStanding    `json:"fiscal_standing"`
	Certificates   CertificateStatus `json:"certificates"`
	Obligations    ObligationTiming  `json:"obligations"`
	Controls       ControlsMaturity  `json:"controls"`
}

// AnsweredCount returns how many of the four questions have a non-unknown
// answer.
func (s SelfReported) AnsweredCount() int {
	n := 0
	if s.FiscalStanding != StandingUnknown {
		n++
	}
	if s.Certificates != CertificatesUnknown {
		n++
	}
	if s.Obligations != ObligationsUnknown {
		n++
	}
	if s.Controls != ControlsUnknown {
		n++
	}
	return n
}

// QuestionCount is the number of qualitative questions in the tax profile.
const QuestionCount = 4

// DocumentActivity summarizes imported fiscal documents.
type DocumentActivity struct {
	Count     int        `json:"count"`
	FirstDate *time.Time `json:"first_date,omitempty"`
	LastDate  *time.Time `json:"last_date,omitempty"`
}

// FinancialStatement holds the latest computed statement figures.
type FinancialStatement struct {
	GrossRevenue    float64  `json:"gross_revenue"`
	DeductionsRatio *float64 `json:"deductions_ratio,omitempty"`
	NetMargin       *float64 `json:"net_margin,omitempty"`
}

// CreditRecovery holds the value of identified-but-unclaimed tax credits.
type CreditRecovery struct {
	UnclaimedTotal float64 `json:"unclaimed_total"`
}

// SignalSnapshot is the immutable input to the scoring engine, built fresh
// per invocation. Every group except Profile is optional: a nil pointer
// means the underlying source had nothing (or was unavailable), and each
// evaluator degrades to its documented fallback.
type SignalSnapshot struct {
	Profile            CompanyProfile      `json:"profile"`
	SelfReported       SelfReported        `json:"self_reported"`
	Documents          *DocumentActivity   `json:"documents,omitempty"`
	Statement          *FinancialStatement `json:"statement,omitempty"`
	Credits            *CreditRecovery     `json:"credits,omitempty"`
	RegimeAnalysisDone bool                `json:"regime_analysis_done"`
}

// DocumentCount returns the imported document count, zero when the source
// is absent.
func (s *SignalSnapshot) DocumentCount() int {
	if s.Documents == nil {
		return 0
	}
	return s.Documents.Count
}

// UnclaimedCredits returns the unclaimed credit total, zero when absent.
func (s *SignalSnapshot) UnclaimedCredits() float64 {
	if s.Credits == nil {
		return 0
	}
	return s.Credits.UnclaimedTotal
}
