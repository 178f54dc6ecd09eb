// Package signal builds scoring snapshots from the external stores. It is
// the only read-side I/O in front of the engine.
package signal

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/veritax-advisory/taxhealth-cli/internal/db"
	"github.com/veritax-advisory/taxhealth-cli/internal/model"
	"github.com/veritax-advisory/taxhealth-cli/internal/resilience"
)

// Question keys used in the questionnaire_answers table.
const (
	KeyFiscalStanding = "fiscal_standing"
	KeyCertificates   = "certificates"
	KeyObligations    = "obligations"
	KeyControls       = "controls"
)

// Collector assembles a SignalSnapshot from the tax_health tables. Only
// the company profile is required; every other source may be empty or
// unavailable and simply leaves its snapshot group unset.
type Collector struct {
	pool  db.Pool
	retry resilience.RetryConfig
}

// NewCollector creates a Collector. Returns nil if pool is nil.
func NewCollector(pool db.Pool) *Collector {
	if pool == nil {
		return nil
	}
	return &Collector{
		pool:  pool,
		retry: resilience.DefaultRetryConfig(),
	}
}

// Snapshot loads all signals for one company. The profile read is the only
// one that can fail the call; the five optional sources fan out
// concurrently and degrade to absent on error.
func (c *Collector) Snapshot(ctx context.Context, companyID string) (*model.SignalSnapshot, error) {
	profile, err := c.loadProfile(ctx, companyID)
	if err != nil {
		return nil, err
	}

	snap := &model.SignalSnapshot{
		Profile: *profile,
		SelfReported: model.SelfReported{
			FiscalStanding: model.StandingUnknown,
			Certificates:   model.CertificatesUnknown,
			Obligations:    model.ObligationsUnknown,
			Controls:       model.ControlsUnknown,
		},
	}

	log := zap.L().With(zap.String("company_id", companyID))

	// Each goroutine writes a distinct snapshot field, so no locking is
	// needed. Errors are absorbed here: a dead source means a missing
	// signal, not a failed snapshot.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		answers, err := c.loadAnswers(gctx, companyID)
		if err != nil {
			log.Warn("collector: questionnaire answers unavailable", zap.Error(err))
			return nil
		}
		snap.SelfReported = answers
		return nil
	})

	g.Go(func() error {
		docs, err := c.loadDocuments(gctx, companyID)
		if err != nil {
			log.Warn("collector: document activity unavailable", zap.Error(err))
			return nil
		}
		snap.Documents = docs
		return nil
	})

	g.Go(func() error {
		stmt, err := c.loadStatement(gctx, companyID)
		if err != nil {
			log.Warn("collector: financial statement unavailable", zap.Error(err))
			return nil
		}
		snap.Statement = stmt
		return nil
	})

	g.Go(func() error {
		credits, err := c.loadCredits(gctx, companyID)
		if err != nil {
			log.Warn("collector: credit recovery unavailable", zap.Error(err))
			return nil
		}
		snap.Credits = credits
		return nil
	})

	g.Go(func() error {
		done, err := c.loadRegimeAnalysisDone(gctx, companyID)
		if err != nil {
			log.Warn("collector: regime analysis flag unavailable", zap.Error(err))
			return nil
		}
		snap.RegimeAnalysisDone = done
		return nil
	})

	// Goroutines never return errors; Wait only propagates ctx failures.
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "collector: snapshot")
	}

	return snap, nil
}

func (c *Collector) loadProfile(ctx context.Context, companyID string) (*model.CompanyProfile, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*model.CompanyProfile, error) {
		var p model.CompanyProfile
		err := c.pool.QueryRow(ctx, `
			SELECT company_id, COALESCE(sector, ''), COALESCE(tax_regime, ''), COALESCE(monthly_revenue, 0)
			FROM tax_health.company_profiles
			WHERE company_id = $1`, companyID,
		).Scan(&p.CompanyID, &p.Sector, &p.TaxRegime, &p.MonthlyRevenue)
		if err != nil {
			if eris.Is(err, pgx.ErrNoRows) {
				return nil, eris.Errorf("collector: company %s not found", companyID)
			}
			return nil, eris.Wrap(err, "collector: load profile")
		}
		return &p, nil
	})
}

func (c *Collector) loadAnswers(ctx context.Context, companyID string) (model.SelfReported, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (model.SelfReported, error) {
		answers := model.SelfReported{
			FiscalStanding: model.StandingUnknown,
			Certificates:   model.CertificatesUnknown,
			Obligations:    model.ObligationsUnknown,
			Controls:       model.ControlsUnknown,
		}

		rows, err := c.pool.Query(ctx, `
			SELECT question_key, answer
			FROM tax_health.questionnaire_answers
			WHERE company_id = $1`, companyID)
		if err != nil {
			return answers, eris.Wrap(err, "collector: query answers")
		}
		defer rows.Close()

		for rows.Next() {
			var key, answer string
			if err := rows.Scan(&key, &answer); err != nil {
				return answers, eris.Wrap(err, "collector: scan answer")
			}
			switch key {
			case KeyFiscalStanding:
				answers.FiscalStanding = model.ParseFiscalStanding(answer)
			case KeyCertificates:
				answers.Certificates = model.ParseCertificateStatus(answer)
			case KeyObligations:
				answers.Obligations = model.ParseObligationTiming(answer)
			case KeyControls:
				answers.Controls = model.ParseControlsMaturity(answer)
			}
		}
		if err := rows.Err(); err != nil {
			return answers, eris.Wrap(err, "collector: iterate answers")
		}
		return answers, nil
	})
}

func (c *Collector) loadDocuments(ctx context.Context, companyID string) (*model.DocumentActivity, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*model.DocumentActivity, error) {
		var d model.DocumentActivity
		err := c.pool.QueryRow(ctx, `
			SELECT COUNT(*), MIN(issued_at), MAX(issued_at)
			FROM tax_health.fiscal_documents
			WHERE company_id = $1`, companyID,
		).Scan(&d.Count, &d.FirstDate, &d.LastDate)
		if err != nil {
			return nil, eris.Wrap(err, "collector: load documents")
		}
		if d.Count == 0 {
			return nil, nil
		}
		return &d, nil
	})
}

func (c *Collector) loadStatement(ctx context.Context, companyID string) (*model.FinancialStatement, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*model.FinancialStatement, error) {
		var s model.FinancialStatement
		err := c.pool.QueryRow(ctx, `
			SELECT gross_revenue, deductions_ratio, net_margin
			FROM tax_health.financial_statements
			WHERE company_id = $1
			ORDER BY period DESC
			LIMIT 1`, companyID,
		).Scan(&s.GrossRevenue, &s.DeductionsRatio, &s.NetMargin)
		if err != nil {
			if eris.Is(err, pgx.ErrNoRows) {
				return nil, nil
			}
			return nil, eris.Wrap(err, "collector: load statement")
		}
		return &s, nil
	})
}

func (c *Collector) loadCredits(ctx context.Context, companyID string) (*model.CreditRecovery, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*model.CreditRecovery, error) {
		var total float64
		err := c.pool.QueryRow(ctx, `
			SELECT COALESCE(SUM(amount), 0)
			FROM tax_health.credit_recovery_items
			WHERE company_id = $1 AND claimed = false`, companyID,
		).Scan(&total)
		if err != nil {
			return nil, eris.Wrap(err, "collector: load credits")
		}
		if total <= 0 {
			return nil, nil
		}
		return &model.CreditRecovery{UnclaimedTotal: total}, nil
	})
}

func (c *Collector) loadRegimeAnalysisDone(ctx context.Context, companyID string) (bool, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (bool, error) {
		var done bool
		err := c.pool.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM tax_health.regime_analyses WHERE company_id = $1
			)`, companyID,
		).Scan(&done)
		if err != nil {
			return false, eris.Wrap(err, "collector: load regime analysis flag")
		}
		return done, nil
	})
}

// ListCompanyIDs returns every company with a profile, for bulk scoring.
func ListCompanyIDs(ctx context.Context, pool db.Pool) ([]string, error) {
	rows, err := pool.Query(ctx, `
		SELECT company_id FROM tax_health.company_profiles ORDER BY company_id`)
	if err != nil {
		return nil, eris.Wrap(err, "collector: list companies")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "collector: scan company id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "collector: iterate companies")
	}
	return ids, nil
}
