package scoring

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/veritax-advisory/taxhealth-cli/internal/config"
	"github.com/veritax-advisory/taxhealth-cli/internal/db"
	"github.com/veritax-advisory/taxhealth-cli/internal/model"
)

// SaveResult persists one scoring result: upsert the current-state row,
// replace the company's recommended actions, and append a history row when
// the score is meaningful (> 0). All in one transaction.
func SaveResult(ctx context.Context, pool db.Pool, result *model.ScoreResult) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "scoring: begin transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := upsertCurrent(ctx, tx, result); err != nil {
		return err
	}
	if err := replaceActions(ctx, tx, result); err != nil {
		return err
	}
	if result.TotalScore > 0 {
		if err := appendHistory(ctx, tx, result); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "scoring: commit result")
	}

	zap.L().Info("scoring: saved result",
		zap.String("company_id", result.CompanyID),
		zap.Int("total_score", result.TotalScore),
		zap.Int("actions", len(result.Actions)),
	)
	return nil
}

func upsertCurrent(ctx context.Context, tx pgx.Tx, r *model.ScoreResult) error {
	dims, err := json.Marshal(r.Dimensions)
	if err != nil {
		return eris.Wrapf(err, "scoring: marshal dimensions for %s", r.CompanyID)
	}
	counters, err := json.Marshal(r.Counters)
	if err != nil {
		return eris.Wrapf(err, "scoring: marshal counters for %s", r.CompanyID)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO tax_health.health_scores
			(company_id, total_score, grade, status, dimensions, potential_savings,
			 audit_exposure, unclaimed_credits, counters, config_hash, scored_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (company_id) DO UPDATE SET
			total_score = EXCLUDED.total_score,
			grade = EXCLUDED.grade,
			status = EXCLUDED.status,
			dimensions = EXCLUDED.dimensions,
			potential_savings = EXCLUDED.potential_savings,
			audit_exposure = EXCLUDED.audit_exposure,
			unclaimed_credits = EXCLUDED.unclaimed_credits,
			counters = EXCLUDED.counters,
			config_hash = EXCLUDED.config_hash,
			scored_at = EXCLUDED.scored_at
	`, r.CompanyID, r.TotalScore, string(r.Grade), string(r.Status), dims,
		r.Impact.PotentialSavings, r.Impact.AuditExposure, r.Impact.UnclaimedCredits,
		counters, r.ConfigHash, r.ScoredAt)
	if err != nil {
		return eris.Wrapf(err, "scoring: upsert score for %s", r.CompanyID)
	}
	return nil
}

// replaceActions fully replaces the company's action set. Dedup across
// invocations is the caller's contract, keyed on the stable action codes.
func replaceActions(ctx context.Context, tx pgx.Tx, r *model.ScoreResult) error {
	if _, err := tx.Exec(ctx,
		`DELETE FROM tax_health.recommended_actions WHERE company_id = $1`,
		r.CompanyID,
	); err != nil {
		return eris.Wrapf(err, "scoring: delete actions for %s", r.CompanyID)
	}

	for _, a := range r.Actions {
		if _, err := tx.Exec(ctx, `
			INSERT INTO tax_health.recommended_actions
				(company_id, code, title, description, estimated_score_gain,
				 estimated_savings, priority, target)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, r.CompanyID, a.Code, a.Title, a.Description, a.EstimatedScoreGain,
			a.EstimatedSavings, a.Priority, a.Target); err != nil {
			return eris.Wrapf(err, "scoring: insert action %s for %s", a.Code, r.CompanyID)
		}
	}
	return nil
}

func appendHistory(ctx context.Context, tx pgx.Tx, r *model.ScoreResult) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO tax_health.health_score_history
			(id, company_id, total_score, grade, status, config_hash, scored_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.NewString(), r.CompanyID, r.TotalScore, string(r.Grade),
		string(r.Status), r.ConfigHash, r.ScoredAt); err != nil {
		return eris.Wrapf(err, "scoring: append history for %s", r.CompanyID)
	}
	return nil
}

// SaveResults persists a bulk scoring run: one BulkUpsert for the current
// rows, one COPY for the history rows, then per-company action
// replacement. Bulk runs hit hundreds of companies; row-at-a-time upserts
// are the slow path here.
func SaveResults(ctx context.Context, pool db.Pool, results []model.ScoreResult) error {
	if len(results) == 0 {
		return nil
	}

	currentRows := make([][]any, 0, len(results))
	var historyRows [][]any
	for i := range results {
		r := &results[i]
		dims, err := json.Marshal(r.Dimensions)
		if err != nil {
			return eris.Wrapf(err, "scoring: marshal dimensions for %s", r.CompanyID)
		}
		counters, err := json.Marshal(r.Counters)
		if err != nil {
			return eris.Wrapf(err, "scoring: marshal counters for %s", r.CompanyID)
		}
		currentRows = append(currentRows, []any{
			r.CompanyID, r.TotalScore, string(r.Grade), string(r.Status), dims,
			r.Impact.PotentialSavings, r.Impact.AuditExposure,
			r.Impact.UnclaimedCredits, counters, r.ConfigHash, r.ScoredAt,
		})
		if r.TotalScore > 0 {
			historyRows = append(historyRows, []any{
				uuid.NewString(), r.CompanyID, r.TotalScore, string(r.Grade),
				string(r.Status), r.ConfigHash, r.ScoredAt,
			})
		}
	}

	if _, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table: "tax_health.health_scores",
		Columns: []string{
			"company_id", "total_score", "grade", "status", "dimensions",
			"potential_savings", "audit_exposure", "unclaimed_credits",
			"counters", "config_hash", "scored_at",
		},
		ConflictKeys: []string{"company_id"},
	}, currentRows); err != nil {
		return eris.Wrap(err, "scoring: bulk upsert scores")
	}

	if _, err := db.CopyFromSchema(ctx, pool, "tax_health", "health_score_history",
		[]string{"id", "company_id", "total_score", "grade", "status", "config_hash", "scored_at"},
		historyRows); err != nil {
		return eris.Wrap(err, "scoring: bulk append history")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "scoring: begin actions transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	for i := range results {
		if err := replaceActions(ctx, tx, &results[i]); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "scoring: commit actions")
	}

	zap.L().Info("scoring: saved bulk results",
		zap.Int("companies", len(results)),
		zap.Int("history_rows", len(historyRows)),
	)
	return nil
}

// LoadResult reads the current score and actions for one company. Returns
// nil if the company has never been scored.
func LoadResult(ctx context.Context, pool db.Pool, companyID string) (*model.ScoreResult, error) {
	var r model.ScoreResult
	var grade, status string
	var dims, counters []byte

	err := pool.QueryRow(ctx, `
		SELECT company_id, total_score, grade, status, dimensions,
		       potential_savings, audit_exposure, unclaimed_credits,
		       counters, config_hash, scored_at
		FROM tax_health.health_scores
		WHERE company_id = $1`, companyID,
	).Scan(&r.CompanyID, &r.TotalScore, &grade, &status, &dims,
		&r.Impact.PotentialSavings, &r.Impact.AuditExposure,
		&r.Impact.UnclaimedCredits, &counters, &r.ConfigHash, &r.ScoredAt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "scoring: load score for %s", companyID)
	}
	r.Grade = model.Grade(grade)
	r.Status = model.Status(status)

	if len(dims) > 0 {
		if err := json.Unmarshal(dims, &r.Dimensions); err != nil {
			return nil, eris.Wrapf(err, "scoring: unmarshal dimensions for %s", companyID)
		}
	}
	if len(counters) > 0 {
		if err := json.Unmarshal(counters, &r.Counters); err != nil {
			return nil, eris.Wrapf(err, "scoring: unmarshal counters for %s", companyID)
		}
	}

	rows, err := pool.Query(ctx, `
		SELECT code, title, description, estimated_score_gain,
		       estimated_savings, priority, target
		FROM tax_health.recommended_actions
		WHERE company_id = $1
		ORDER BY priority, code`, companyID)
	if err != nil {
		return nil, eris.Wrapf(err, "scoring: load actions for %s", companyID)
	}
	defer rows.Close()

	for rows.Next() {
		var a model.RecommendedAction
		if err := rows.Scan(&a.Code, &a.Title, &a.Description,
			&a.EstimatedScoreGain, &a.EstimatedSavings, &a.Priority, &a.Target); err != nil {
			return nil, eris.Wrap(err, "scoring: scan action")
		}
		r.Actions = append(r.Actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "scoring: iterate actions")
	}

	return &r, nil
}

// Stamp fills the persistence metadata on a freshly computed result.
func Stamp(r *model.ScoreResult, cfg config.ScoringConfig, now time.Time) {
	r.ConfigHash = ConfigHash(cfg)
	r.ScoredAt = now.UTC()
}

// ConfigHash returns a SHA-256 hash of the scoring config so stored rows
// record which rule set produced them.
func ConfigHash(cfg config.ScoringConfig) string {
	data, err := json.Marshal(cfg)
	if err != nil {
		return ""
	}
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:16]) // 32 hex chars
}
