// Package readiness scores how prepared a company is for the upcoming
// tax-reform transition. It is a second, independently parameterized
// instance of the weighted partial-credit pattern behind the health score.
package readiness

import (
	"context"
	"math"

	"github.com/rotisserie/eris"

	"github.com/veritax-advisory/taxhealth-cli/internal/db"
)

// ItemKey identifies one checklist item.
type ItemKey string

const (
	ItemERPUpdated      ItemKey = "erp_updated"
	ItemProcessesMapped ItemKey = "processes_mapped"
	ItemStaffTrained    ItemKey = "staff_trained"
	ItemDocsDigital     ItemKey = "fiscal_docs_digital"
	ItemCashflowSim     ItemKey = "cashflow_simulated"
	ItemContractsReview ItemKey = "contracts_reviewed"
	ItemAdvisorEngaged  ItemKey = "advisor_engaged"
)

// Response is the answer tier for one checklist item.
type Response string

const (
	ResponseYes     Response = "yes"
	ResponsePartial Response = "partial"
	ResponseNo      Response = "no"
	ResponseUnknown Response = "unknown"
)

// ParseResponse maps a stored answer onto the closed tier set; anything
// else counts as unknown.
func ParseResponse(s string) Response {
	switch Response(s) {
	case ResponseYes, ResponsePartial, ResponseNo:
		return Response(s)
	default:
		return ResponseUnknown
	}
}

// RiskLevel bands the readiness score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// item pairs a checklist key with its weight. Weights sum to 20.
type item struct {
	Key    ItemKey
	Weight float64
}

var checklist = []item{
	{ItemERPUpdated, 4},
	{ItemProcessesMapped, 3},
	{ItemStaffTrained, 3},
	{ItemDocsDigital, 3},
	{ItemCashflowSim, 3},
	{ItemContractsReview, 2},
	{ItemAdvisorEngaged, 2},
}

// Result is the outcome of one readiness evaluation.
type Result struct {
	Score     int       `json:"score"` // 0-100
	RiskLevel RiskLevel `json:"risk_level"`
	Answered  int       `json:"answered"`
	Total     int       `json:"total"`
}

// Compute scores the checklist responses with partial credit: yes earns
// the full item weight, partial half, and no/unknown/missing nothing.
// Unrecognized item keys in the input are ignored. Pure and total.
func Compute(responses map[ItemKey]Response) Result {
	var earned, total float64
	answered := 0

	for _, it := range checklist {
		total += it.Weight
		resp, ok := responses[it.Key]
		if !ok {
			continue
		}
		switch ParseResponse(string(resp)) {
		case ResponseYes:
			earned += it.Weight
			answered++
		case ResponsePartial:
			earned += it.Weight / 2
			answered++
		case ResponseNo:
			answered++
		}
	}

	score := 0
	if total > 0 {
		score = int(math.Round(100 * earned / total))
	}

	return Result{
		Score:     score,
		RiskLevel: riskFor(score),
		Answered:  answered,
		Total:     len(checklist),
	}
}

// riskFor maps a readiness score to a risk band, highest threshold first.
func riskFor(score int) RiskLevel {
	switch {
	case score >= 80:
		return RiskLow
	case score >= 60:
		return RiskMedium
	case score >= 40:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// Items returns the checklist keys in evaluation order.
func Items() []ItemKey {
	keys := make([]ItemKey, len(checklist))
	for i, it := range checklist {
		keys[i] = it.Key
	}
	return keys
}

// LoadResponses reads a company's stored checklist answers. Missing rows
// simply stay absent from the map.
func LoadResponses(ctx context.Context, pool db.Pool, companyID string) (map[ItemKey]Response, error) {
	rows, err := pool.Query(ctx, `
		SELECT item_key, response
		FROM tax_health.readiness_answers
		WHERE company_id = $1`, companyID)
	if err != nil {
		return nil, eris.Wrap(err, "readiness: query answers")
	}
	defer rows.Close()

	responses := make(map[ItemKey]Response)
	for rows.Next() {
		var key, resp string
		if err := rows.Scan(&key, &resp); err != nil {
			return nil, eris.Wrap(err, "readiness: scan answer")
		}
		responses[ItemKey(key)] = ParseResponse(resp)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "readiness: iterate answers")
	}
	return responses, nil
}
