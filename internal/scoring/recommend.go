package scoring

import (
	"sort"

	"github.com/veritax-advisory/taxhealth-cli/internal/config"
	"github.com/veritax-advisory/taxhealth-cli/internal/model"
)

// Action codes. Stable across releases: callers diff these against the
// recommendations a user has already seen or dismissed.
const (
	ActionRegularizeStanding = "regularize_fiscal_standing"
	ActionRunRegimeAnalysis  = "run_regime_comparison"
	ActionReviewCredits      = "review_unclaimed_credits"
	ActionRenewCertificates  = "renew_certificates"
	ActionGenerateStatement  = "generate_financial_statement"
	ActionImportDocuments    = "import_fiscal_documents"
	ActionCompleteProfile    = "complete_tax_profile"
)

// Routing targets, opaque to the engine.
const (
	targetCompliance = "compliance"
	targetSimulator  = "simulator"
	targetCredits    = "credits"
	targetDocuments  = "documents"
	targetReports    = "reports"
	targetProfile    = "profile"
)

// rule pairs a trigger predicate with an action factory. Rules are
// evaluated in declaration order; each fires at most once per invocation,
// so codes are unique by construction.
type rule struct {
	when  func(*model.SignalSnapshot, config.ScoringConfig) bool
	build func(*model.SignalSnapshot, config.ScoringConfig) model.RecommendedAction
}

var rules = []rule{
	{
		when: func(s *model.SignalSnapshot, _ config.ScoringConfig) bool {
			return s.SelfReported.FiscalStanding == model.StandingNotified
		},
		build: func(s *model.SignalSnapshot, cfg config.ScoringConfig) model.RecommendedAction {
			return model.RecommendedAction{
				Code:               ActionRegularizeStanding,
				Title:              "Regularize your fiscal standing",
				Description:        "An open notification from the tax authority drags every other improvement down. Resolve it before anything else.",
				EstimatedScoreGain: 20,
				EstimatedSavings:   auditExposure(s, cfg),
				Priority:           1,
				Target:             targetCompliance,
			}
		},
	},
	{
		when: func(s *model.SignalSnapshot, _ config.ScoringConfig) bool {
			return !s.RegimeAnalysisDone
		},
		build: func(s *model.SignalSnapshot, cfg config.ScoringConfig) model.RecommendedAction {
			return model.RecommendedAction{
				Code:               ActionRunRegimeAnalysis,
				Title:              "Run a tax regime comparison",
				Description:        "Compare your current regime against the alternatives. Companies that never checked often overpay.",
				EstimatedScoreGain: 15,
				EstimatedSavings:   cfg.SavingsRate * deductionsFigure(s, cfg),
				Priority:           2,
				Target:             targetSimulator,
			}
		},
	},
	{
		when: func(s *model.SignalSnapshot, _ config.ScoringConfig) bool {
			return s.UnclaimedCredits() > 0
		},
		build: func(s *model.SignalSnapshot, _ config.ScoringConfig) model.RecommendedAction {
			return model.RecommendedAction{
				Code:               ActionReviewCredits,
				Title:              "Review unclaimed tax credits",
				Description:        "Credits were identified in your purchases that have not been recovered yet.",
				EstimatedScoreGain: 10,
				EstimatedSavings:   s.UnclaimedCredits(),
				Priority:           2,
				Target:             targetCredits,
			}
		},
	},
	{
		when: func(s *model.SignalSnapshot, _ config.ScoringConfig) bool {
			return s.SelfReported.Certificates == model.CertificatesExpired
		},
		build: func(_ *model.SignalSnapshot, _ config.ScoringConfig) model.RecommendedAction {
			return model.RecommendedAction{
				Code:               ActionRenewCertificates,
				Title:              "Renew your clearance certificates",
				Description:        "Expired certificates block public contracts and credit lines.",
				EstimatedScoreGain: 12,
				Priority:           3,
				Target:             targetCompliance,
			}
		},
	},
	{
		when: func(s *model.SignalSnapshot, _ config.ScoringConfig) bool {
			return s.Statement == nil
		},
		build: func(_ *model.SignalSnapshot, _ config.ScoringConfig) model.RecommendedAction {
			return model.RecommendedAction{
				Code:               ActionGenerateStatement,
				Title:              "Generate your financial statement",
				Description:        "Without a computed statement the engine estimates conservatively and several analyses stay locked.",
				EstimatedScoreGain: 8,
				Priority:           3,
				Target:             targetReports,
			}
		},
	},
	{
		when: func(s *model.SignalSnapshot, cfg config.ScoringConfig) bool {
			return s.DocumentCount() < cfg.MinDocumentCount
		},
		build: func(_ *model.SignalSnapshot, _ config.ScoringConfig) model.RecommendedAction {
			return model.RecommendedAction{
				Code:               ActionImportDocuments,
				Title:              "Import your fiscal documents",
				Description:        "More imported documents mean better deduction detection and a stronger documentation score.",
				EstimatedScoreGain: 6,
				Priority:           4,
				Target:             targetDocuments,
			}
		},
	},
	{
		when: func(s *model.SignalSnapshot, _ config.ScoringConfig) bool {
			return s.SelfReported.AnsweredCount() < model.QuestionCount
		},
		build: func(_ *model.SignalSnapshot, _ config.ScoringConfig) model.RecommendedAction {
			return model.RecommendedAction{
				Code:               ActionCompleteProfile,
				Title:              "Complete your tax profile",
				Description:        "Unanswered questions are scored with neutral defaults; answering them makes the diagnosis yours.",
				EstimatedScoreGain: 5,
				Priority:           5,
				Target:             targetProfile,
			}
		},
	},
}

// Recommend evaluates the rule set against the snapshot and returns the
// triggered actions sorted by priority ascending, ties keeping rule order.
// Deterministic: the same snapshot always yields the same codes in the
// same order.
func Recommend(snap *model.SignalSnapshot, cfg config.ScoringConfig) []model.RecommendedAction {
	var actions []model.RecommendedAction
	for _, r := range rules {
		if r.when(snap, cfg) {
			actions = append(actions, r.build(snap, cfg))
		}
	}

	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Priority < actions[j].Priority
	})

	return actions
}
