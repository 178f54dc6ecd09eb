package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/veritax-advisory/taxhealth-cli/internal/model"
	"github.com/veritax-advisory/taxhealth-cli/internal/scoring"
	sig "github.com/veritax-advisory/taxhealth-cli/internal/signal"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compute tax health scores",
	Long: `Compute the weighted tax health score for one company or for every
company in the store.

The score aggregates five dimensions (compliance, efficiency, risk,
documentation, management) into a 0-100 total with a letter grade and a
qualitative status. Alongside the score the engine estimates financial
impact (potential savings, audit exposure, unclaimed credits) and emits
prioritized recommendations.

Examples:
  # Score one company and print the breakdown
  score --company 7f9c24e5-1f09-4b9d-8f58-5c8e9a2d6b31

  # Score everything and persist current scores plus history
  score --all --save

  # Export companies scoring below 60 to a spreadsheet
  score --all --max-score 60 --format xlsx --output at-risk.xlsx`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("company", "", "score a single company by ID")
	f.Bool("all", false, "score every company in the store")
	f.Int("max-score", 0, "only output companies at or below this total (0=no filter)")
	f.String("output", "", "output file path (default: stdout)")
	f.String("format", "table", "output format: table, csv, or xlsx")
	f.Bool("save", false, "save results to tax_health.health_scores")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := zap.L().With(zap.String("command", "score"))

	companyID, _ := cmd.Flags().GetString("company")
	all, _ := cmd.Flags().GetBool("all")
	maxScore, _ := cmd.Flags().GetInt("max-score")
	outputPath, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")
	save, _ := cmd.Flags().GetBool("save")

	if companyID == "" && !all {
		return eris.New("score: either --company or --all is required")
	}
	if companyID != "" && all {
		return eris.New("score: --company and --all are mutually exclusive")
	}
	if format != "table" && format != "csv" && format != "xlsx" {
		return eris.Errorf("score: --format must be table, csv, or xlsx (got %q)", format)
	}
	if format == "xlsx" && outputPath == "" {
		return eris.New("score: --format xlsx requires --output")
	}

	if err := scoring.ValidateConfig(cfg.Scoring); err != nil {
		return err
	}

	pool, err := storePool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := scoring.Migrate(ctx, pool); err != nil {
		return eris.Wrap(err, "score: migrate")
	}

	collector := sig.NewCollector(pool)
	engine := scoring.NewEngine(cfg.Scoring)

	// Single-company mode.
	if companyID != "" {
		snap, err := collector.Snapshot(ctx, companyID)
		if err != nil {
			return eris.Wrapf(err, "score: company %s", companyID)
		}
		result := engine.ComputeScore(snap)
		scoring.Stamp(&result, cfg.Scoring, time.Now().UTC())

		printSingleScore(&result)
		if save {
			if err := scoring.SaveResult(ctx, pool, &result); err != nil {
				return eris.Wrap(err, "score: save")
			}
			fmt.Println("Score saved to tax_health.health_scores")
		}
		return nil
	}

	// Bulk mode.
	ids, err := sig.ListCompanyIDs(ctx, pool)
	if err != nil {
		return eris.Wrap(err, "score: list companies")
	}
	if len(ids) == 0 {
		fmt.Println("No companies found.")
		return nil
	}

	log.Info("starting bulk scoring", zap.Int("companies", len(ids)))

	scoredAt := time.Now().UTC()
	var results []model.ScoreResult
	for i, id := range ids {
		snap, err := collector.Snapshot(ctx, id)
		if err != nil {
			log.Warn("snapshot failed, skipping company",
				zap.String("company_id", id),
				zap.Error(err),
			)
			continue
		}
		result := engine.ComputeScore(snap)
		scoring.Stamp(&result, cfg.Scoring, scoredAt)
		results = append(results, result)
		if (i+1)%100 == 0 {
			log.Info("scoring progress", zap.Int("completed", i+1), zap.Int("total", len(ids)))
		}
	}

	log.Info("bulk scoring complete", zap.Int("scored", len(results)))

	if save && len(results) > 0 {
		if err := scoring.SaveResults(ctx, pool, results); err != nil {
			return eris.Wrap(err, "score: save")
		}
		fmt.Printf("Saved %d scores to tax_health.health_scores\n", len(results))
	}

	output := filterResults(results, maxScore)
	sort.SliceStable(output, func(i, j int) bool {
		return output[i].TotalScore < output[j].TotalScore
	})

	if err := outputScoreResults(output, format, outputPath); err != nil {
		return err
	}
	printScoreSummary(results)
	return nil
}

// filterResults keeps results at or below maxScore; zero means no filter.
func filterResults(results []model.ScoreResult, maxScore int) []model.ScoreResult {
	if maxScore <= 0 {
		return results
	}
	var out []model.ScoreResult
	for _, r := range results {
		if r.TotalScore <= maxScore {
			out = append(out, r)
		}
	}
	return out
}

func printSingleScore(r *model.ScoreResult) {
	fmt.Printf("Company: %s\n", r.CompanyID)
	fmt.Printf("Score:   %d / 100\n", r.TotalScore)
	fmt.Printf("Grade:   %s\n", r.Grade)
	fmt.Printf("Status:  %s\n", r.Status)

	fmt.Println("\nDimensions:")
	for _, d := range r.Dimensions {
		fmt.Printf("  %-15s %6.1f  (weight %.1f)\n", d.Name, d.Score, d.Weight)
	}

	fmt.Println("\nFinancial impact:")
	fmt.Printf("  Potential savings: $%s\n", formatMoney(int64(r.Impact.PotentialSavings)))
	fmt.Printf("  Audit exposure:    $%s\n", formatMoney(int64(r.Impact.AuditExposure)))
	fmt.Printf("  Unclaimed credits: $%s\n", formatMoney(int64(r.Impact.UnclaimedCredits)))

	if len(r.Actions) > 0 {
		fmt.Println("\nRecommended actions:")
		for _, a := range r.Actions {
			fmt.Printf("  [P%d] %s", a.Priority, a.Title)
			if a.EstimatedScoreGain > 0 {
				fmt.Printf("  (+%d pts)", a.EstimatedScoreGain)
			}
			if a.EstimatedSavings > 0 {
				fmt.Printf("  ($%s)", formatMoney(int64(a.EstimatedSavings)))
			}
			fmt.Println()
		}
	}

	fmt.Printf("\nProfile completion: %d/%d questions, %d documents",
		r.Counters.QuestionsAnswered, r.Counters.QuestionsTotal, r.Counters.DocumentsImported)
	if r.Counters.HasStatement {
		fmt.Print(", statement on file")
	}
	if r.Counters.RegimeAnalysisDone {
		fmt.Print(", regime analyzed")
	}
	fmt.Println()
}

func printScoreSummary(results []model.ScoreResult) {
	if len(results) == 0 {
		fmt.Println("No results.")
		return
	}
	byStatus := make(map[model.Status]int)
	var sum int
	minScore, maxScore := 101, -1
	for _, r := range results {
		sum += r.TotalScore
		if r.TotalScore > maxScore {
			maxScore = r.TotalScore
		}
		if r.TotalScore < minScore {
			minScore = r.TotalScore
		}
		byStatus[r.Status]++
	}
	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Total scored:  %d\n", len(results))
	fmt.Printf("Score range:   %d - %d\n", minScore, maxScore)
	fmt.Printf("Average score: %.1f\n", float64(sum)/float64(len(results)))
	for _, s := range []model.Status{
		model.StatusExcellent, model.StatusGood, model.StatusRegular,
		model.StatusAttention, model.StatusCritical,
	} {
		if n := byStatus[s]; n > 0 {
			fmt.Printf("  %-10s %d\n", s, n)
		}
	}
}

func outputScoreResults(results []model.ScoreResult, format, outputPath string) error {
	if format == "xlsx" {
		return writeScoreXLSX(outputPath, results)
	}

	var w *os.File
	if outputPath != "" {
		var err error
		w, err = os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "score: create output file %s", outputPath)
		}
		defer w.Close() //nolint:errcheck
	} else {
		w = os.Stdout
	}

	switch format {
	case "csv":
		return writeScoreCSV(w, results)
	case "table":
		return writeScoreTable(w, results)
	default:
		return eris.Errorf("score: unsupported format %q", format)
	}
}

var scoreColumns = []string{
	"company_id", "total_score", "grade", "status",
	"compliance", "efficiency", "risk", "documentation", "management",
	"potential_savings", "audit_exposure", "unclaimed_credits", "actions",
}

func scoreRow(r *model.ScoreResult) []string {
	codes := make([]string, len(r.Actions))
	for i, a := range r.Actions {
		codes[i] = a.Code
	}
	return []string{
		r.CompanyID,
		fmt.Sprintf("%d", r.TotalScore),
		string(r.Grade),
		string(r.Status),
		fmt.Sprintf("%.1f", r.Dimension(scoring.DimCompliance).Score),
		fmt.Sprintf("%.1f", r.Dimension(scoring.DimEfficiency).Score),
		fmt.Sprintf("%.1f", r.Dimension(scoring.DimRisk).Score),
		fmt.Sprintf("%.1f", r.Dimension(scoring.DimDocumentation).Score),
		fmt.Sprintf("%.1f", r.Dimension(scoring.DimManagement).Score),
		fmt.Sprintf("%.2f", r.Impact.PotentialSavings),
		fmt.Sprintf("%.2f", r.Impact.AuditExposure),
		fmt.Sprintf("%.2f", r.Impact.UnclaimedCredits),
		strings.Join(codes, ";"),
	}
}

func writeScoreCSV(w *os.File, results []model.ScoreResult) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(scoreColumns); err != nil {
		return eris.Wrap(err, "score: write CSV header")
	}
	for i := range results {
		if err := cw.Write(scoreRow(&results[i])); err != nil {
			return eris.Wrap(err, "score: write CSV row")
		}
	}
	return nil
}

func writeScoreXLSX(path string, results []model.ScoreResult) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Health Scores")
	if err != nil {
		return eris.Wrap(err, "score: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range scoreColumns {
		header.AddCell().SetString(col)
	}
	for i := range results {
		row := sheet.AddRow()
		for _, v := range scoreRow(&results[i]) {
			row.AddCell().SetString(v)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "score: save xlsx %s", path)
	}
	return nil
}

func writeScoreTable(w *os.File, results []model.ScoreResult) error {
	header := fmt.Sprintf("%-38s %5s %5s %-10s %9s %9s %9s\n",
		"Company", "Score", "Grade", "Status", "Savings", "Exposure", "Credits")
	if _, err := fmt.Fprint(w, header); err != nil {
		return eris.Wrap(err, "score: write table header")
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 92)); err != nil {
		return eris.Wrap(err, "score: write table separator")
	}

	for i := range results {
		r := &results[i]
		line := fmt.Sprintf("%-38s %5d %5s %-10s %9s %9s %9s\n",
			r.CompanyID, r.TotalScore, r.Grade, r.Status,
			formatMoney(int64(r.Impact.PotentialSavings)),
			formatMoney(int64(r.Impact.AuditExposure)),
			formatMoney(int64(r.Impact.UnclaimedCredits)))
		if _, err := fmt.Fprint(w, line); err != nil {
			return eris.Wrap(err, "score: write table row")
		}
	}
	return nil
}

func formatMoney(amount int64) string {
	if amount == 0 {
		return "0"
	}
	s := fmt.Sprintf("%d", amount)
	var result []byte
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
