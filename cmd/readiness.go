package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/veritax-advisory/taxhealth-cli/internal/readiness"
)

var readinessCmd = &cobra.Command{
	Use:   "readiness",
	Short: "Compute the tax-reform readiness score",
	Long: `Compute the tax-reform readiness score from checklist answers.

Answers come either from the store (--company) or directly from the
command line (--answers). Each item takes yes, partial, or no; anything
else counts as unanswered.

Examples:
  # Score a company's stored checklist
  readiness --company 7f9c24e5-1f09-4b9d-8f58-5c8e9a2d6b31

  # Score an ad-hoc checklist
  readiness --answers erp_updated=yes,processes_mapped=partial,staff_trained=no

  # List the checklist items
  readiness --list`,
	RunE: runReadiness,
}

func init() {
	f := readinessCmd.Flags()
	f.String("company", "", "load checklist answers for a company from the store")
	f.String("answers", "", "comma-separated item=answer pairs")
	f.Bool("list", false, "list checklist item keys and exit")

	rootCmd.AddCommand(readinessCmd)
}

func runReadiness(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	list, _ := cmd.Flags().GetBool("list")
	if list {
		for _, key := range readiness.Items() {
			fmt.Println(key)
		}
		return nil
	}

	companyID, _ := cmd.Flags().GetString("company")
	answers, _ := cmd.Flags().GetString("answers")

	if companyID == "" && answers == "" {
		return eris.New("readiness: either --company or --answers is required")
	}
	if companyID != "" && answers != "" {
		return eris.New("readiness: --company and --answers are mutually exclusive")
	}

	var responses map[readiness.ItemKey]readiness.Response

	if companyID != "" {
		pool, err := storePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		responses, err = readiness.LoadResponses(ctx, pool, companyID)
		if err != nil {
			return eris.Wrapf(err, "readiness: company %s", companyID)
		}
	} else {
		responses = make(map[readiness.ItemKey]readiness.Response)
		for _, pair := range splitAndTrim(answers) {
			key, value, found := strings.Cut(pair, "=")
			if !found {
				return eris.Errorf("readiness: malformed answer %q (want item=answer)", pair)
			}
			responses[readiness.ItemKey(strings.TrimSpace(key))] = readiness.ParseResponse(strings.TrimSpace(value))
		}
	}

	result := readiness.Compute(responses)

	fmt.Printf("Readiness: %d / 100\n", result.Score)
	fmt.Printf("Risk:      %s\n", result.RiskLevel)
	fmt.Printf("Answered:  %d of %d items\n", result.Answered, result.Total)
	return nil
}
