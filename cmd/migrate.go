package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/veritax-advisory/taxhealth-cli/internal/scoring"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply tax_health schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pool, err := storePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := scoring.Migrate(ctx, pool); err != nil {
			return eris.Wrap(err, "migrate")
		}

		fmt.Println("Migrations applied.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
