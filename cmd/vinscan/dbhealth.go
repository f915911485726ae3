package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/vinscan/internal/repository"
)

var dbhealthCmd = &cobra.Command{
	Use:   "dbhealth",
	Short: "Ping the audit-log database and show the latest extractions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp()
		if err != nil {
			return err
		}
		db, err := a.openAudit(ctx, false)
		if err != nil {
			return fmt.Errorf("DB health: FAIL (%w)", err)
		}
		if db == nil {
			return errors.New("no database configured: set database.driver (or VINSCAN_DATABASE_DRIVER) and DB_URL")
		}
		defer db.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "DB health: OK (%s)\n", db.Dialect())

		recent, err := repository.NewExtractionRepository(db, a.logger).ListRecent(ctx, 5)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "recent extractions: %d\n", len(recent))
		for _, e := range recent {
			fmt.Fprintf(out, "- %s %-9s %-17s %s\n", e.CreatedAt.Format(time.RFC3339), e.Status, e.VIN, e.Source)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbhealthCmd)
}
