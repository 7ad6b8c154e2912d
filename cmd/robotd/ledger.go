package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dokzlo13/robotd/internal/db"
	"github.com/dokzlo13/robotd/internal/ledger"
)

func ledgerCmd() *cobra.Command {
	var (
		limit int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Print recent action runs from the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			database, err := db.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer database.Close()

			l := ledger.New(database.DB)

			var entries []*ledger.Entry
			if runID != "" {
				entries, err = l.ByRun(runID)
			} else {
				entries, err = l.Recent(limit)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %-18s %-16s period=%-8d run=%s %v\n",
					e.Timestamp.Local().Format(time.DateTime+".000"),
					e.EventType, e.Action, e.Period, e.RunID, e.Payload)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	cmd.Flags().StringVar(&runID, "run", "", "Show every entry of one run")
	return cmd
}
