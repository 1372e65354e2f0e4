package main

import (
	"fmt"

	"landten/internal/domain/clock"

	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Generate due payments and update statuses once, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer db.Close()

			a, err := buildApplication(cfg, db)
			if err != nil {
				return err
			}

			day := clock.Today(clock.Real{})
			if asOf != "" {
				if day, err = clock.ParseDate(asOf); err != nil {
					return fmt.Errorf("invalid --as-of: %w", err)
				}
			}

			res, err := a.sweeper.RunAsOf(cmd.Context(), day)
			if res != nil {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "as of %s\n", res.AsOf.Format("2006-01-02"))
				if res.Generate != nil {
					fmt.Fprintf(out, "  schedules: %d, created: %d, failed: %d\n",
						res.Generate.Schedules, len(res.Generate.Created), res.Generate.Failed)
				}
				if res.Evaluate != nil {
					fmt.Fprintf(out, "  examined: %d, pending: %d, overdue: %d, failed: %d\n",
						res.Evaluate.Examined, res.Evaluate.Pending, res.Evaluate.Overdue, res.Evaluate.Failed)
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "sweep date in YYYY-MM-DD (default today, UTC)")
	return cmd
}
