package main

import (
	"fmt"

	idb "landten/internal/infra/database"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			if dryRun {
				pending, err := idb.Pending(cmd.Context(), db)
				if err != nil {
					return err
				}
				if len(pending) == 0 {
					fmt.Fprintln(out, "database is up to date")
					return nil
				}
				for _, m := range pending {
					fmt.Fprintf(out, "pending: %s\n", m.Name)
				}
				return nil
			}

			applied, err := idb.Migrate(cmd.Context(), db)
			for _, name := range applied {
				fmt.Fprintf(out, "applied: %s\n", name)
			}
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(out, "database is up to date")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list pending migrations without applying them")
	return cmd
}
