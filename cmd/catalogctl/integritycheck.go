package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIntegrityCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "integrity-check",
		Short: "Report orphaned metadata rows and foreign key violations",
		Long:  "Reports photos/videos whose folder is missing, plus SQLite's own foreign_key_check (§6).",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			projectID, err := resolveProject(ctx, db, projectName)
			if err != nil {
				return err
			}

			report, err := newMaintenanceManager(db).Check(ctx, projectID)
			if err != nil {
				return err
			}

			if len(report.Orphaned) == 0 && report.FKViolations == 0 {
				fmt.Println("no integrity violations found")
				return nil
			}
			for _, o := range report.Orphaned {
				fmt.Printf("orphaned %s id=%d folder_id=%d path=%s\n", o.Table, o.ID, o.FolderID, o.Path)
			}
			if report.FKViolations > 0 {
				fmt.Printf("foreign key violations: %d\n", report.FKViolations)
			}
			return nil
		},
	}
}
