package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVacuumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vacuum",
		Short: "Compact the database file and refresh query planner statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := newMaintenanceManager(db).Vacuum(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("vacuum complete")
			return nil
		},
	}
}
