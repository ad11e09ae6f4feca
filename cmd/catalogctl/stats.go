package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print photo, video, folder, and job counts",
		Long:  "Prints counts from PhotoRepository and semantic_index_meta (§6).",
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

			s, err := newMaintenanceManager(db).Collect(ctx, projectID)
			if err != nil {
				return err
			}

			fmt.Printf("photos:  %d\n", s.TotalPhotos)
			for _, status := range sortedKeys(s.PhotosByStatus) {
				fmt.Printf("  %-10s %d\n", status, s.PhotosByStatus[status])
			}
			fmt.Printf("videos:  %d\n", s.TotalVideos)
			fmt.Printf("folders: %d\n", s.TotalFolders)
			fmt.Printf("semantic vectors:\n")
			for _, model := range sortedKeys(s.SemanticVectors) {
				fmt.Printf("  %-16s %d\n", model, s.SemanticVectors[model])
			}
			fmt.Printf("jobs: pending=%d running=%d failed=%d\n", s.PendingJobs, s.RunningJobs, s.FailedJobs)
			return nil
		},
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
