package maintenance

import (
	"context"
	"fmt"

	"github.com/tomtom215/mediacatalog/internal/database"
)

// Stats is the `stats` CLI command's report: photo/video counts from
// PhotoRepository/VideoRepository's tables, grouped by metadata_status,
// plus per-model vector counts from semantic_index_meta (§6 "prints counts
// from PhotoRepository and semantic_index_meta").
type Stats struct {
	TotalPhotos     int
	TotalVideos     int
	PhotosByStatus  map[string]int
	TotalFolders    int
	SemanticVectors map[string]int // model -> vector_count for this project
	PendingJobs     int
	RunningJobs     int
	FailedJobs      int
}

// Collect gathers Stats for one project.
func (m *Manager) Collect(ctx context.Context, projectID int64) (Stats, error) {
	var s Stats
	s.PhotosByStatus = make(map[string]int)
	s.SemanticVectors = make(map[string]int)

	err := m.db.WithReadConn(ctx, func(q database.Querier) error {
		if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM photos WHERE project_id = ?`, projectID).Scan(&s.TotalPhotos); err != nil {
			return fmt.Errorf("count photos: %w", err)
		}
		if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos WHERE project_id = ?`, projectID).Scan(&s.TotalVideos); err != nil {
			return fmt.Errorf("count videos: %w", err)
		}
		if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM folders WHERE project_id = ?`, projectID).Scan(&s.TotalFolders); err != nil {
			return fmt.Errorf("count folders: %w", err)
		}

		rows, err := q.QueryContext(ctx, `
			SELECT metadata_status, COUNT(*) FROM photos WHERE project_id = ? GROUP BY metadata_status`, projectID)
		if err != nil {
			return fmt.Errorf("count photos by status: %w", err)
		}
		for rows.Next() {
			var status string
			var n int
			if err := rows.Scan(&status, &n); err != nil {
				rows.Close()
				return fmt.Errorf("scan status count: %w", err)
			}
			s.PhotosByStatus[status] = n
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		vecRows, err := q.QueryContext(ctx, `
			SELECT model, vector_count FROM semantic_index_meta WHERE project_id = ?`, projectID)
		if err != nil {
			return fmt.Errorf("query semantic index meta: %w", err)
		}
		for vecRows.Next() {
			var model string
			var n int
			if err := vecRows.Scan(&model, &n); err != nil {
				vecRows.Close()
				return fmt.Errorf("scan semantic index meta: %w", err)
			}
			s.SemanticVectors[model] += n
		}
		if err := vecRows.Err(); err != nil {
			vecRows.Close()
			return err
		}
		vecRows.Close()

		jobRows, err := q.QueryContext(ctx, `SELECT state, COUNT(*) FROM ml_job GROUP BY state`)
		if err != nil {
			return fmt.Errorf("count jobs by state: %w", err)
		}
		defer jobRows.Close()
		for jobRows.Next() {
			var state string
			var n int
			if err := jobRows.Scan(&state, &n); err != nil {
				return fmt.Errorf("scan job state count: %w", err)
			}
			switch state {
			case "queued":
				s.PendingJobs = n
			case "running":
				s.RunningJobs = n
			case "failed":
				s.FailedJobs = n
			}
		}
		return jobRows.Err()
	})
	if err != nil {
		return Stats{}, err
	}
	return s, nil
}
