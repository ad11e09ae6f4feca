package aggregator

import (
	"context"
	"fmt"

	"github.com/tomtom215/mediacatalog/internal/database"
)

// DateCount is one (year, month, day, count) row of a combined photo+video
// aggregation.
type DateCount struct {
	Year  int
	Month int
	Day   int
	Count int
}

// CombinedCountsByDate computes photo+video counts per year/month/day via
// UNION ALL of the two metadata tables, grouped in SQL rather than in Go
// (§4.4 "Combined counts").
func (a *Aggregator) CombinedCountsByDate(ctx context.Context, q database.Querier, projectID int64) ([]DateCount, error) {
	var out []DateCount
	err := a.met.ObserveQuery("CombinedCountsByDate", func() error {
		var err error
		out, err = combinedCountsByDate(ctx, q, projectID)
		return err
	})
	return out, err
}

func combinedCountsByDate(ctx context.Context, q database.Querier, projectID int64) ([]DateCount, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT created_year, CAST(substr(created_date, 6, 2) AS INTEGER) AS month,
			CAST(substr(created_date, 9, 2) AS INTEGER) AS day, COUNT(*)
		FROM (
			SELECT project_id, created_year, created_date FROM photos WHERE project_id = ? AND created_date IS NOT NULL
			UNION ALL
			SELECT project_id, created_year, created_date FROM videos WHERE project_id = ? AND created_date IS NOT NULL
		)
		GROUP BY created_year, month, day
		ORDER BY created_year, month, day`, projectID, projectID)
	if err != nil {
		return nil, fmt.Errorf("aggregate combined date counts: %w", err)
	}
	defer rows.Close()

	var out []DateCount
	for rows.Next() {
		var dc DateCount
		if err := rows.Scan(&dc.Year, &dc.Month, &dc.Day, &dc.Count); err != nil {
			return nil, fmt.Errorf("scan combined date count row: %w", err)
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}
