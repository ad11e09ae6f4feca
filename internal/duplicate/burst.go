package duplicate

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/mediacatalog/internal/database"
)

// deviceShot is one photo taken on a known device, ordered for burst
// detection.
type deviceShot struct {
	photoID  int64
	deviceID int64
	taken    time.Time
}

// BurstGroups finds runs of photos from the same source device whose
// capture times are each within gap of the previous shot in the run
// (§4.5 "burst: same device + time window"). It queries media_instance
// joined to photos for date_taken, since that is what a burst is measured
// against, falling back to modified when date_taken is null.
func (s *Service) BurstGroups(ctx context.Context, projectID int64, gap time.Duration) ([][]int64, error) {
	var shots []deviceShot
	err := s.db.WithReadConn(ctx, func(q database.Querier) error {
		rows, err := q.QueryContext(ctx, `
			SELECT mi.photo_id, mi.source_device_id, COALESCE(p.date_taken, p.modified)
			FROM media_instance mi
			JOIN photos p ON p.id = mi.photo_id
			WHERE mi.project_id = ? AND mi.source_device_id IS NOT NULL
			ORDER BY mi.source_device_id ASC, COALESCE(p.date_taken, p.modified) ASC`, projectID)
		if err != nil {
			return fmt.Errorf("list device shots: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var shot deviceShot
			var taken sql.NullTime
			if err := rows.Scan(&shot.photoID, &shot.deviceID, &taken); err != nil {
				return fmt.Errorf("scan device shot row: %w", err)
			}
			shot.taken = taken.Time
			shots = append(shots, shot)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return groupBursts(shots, gap), nil
}

// groupBursts assumes shots is already sorted by (deviceID, taken) ascending.
func groupBursts(shots []deviceShot, gap time.Duration) [][]int64 {
	var groups [][]int64
	var current []int64
	var currentDevice int64
	var lastTaken time.Time

	flush := func() {
		if len(current) > 1 {
			groups = append(groups, current)
		}
		current = nil
	}

	for i, shot := range shots {
		if i == 0 || shot.deviceID != currentDevice || shot.taken.Sub(lastTaken) > gap {
			flush()
			currentDevice = shot.deviceID
		}
		current = append(current, shot.photoID)
		lastTaken = shot.taken
	}
	flush()

	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })
	return groups
}
