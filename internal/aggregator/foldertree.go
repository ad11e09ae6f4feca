package aggregator

import (
	"context"
	"fmt"

	"github.com/tomtom215/mediacatalog/internal/database"
)

// FolderCounts returns, for every folder in the project, the number of
// photos in that folder plus every descendant folder — computed by one
// recursive CTE rather than calling a count-recursive helper once per
// folder (§4.4 "replaces the N+1 pattern of calling count_recursive per
// folder").
func (a *Aggregator) FolderCounts(ctx context.Context, q database.Querier, projectID int64) (map[int64]int, error) {
	var counts map[int64]int
	err := a.met.ObserveQuery("FolderCounts", func() error {
		var err error
		counts, err = folderCounts(ctx, q, projectID, "photos", "folder_id")
		return err
	})
	return counts, err
}

// VideoFolderCounts mirrors FolderCounts for videos ("Same query shape
// exists for videos").
func (a *Aggregator) VideoFolderCounts(ctx context.Context, q database.Querier, projectID int64) (map[int64]int, error) {
	var counts map[int64]int
	err := a.met.ObserveQuery("VideoFolderCounts", func() error {
		var err error
		counts, err = folderCounts(ctx, q, projectID, "videos", "folder_id")
		return err
	})
	return counts, err
}

func folderCounts(ctx context.Context, q database.Querier, projectID int64, mediaTable, folderCol string) (map[int64]int, error) {
	query := fmt.Sprintf(`
		WITH RECURSIVE tree(ancestor_id, id) AS (
			SELECT id, id FROM folders WHERE project_id = ?
			UNION ALL
			SELECT tree.ancestor_id, f.id
			FROM folders f JOIN tree ON f.parent_id = tree.id
			WHERE f.project_id = ?
		)
		SELECT tree.ancestor_id, COUNT(m.id)
		FROM tree
		LEFT JOIN %s m ON m.%s = tree.id AND m.project_id = ?
		GROUP BY tree.ancestor_id`, mediaTable, folderCol)

	rows, err := q.QueryContext(ctx, query, projectID, projectID, projectID)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s folder counts: %w", mediaTable, err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var folderID int64
		var count int
		if err := rows.Scan(&folderID, &count); err != nil {
			return nil, fmt.Errorf("scan %s folder count row: %w", mediaTable, err)
		}
		counts[folderID] = count
	}
	return counts, rows.Err()
}
