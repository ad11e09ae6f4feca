package duplicate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// RebuildStacks deletes every stack of stackType whose rule_version is not
// currentVersion, then inserts groups as new stacks of that type and
// version, atomically (§4.5 "Construction"). Each group's first member
// becomes the stack's representative photo; members keep the group's
// order as their rank.
func (s *Service) RebuildStacks(ctx context.Context, projectID int64, stackType models.StackType, currentVersion, paramsJSON string, groups [][]int64) (int, error) {
	created := 0
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.stacks.DeleteByRuleVersion(ctx, tx, projectID, stackType, currentVersion); err != nil {
			return fmt.Errorf("delete stale %s stacks: %w", stackType, err)
		}

		for _, group := range groups {
			if len(group) < 2 {
				continue
			}
			rep := group[0]
			stackID, err := s.stacks.Create(ctx, tx, projectID, stackType, &rep, currentVersion, paramsJSON)
			if err != nil {
				return fmt.Errorf("create %s stack: %w", stackType, err)
			}
			for rank, photoID := range group {
				if _, err := s.stacks.AddMember(ctx, tx, stackID, projectID, photoID, rank, nil); err != nil {
					return fmt.Errorf("add member %d to stack %d: %w", photoID, stackID, err)
				}
			}
			created++
		}
		return nil
	})
	return created, err
}

// DuplicateGroups groups photo ids by identical content_hash within the
// project — the trivial (type "duplicate") case of stack construction,
// read directly from ListDuplicates' instance-count-backed query.
func (s *Service) DuplicateGroups(ctx context.Context, projectID int64, limit int) ([][]int64, error) {
	dups, err := s.ListDuplicates(ctx, projectID, 2, limit)
	if err != nil {
		return nil, err
	}

	var groups [][]int64
	for _, d := range dups {
		photoIDs, err := s.instancePhotoIDs(ctx, projectID, d.AssetID)
		if err != nil {
			return nil, err
		}
		if len(photoIDs) > 1 {
			groups = append(groups, photoIDs)
		}
	}
	return groups, nil
}

func (s *Service) instancePhotoIDs(ctx context.Context, projectID, assetID int64) ([]int64, error) {
	var ids []int64
	err := s.db.WithReadConn(ctx, func(q database.Querier) error {
		rows, err := q.QueryContext(ctx,
			`SELECT photo_id FROM media_instance WHERE project_id = ? AND asset_id = ? ORDER BY photo_id ASC`,
			projectID, assetID)
		if err != nil {
			return fmt.Errorf("list instances for asset %d: %w", assetID, err)
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	return ids, err
}
