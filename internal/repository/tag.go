package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/mediacatalog/internal/catalogerr"
	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// tagChunkSize bounds bulk tag operations to stay below SQLite's compiled
// statement variable ceiling (§4.2).
const tagChunkSize = 500

// TagRepository implements the §4.2 TagRepository contract. Name comparison
// is always COLLATE NOCASE; every mutation that crosses photo/tag validates
// project consistency (invariant 6).
type TagRepository struct {
	base
}

// NewTagRepository builds a TagRepository bound to db.
func NewTagRepository(db *database.DB) *TagRepository {
	return &TagRepository{base: base{db: db}}
}

// Create inserts a new tag, failing if (project_id, name) already exists
// under NOCASE comparison.
func (r *TagRepository) Create(ctx context.Context, q database.Querier, projectID int64, name string) (int64, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO tags (project_id, name) VALUES (?, ?)`, projectID, name)
	if err != nil {
		return 0, fmt.Errorf("create tag: %w", err)
	}
	return res.LastInsertId()
}

// EnsureExists returns the id of the (project_id, name) tag, creating it if
// absent. Name lookup is COLLATE NOCASE.
func (r *TagRepository) EnsureExists(ctx context.Context, q database.Querier, projectID int64, name string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`SELECT id FROM tags WHERE project_id = ? AND name = ? COLLATE NOCASE`, projectID, name).Scan(&id)
	switch {
	case err == nil:
		return id, nil
	case err == sql.ErrNoRows:
		return r.Create(ctx, q, projectID, name)
	default:
		return 0, fmt.Errorf("ensure tag exists: %w", err)
	}
}

// Rename changes a tag's name. If a tag named newName already exists in the
// same project (NOCASE), Rename merges: every photo_tags/video_tags row
// pointing at the old id is repointed to the surviving id (duplicates
// removed), and the old tag row is deleted (§4.2, S6).
func (r *TagRepository) Rename(ctx context.Context, q database.Querier, projectID int64, oldName, newName string) error {
	var oldID int64
	if err := q.QueryRowContext(ctx,
		`SELECT id FROM tags WHERE project_id = ? AND name = ? COLLATE NOCASE`, projectID, oldName).Scan(&oldID); err != nil {
		return scanRowNotFound(err, "tags", oldName)
	}

	var targetID int64
	err := q.QueryRowContext(ctx,
		`SELECT id FROM tags WHERE project_id = ? AND name = ? COLLATE NOCASE AND id != ?`, projectID, newName, oldID).Scan(&targetID)

	switch {
	case err == sql.ErrNoRows:
		_, execErr := q.ExecContext(ctx, `UPDATE tags SET name = ? WHERE id = ?`, newName, oldID)
		if execErr != nil {
			return fmt.Errorf("rename tag: %w", execErr)
		}
		return nil
	case err != nil:
		return fmt.Errorf("check target tag name: %w", err)
	case targetID == oldID:
		return nil
	}

	if err := r.mergeTagAssignments(ctx, q, "photo_tags", "photo_id", oldID, targetID); err != nil {
		return err
	}
	if err := r.mergeTagAssignments(ctx, q, "video_tags", "video_id", oldID, targetID); err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, oldID); err != nil {
		return fmt.Errorf("delete merged tag: %w", err)
	}
	return nil
}

// mergeTagAssignments repoints assignment rows from oldTagID to targetTagID
// in assignTable (photo_tags or video_tags), dropping any row that would
// become a duplicate of an assignment the target tag already has.
func (r *TagRepository) mergeTagAssignments(ctx context.Context, q database.Querier, assignTable, itemCol string, oldTagID, targetTagID int64) error {
	if _, err := q.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM %s
		WHERE tag_id = ? AND %s IN (
			SELECT %s FROM %s WHERE tag_id = ?
		)`, assignTable, itemCol, itemCol, assignTable), oldTagID, targetTagID); err != nil {
		return fmt.Errorf("drop duplicate %s assignments: %w", assignTable, err)
	}
	if _, err := q.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET tag_id = ? WHERE tag_id = ?`, assignTable), targetTagID, oldTagID); err != nil {
		return fmt.Errorf("repoint %s assignments: %w", assignTable, err)
	}
	return nil
}

// AddToPhoto attaches tagID to photoID, validating invariant 6 (tag and
// photo must share a project).
func (r *TagRepository) AddToPhoto(ctx context.Context, q database.Querier, photoID, tagID int64) error {
	if err := r.requireSameProject(ctx, q, "photos", photoID, tagID); err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO photo_tags (photo_id, tag_id) VALUES (?, ?)`, photoID, tagID); err != nil {
		return fmt.Errorf("add tag to photo: %w", err)
	}
	return nil
}

// RemoveFromPhoto detaches tagID from photoID.
func (r *TagRepository) RemoveFromPhoto(ctx context.Context, q database.Querier, photoID, tagID int64) error {
	if _, err := q.ExecContext(ctx,
		`DELETE FROM photo_tags WHERE photo_id = ? AND tag_id = ?`, photoID, tagID); err != nil {
		return fmt.Errorf("remove tag from photo: %w", err)
	}
	return nil
}

// AddToPhotosBulk attaches tagID to every id in photoIDs, chunked at
// tagChunkSize. Each chunk is validated project-consistent before it is
// written, so chunks before a failing one have already been written.
func (r *TagRepository) AddToPhotosBulk(ctx context.Context, q database.Querier, photoIDs []int64, tagID int64) error {
	for _, chunk := range database.ChunkIDs(photoIDs, tagChunkSize) {
		in, args := database.BuildInClause(chunk)
		mismatched, err := r.countCrossProjectPhotos(ctx, q, in, args, tagID)
		if err != nil {
			return err
		}
		if mismatched > 0 {
			return fmt.Errorf("%w: %d photo(s) do not share tag %d's project", catalogerr.ErrCrossProject, mismatched, tagID)
		}

		values := make([]string, len(chunk))
		args2 := make([]any, 0, len(chunk)*2)
		for i, id := range chunk {
			values[i] = "(?, ?)"
			args2 = append(args2, id, tagID)
		}
		query := fmt.Sprintf(`INSERT OR IGNORE INTO photo_tags (photo_id, tag_id) VALUES %s`,
			joinValues(values))
		if _, err := q.ExecContext(ctx, query, args2...); err != nil {
			return fmt.Errorf("bulk add tag to photos: %w", err)
		}
	}
	return nil
}

func (r *TagRepository) countCrossProjectPhotos(ctx context.Context, q database.Querier, inClause string, photoArgs []any, tagID int64) (int64, error) {
	args := append([]any{}, photoArgs...)
	args = append(args, tagID)
	var n int64
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM photos
		WHERE id IN %s AND project_id != (SELECT project_id FROM tags WHERE id = ?)`, inClause)
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("validate cross-project tag assignment: %w", err)
	}
	return n, nil
}

func (r *TagRepository) requireSameProject(ctx context.Context, q database.Querier, photoTable string, photoID, tagID int64) error {
	var photoProject, tagProject int64
	if err := q.QueryRowContext(ctx, fmt.Sprintf(`SELECT project_id FROM %s WHERE id = ?`, photoTable), photoID).
		Scan(&photoProject); err != nil {
		return scanRowNotFound(err, photoTable, photoID)
	}
	if err := q.QueryRowContext(ctx, `SELECT project_id FROM tags WHERE id = ?`, tagID).Scan(&tagProject); err != nil {
		return scanRowNotFound(err, "tags", tagID)
	}
	if photoProject != tagProject {
		return fmt.Errorf("%w: photo project=%d tag project=%d", catalogerr.ErrCrossProject, photoProject, tagProject)
	}
	return nil
}

// FindByID returns the tag with the given id.
func (r *TagRepository) FindByID(ctx context.Context, q database.Querier, id int64) (*models.Tag, error) {
	var t models.Tag
	err := q.QueryRowContext(ctx, `SELECT id, project_id, name FROM tags WHERE id = ?`, id).
		Scan(&t.ID, &t.ProjectID, &t.Name)
	if err != nil {
		return nil, scanRowNotFound(err, "tags", id)
	}
	return &t, nil
}

func joinValues(values []string) string {
	out := values[0]
	for _, v := range values[1:] {
		out += ", " + v
	}
	return out
}
