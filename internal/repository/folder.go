package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// FolderRepository implements the §4.2 FolderRepository contract.
type FolderRepository struct {
	base
}

// NewFolderRepository builds a FolderRepository bound to db.
func NewFolderRepository(db *database.DB) *FolderRepository {
	return &FolderRepository{base: base{db: db}}
}

// Ensure returns the id of the (project_id, path) folder, creating it with
// the given name/parent if absent.
func (r *FolderRepository) Ensure(ctx context.Context, q database.Querier, projectID int64, path, name string, parentID *int64) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`SELECT id FROM folders WHERE project_id = ? AND path = ?`, projectID, path).Scan(&id)
	switch {
	case err == nil:
		return id, nil
	case err != sql.ErrNoRows:
		return 0, fmt.Errorf("find folder: %w", err)
	}

	res, err := q.ExecContext(ctx,
		`INSERT INTO folders (project_id, parent_id, path, name) VALUES (?, ?, ?, ?)`,
		projectID, parentID, path, name)
	if err != nil {
		return 0, fmt.Errorf("create folder: %w", err)
	}
	return res.LastInsertId()
}

// Children returns the immediate child folders of parentID (or the
// project's roots, if parentID is nil).
func (r *FolderRepository) Children(ctx context.Context, q database.Querier, projectID int64, parentID *int64) ([]*models.Folder, error) {
	var rows *sql.Rows
	var err error
	if parentID == nil {
		rows, err = q.QueryContext(ctx,
			`SELECT id, project_id, parent_id, path, name, photo_count FROM folders
			 WHERE project_id = ? AND parent_id IS NULL ORDER BY name ASC`, projectID)
	} else {
		rows, err = q.QueryContext(ctx,
			`SELECT id, project_id, parent_id, path, name, photo_count FROM folders
			 WHERE project_id = ? AND parent_id = ? ORDER BY name ASC`, projectID, *parentID)
	}
	if err != nil {
		return nil, fmt.Errorf("query folder children: %w", err)
	}
	defer rows.Close()
	return scanFolders(rows)
}

// Descendants returns every folder below folderID (exclusive), via a
// recursive CTE rather than N+1 application-level recursion (§4.2).
func (r *FolderRepository) Descendants(ctx context.Context, q database.Querier, projectID, folderID int64) ([]*models.Folder, error) {
	rows, err := q.QueryContext(ctx, `
		WITH RECURSIVE sub(id) AS (
			SELECT id FROM folders WHERE parent_id = ? AND project_id = ?
			UNION ALL
			SELECT f.id FROM folders f JOIN sub ON f.parent_id = sub.id WHERE f.project_id = ?
		)
		SELECT f.id, f.project_id, f.parent_id, f.path, f.name, f.photo_count
		FROM folders f JOIN sub ON f.id = sub.id
		ORDER BY f.path ASC`, folderID, projectID, projectID)
	if err != nil {
		return nil, fmt.Errorf("query folder descendants: %w", err)
	}
	defer rows.Close()
	return scanFolders(rows)
}

func scanFolders(rows *sql.Rows) ([]*models.Folder, error) {
	var out []*models.Folder
	for rows.Next() {
		var f models.Folder
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.ParentID, &f.Path, &f.Name, &f.PhotoCount); err != nil {
			return nil, fmt.Errorf("scan folder row: %w", err)
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

// FindByID returns the folder with the given id.
func (r *FolderRepository) FindByID(ctx context.Context, q database.Querier, id int64) (*models.Folder, error) {
	var f models.Folder
	err := q.QueryRowContext(ctx,
		`SELECT id, project_id, parent_id, path, name, photo_count FROM folders WHERE id = ?`, id).
		Scan(&f.ID, &f.ProjectID, &f.ParentID, &f.Path, &f.Name, &f.PhotoCount)
	if err != nil {
		return nil, scanRowNotFound(err, "folders", id)
	}
	return &f, nil
}
