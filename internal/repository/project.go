package repository

import (
	"context"
	"fmt"

	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// ProjectRepository manages the top-level container every other row
// belongs to (§3, invariant 1).
type ProjectRepository struct {
	base
}

// NewProjectRepository builds a ProjectRepository bound to db.
func NewProjectRepository(db *database.DB) *ProjectRepository {
	return &ProjectRepository{base: base{db: db}}
}

// Create inserts a new project.
func (r *ProjectRepository) Create(ctx context.Context, q database.Querier, name, semanticModel string) (int64, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO projects (name, semantic_model) VALUES (?, ?)`, name, semanticModel)
	if err != nil {
		return 0, fmt.Errorf("create project: %w", err)
	}
	return res.LastInsertId()
}

// FindByID returns the project with the given id.
func (r *ProjectRepository) FindByID(ctx context.Context, q database.Querier, id int64) (*models.Project, error) {
	var p models.Project
	err := q.QueryRowContext(ctx,
		`SELECT id, name, semantic_model, created_at, updated_at FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.SemanticModel, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, scanRowNotFound(err, "projects", id)
	}
	return &p, nil
}

// FindAll returns every project, ordered by name.
func (r *ProjectRepository) FindAll(ctx context.Context, q database.Querier) ([]*models.Project, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name, semantic_model, created_at, updated_at FROM projects ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []*models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.SemanticModel, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project row: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// DeleteByID removes a project; ON DELETE CASCADE takes every owned row
// with it (folders, photos, tags, assets, stacks, embeddings, faces...).
func (r *ProjectRepository) DeleteByID(ctx context.Context, q database.Querier, id int64) error {
	return r.deleteByID(ctx, q, "projects", id)
}

// FindByName returns the project with the given name, used by the CLI to
// resolve a --project flag to an id.
func (r *ProjectRepository) FindByName(ctx context.Context, q database.Querier, name string) (*models.Project, error) {
	var p models.Project
	err := q.QueryRowContext(ctx,
		`SELECT id, name, semantic_model, created_at, updated_at FROM projects WHERE name = ?`, name).
		Scan(&p.ID, &p.Name, &p.SemanticModel, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, scanRowNotFound(err, "projects", name)
	}
	return &p, nil
}
