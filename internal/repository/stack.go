package repository

import (
	"context"
	"fmt"

	"github.com/tomtom215/mediacatalog/internal/catalogerr"
	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// StackRepository implements the §4.2 StackRepository contract.
type StackRepository struct {
	base
}

// NewStackRepository builds a StackRepository bound to db.
func NewStackRepository(db *database.DB) *StackRepository {
	return &StackRepository{base: base{db: db}}
}

// Create inserts a new stack and its params snapshot in one write.
func (r *StackRepository) Create(ctx context.Context, q database.Querier, projectID int64, stackType models.StackType, representativePhotoID *int64, ruleVersion, paramsJSON string) (int64, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO media_stack (project_id, stack_type, rule_version, representative_photo_id) VALUES (?, ?, ?, ?)`,
		projectID, stackType, ruleVersion, representativePhotoID)
	if err != nil {
		return 0, fmt.Errorf("create stack: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("stack insert id: %w", err)
	}
	if _, err := q.ExecContext(ctx,
		`INSERT INTO media_stack_meta (stack_id, params_json) VALUES (?, ?)`, id, paramsJSON); err != nil {
		return 0, fmt.Errorf("create stack meta: %w", err)
	}
	return id, nil
}

// AddMember attaches photoID to stackID at the given rank, enforcing
// invariant 8: members share the stack's project_id and rank is unique
// within a stack (the UNIQUE(stack_id, rank) constraint backs this too).
func (r *StackRepository) AddMember(ctx context.Context, q database.Querier, stackID, projectID, photoID int64, rank int, score *float64) (int64, error) {
	var stackProject int64
	if err := q.QueryRowContext(ctx, `SELECT project_id FROM media_stack WHERE id = ?`, stackID).Scan(&stackProject); err != nil {
		return 0, scanRowNotFound(err, "media_stack", stackID)
	}
	if stackProject != projectID {
		return 0, fmt.Errorf("%w: stack %d belongs to project %d, not %d", catalogerr.ErrCrossProject, stackID, stackProject, projectID)
	}

	res, err := q.ExecContext(ctx,
		`INSERT INTO media_stack_member (stack_id, project_id, photo_id, rank, similarity_score) VALUES (?, ?, ?, ?, ?)`,
		stackID, projectID, photoID, rank, score)
	if err != nil {
		return 0, fmt.Errorf("add stack member: %w", err)
	}
	return res.LastInsertId()
}

// ListMembers returns a stack's members ordered by rank.
func (r *StackRepository) ListMembers(ctx context.Context, q database.Querier, stackID int64) ([]*models.MediaStackMember, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, stack_id, project_id, photo_id, rank, similarity_score
		FROM media_stack_member WHERE stack_id = ? ORDER BY rank ASC`, stackID)
	if err != nil {
		return nil, fmt.Errorf("list stack members: %w", err)
	}
	defer rows.Close()

	var out []*models.MediaStackMember
	for rows.Next() {
		var m models.MediaStackMember
		if err := rows.Scan(&m.ID, &m.StackID, &m.ProjectID, &m.PhotoID, &m.Rank, &m.SimilarityScore); err != nil {
			return nil, fmt.Errorf("scan stack member row: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// GetMeta returns a stack's params JSON snapshot.
func (r *StackRepository) GetMeta(ctx context.Context, q database.Querier, stackID int64) (*models.MediaStackMeta, error) {
	var m models.MediaStackMeta
	err := q.QueryRowContext(ctx,
		`SELECT stack_id, params_json FROM media_stack_meta WHERE stack_id = ?`, stackID).
		Scan(&m.StackID, &m.ParamsJSON)
	if err != nil {
		return nil, scanRowNotFound(err, "media_stack_meta", stackID)
	}
	return &m, nil
}

// FindByID returns the stack with the given id.
func (r *StackRepository) FindByID(ctx context.Context, q database.Querier, id int64) (*models.MediaStack, error) {
	var s models.MediaStack
	err := q.QueryRowContext(ctx,
		`SELECT id, project_id, stack_type, rule_version, representative_photo_id, created_at FROM media_stack WHERE id = ?`, id).
		Scan(&s.ID, &s.ProjectID, &s.StackType, &s.RuleVersion, &s.RepresentativePhotoID, &s.CreatedAt)
	if err != nil {
		return nil, scanRowNotFound(err, "media_stack", id)
	}
	return &s, nil
}

// DeleteByRuleVersion deletes every stack of stackType whose rule_version is
// not currentVersion, implementing the "delete-then-insert" rebuild
// semantics the duplicate/stack service uses when its rules change.
func (r *StackRepository) DeleteByRuleVersion(ctx context.Context, q database.Querier, projectID int64, stackType models.StackType, currentVersion string) (int64, error) {
	res, err := q.ExecContext(ctx,
		`DELETE FROM media_stack WHERE project_id = ? AND stack_type = ? AND rule_version != ?`,
		projectID, stackType, currentVersion)
	if err != nil {
		return 0, fmt.Errorf("delete stale stacks: %w", err)
	}
	return res.RowsAffected()
}
