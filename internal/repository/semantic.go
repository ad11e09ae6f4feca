package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// SemanticRepository stores and queries per-(photo, model) embeddings.
type SemanticRepository struct {
	base
}

// NewSemanticRepository builds a SemanticRepository bound to db.
func NewSemanticRepository(db *database.DB) *SemanticRepository {
	return &SemanticRepository{base: base{db: db}}
}

// float32SliceToBytes / bytesToFloat32Slice implement the BLOB<->[]float32
// codec for semantic_embeddings.vector; kept alongside the repository that
// owns the column rather than in a shared codec package, since nothing else
// needs it.
func float32SliceToBytes(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, f := range v {
		bits := math.Float32bits(f)
		out[i*4+0] = byte(bits)
		out[i*4+1] = byte(bits >> 8)
		out[i*4+2] = byte(bits >> 16)
		out[i*4+3] = byte(bits >> 24)
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		bits := uint32(b[i*4]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
		out[i] = math.Float32frombits(bits)
	}
	return out
}

// Upsert stores the embedding for (photoID, model). norm is not recomputed
// from vector (testable property 6: normalized to within 1e-3 of 1.0 is the
// caller's job; this just persists whatever norm is supplied).
func (r *SemanticRepository) Upsert(ctx context.Context, q database.Querier, e models.SemanticEmbedding) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO semantic_embeddings (photo_id, project_id, model, vector, dim, norm, source_photo_hash, source_photo_mtime, artifact_version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(photo_id, model) DO UPDATE SET
			vector = excluded.vector, dim = excluded.dim, norm = excluded.norm,
			source_photo_hash = excluded.source_photo_hash, source_photo_mtime = excluded.source_photo_mtime,
			artifact_version = excluded.artifact_version, updated_at = CURRENT_TIMESTAMP`,
		e.PhotoID, e.ProjectID, e.Model, float32SliceToBytes(e.Vector), e.Dim, e.Norm,
		e.SourcePhotoHash, e.SourcePhotoMtime, e.ArtifactVersion)
	if err != nil {
		return fmt.Errorf("upsert semantic embedding: %w", err)
	}
	if _, err := q.ExecContext(ctx, `
		INSERT INTO semantic_index_meta (project_id, model, vector_count, last_indexed_at)
		VALUES (?, ?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(project_id, model) DO UPDATE SET
			vector_count = (SELECT COUNT(*) FROM semantic_embeddings WHERE project_id = ? AND model = ?),
			last_indexed_at = CURRENT_TIMESTAMP`,
		e.ProjectID, e.Model, e.ProjectID, e.Model); err != nil {
		return fmt.Errorf("update semantic index meta: %w", err)
	}
	return nil
}

// ListByModel returns every embedding for (projectID, model), used by the
// brute-force k-NN search (§4.7 "no ANN index, brute force over the
// project's embeddings is within budget at catalog scale").
func (r *SemanticRepository) ListByModel(ctx context.Context, q database.Querier, projectID int64, model string) ([]models.SemanticEmbedding, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT photo_id, project_id, model, vector, dim, norm, source_photo_hash, source_photo_mtime, artifact_version, updated_at
		FROM semantic_embeddings WHERE project_id = ? AND model = ?`, projectID, model)
	if err != nil {
		return nil, fmt.Errorf("list semantic embeddings: %w", err)
	}
	defer rows.Close()

	var out []models.SemanticEmbedding
	for rows.Next() {
		var e models.SemanticEmbedding
		var raw []byte
		if err := rows.Scan(&e.PhotoID, &e.ProjectID, &e.Model, &raw, &e.Dim, &e.Norm,
			&e.SourcePhotoHash, &e.SourcePhotoMtime, &e.ArtifactVersion, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan semantic embedding row: %w", err)
		}
		e.Vector = bytesToFloat32Slice(raw)
		out = append(out, e)
	}
	return out, rows.Err()
}

// StaleEmbeddings returns embeddings whose source_photo_hash no longer
// matches the photo's current image_content_hash, or whose artifact_version
// differs from currentVersion (invariant 10).
func (r *SemanticRepository) StaleEmbeddings(ctx context.Context, q database.Querier, projectID int64, model string, currentVersion int) ([]int64, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT e.photo_id
		FROM semantic_embeddings e
		JOIN photos p ON p.id = e.photo_id
		WHERE e.project_id = ? AND e.model = ?
		  AND (e.source_photo_hash != COALESCE(p.image_content_hash, '') OR e.artifact_version != ?)`,
		projectID, model, currentVersion)
	if err != nil {
		return nil, fmt.Errorf("query stale embeddings: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stale embedding id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertSearchHistory records one executed search.
func (r *SemanticRepository) InsertSearchHistory(ctx context.Context, q database.Querier, h models.SearchHistory) (int64, error) {
	topIDs, err := json.Marshal(h.TopIDs)
	if err != nil {
		return 0, fmt.Errorf("marshal search history top ids: %w", err)
	}
	res, err := q.ExecContext(ctx, `
		INSERT INTO search_history (project_id, search_type, text, image_path, result_count, top_ids_json, filters_json, execution_ms, model)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ProjectID, h.SearchType, h.Text, h.ImagePath, h.ResultCount, string(topIDs), h.FiltersJSON, h.ExecutionMS, h.Model)
	if err != nil {
		return 0, fmt.Errorf("insert search history: %w", err)
	}
	return res.LastInsertId()
}

// ListSearchHistory returns the most recent limit search history rows for
// projectID, newest first.
func (r *SemanticRepository) ListSearchHistory(ctx context.Context, q database.Querier, projectID int64, limit int) ([]models.SearchHistory, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, project_id, search_type, text, image_path, result_count, top_ids_json, filters_json, execution_ms, model, created_at
		FROM search_history WHERE project_id = ? ORDER BY created_at DESC LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("list search history: %w", err)
	}
	defer rows.Close()

	var out []models.SearchHistory
	for rows.Next() {
		var h models.SearchHistory
		var topIDsJSON string
		if err := rows.Scan(&h.ID, &h.ProjectID, &h.SearchType, &h.Text, &h.ImagePath, &h.ResultCount,
			&topIDsJSON, &h.FiltersJSON, &h.ExecutionMS, &h.Model, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan search history row: %w", err)
		}
		if err := json.Unmarshal([]byte(topIDsJSON), &h.TopIDs); err != nil {
			return nil, fmt.Errorf("unmarshal search history top ids: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// ClearSearchHistory deletes every history row for projectID. If olderThan
// is non-nil, only rows created before that time are removed.
func (r *SemanticRepository) ClearSearchHistory(ctx context.Context, q database.Querier, projectID int64, olderThan *time.Time) (int64, error) {
	var res sql.Result
	var err error
	if olderThan == nil {
		res, err = q.ExecContext(ctx, `DELETE FROM search_history WHERE project_id = ?`, projectID)
	} else {
		res, err = q.ExecContext(ctx, `DELETE FROM search_history WHERE project_id = ? AND created_at < ?`, projectID, *olderThan)
	}
	if err != nil {
		return 0, fmt.Errorf("clear search history: %w", err)
	}
	return res.RowsAffected()
}

// SavedSearchRepository persists named, reusable searches (§3).
type SavedSearchRepository struct {
	base
}

// NewSavedSearchRepository builds a SavedSearchRepository bound to db.
func NewSavedSearchRepository(db *database.DB) *SavedSearchRepository {
	return &SavedSearchRepository{base: base{db: db}}
}

// Create inserts a new saved search.
func (r *SavedSearchRepository) Create(ctx context.Context, q database.Querier, s models.SavedSearch) (int64, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO saved_search (project_id, name, search_type, text, filters_json, model)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.ProjectID, s.Name, s.SearchType, s.Text, s.FiltersJSON, s.Model)
	if err != nil {
		return 0, fmt.Errorf("create saved search: %w", err)
	}
	return res.LastInsertId()
}

// Touch increments use_count and sets last_used_at, called every time a
// saved search is re-run.
func (r *SavedSearchRepository) Touch(ctx context.Context, q database.Querier, id int64) error {
	_, err := q.ExecContext(ctx,
		`UPDATE saved_search SET use_count = use_count + 1, last_used_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("touch saved search: %w", err)
	}
	return nil
}

// FindByID returns the saved search with the given id.
func (r *SavedSearchRepository) FindByID(ctx context.Context, q database.Querier, id int64) (*models.SavedSearch, error) {
	var s models.SavedSearch
	err := q.QueryRowContext(ctx, `
		SELECT id, project_id, name, search_type, text, filters_json, model, use_count, last_used_at, created_at
		FROM saved_search WHERE id = ?`, id).
		Scan(&s.ID, &s.ProjectID, &s.Name, &s.SearchType, &s.Text, &s.FiltersJSON, &s.Model, &s.UseCount, &s.LastUsedAt, &s.CreatedAt)
	if err != nil {
		return nil, scanRowNotFound(err, "saved_search", id)
	}
	return &s, nil
}
