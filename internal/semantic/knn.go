package semantic

import (
	"context"
	"fmt"
	"sort"

	"github.com/tomtom215/mediacatalog/internal/database"
)

// ScoredPhoto is one search hit: a photo id and its cosine similarity to
// the query vector.
type ScoredPhoto struct {
	PhotoID int64
	Score   float64
}

// Search returns the topK photos under (projectID, model) most similar to
// query, optionally restricted to candidatePhotoIDs (used by UI filters).
// Vectors are pre-L2-normalized on write, so cosine similarity reduces to a
// dot product (§4.7 "k-NN"). A brute-force pass over every stored vector is
// within budget below cfg.MaxBruteForceVectors; above that the caller is
// expected to have pre-filtered via candidatePhotoIDs.
func (s *Service) Search(ctx context.Context, projectID int64, model string, query []float32, topK int, candidatePhotoIDs []int64) ([]ScoredPhoto, error) {
	var embeddings []repoEmbedding
	err := s.db.WithReadConn(ctx, func(q database.Querier) error {
		all, err := s.vecs.ListByModel(ctx, q, projectID, model)
		if err != nil {
			return err
		}
		embeddings = make([]repoEmbedding, len(all))
		for i, e := range all {
			embeddings[i] = repoEmbedding{photoID: e.PhotoID, vector: e.Vector}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load embeddings for search: %w", err)
	}

	var allow map[int64]struct{}
	if len(candidatePhotoIDs) > 0 {
		allow = make(map[int64]struct{}, len(candidatePhotoIDs))
		for _, id := range candidatePhotoIDs {
			allow[id] = struct{}{}
		}
	}

	scored := make([]ScoredPhoto, 0, len(embeddings))
	for _, e := range embeddings {
		if allow != nil {
			if _, ok := allow[e.photoID]; !ok {
				continue
			}
		}
		scored = append(scored, ScoredPhoto{PhotoID: e.photoID, Score: dot(query, e.vector)})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

type repoEmbedding struct {
	photoID int64
	vector  []float32
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
