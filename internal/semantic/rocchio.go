package semantic

import (
	"context"
	"fmt"
	"math"

	"github.com/tomtom215/mediacatalog/internal/database"
)

// Feedback holds the photo ids a user marked positive/negative for one
// relevance-feedback round.
type Feedback struct {
	Positive []int64
	Negative []int64
}

// Refine computes the Rocchio-adjusted query Q' = α·Q + β·centroid(D+) -
// γ·centroid(D-), L2-normalizes it, and re-runs Search with it (§4.7
// "Rocchio relevance feedback"). When fb.Positive is empty the original
// query is used unchanged, matching the spec's stated fallback.
func (s *Service) Refine(ctx context.Context, projectID int64, model string, query []float32, fb Feedback, topK int, candidatePhotoIDs []int64) ([]ScoredPhoto, error) {
	adjusted, err := s.rocchioQuery(ctx, projectID, model, query, fb)
	if err != nil {
		return nil, err
	}
	return s.Search(ctx, projectID, model, adjusted, topK, candidatePhotoIDs)
}

// FindMoreLikeThese is Refine with Q = centroid(examples) and no negative
// set, the spec's "find more like these" shortcut.
func (s *Service) FindMoreLikeThese(ctx context.Context, projectID int64, model string, examplePhotoIDs []int64, topK int, candidatePhotoIDs []int64) ([]ScoredPhoto, error) {
	vectors, err := s.vectorsByPhotoID(ctx, projectID, model, examplePhotoIDs)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("find more like these: no embeddings found for given photos")
	}
	query := l2Normalize(centroid(vectors, len(vectors[0])))
	return s.Search(ctx, projectID, model, query, topK, candidatePhotoIDs)
}

func (s *Service) rocchioQuery(ctx context.Context, projectID int64, model string, query []float32, fb Feedback) ([]float32, error) {
	if len(fb.Positive) == 0 {
		return query, nil
	}

	posVecs, err := s.vectorsByPhotoID(ctx, projectID, model, fb.Positive)
	if err != nil {
		return nil, err
	}
	negVecs, err := s.vectorsByPhotoID(ctx, projectID, model, fb.Negative)
	if err != nil {
		return nil, err
	}

	dim := len(query)
	out := make([]float32, dim)
	for i := 0; i < dim; i++ {
		out[i] = float32(s.cfg.RocchioAlpha) * query[i]
	}
	if posCentroid := centroid(posVecs, dim); posCentroid != nil {
		for i := 0; i < dim; i++ {
			out[i] += float32(s.cfg.RocchioBeta) * posCentroid[i]
		}
	}
	if negCentroid := centroid(negVecs, dim); negCentroid != nil {
		for i := 0; i < dim; i++ {
			out[i] -= float32(s.cfg.RocchioGamma) * negCentroid[i]
		}
	}

	return l2Normalize(out), nil
}

func (s *Service) vectorsByPhotoID(ctx context.Context, projectID int64, model string, photoIDs []int64) ([][]float32, error) {
	if len(photoIDs) == 0 {
		return nil, nil
	}
	want := make(map[int64]struct{}, len(photoIDs))
	for _, id := range photoIDs {
		want[id] = struct{}{}
	}

	var out [][]float32
	err := s.db.WithReadConn(ctx, func(q database.Querier) error {
		all, err := s.vecs.ListByModel(ctx, q, projectID, model)
		if err != nil {
			return err
		}
		for _, e := range all {
			if _, ok := want[e.PhotoID]; ok {
				out = append(out, e.Vector)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load feedback vectors: %w", err)
	}
	return out, nil
}

func centroid(vectors [][]float32, dim int) []float32 {
	if len(vectors) == 0 || dim == 0 {
		return nil
	}
	sum := make([]float64, dim)
	for _, v := range vectors {
		for i := 0; i < dim && i < len(v); i++ {
			sum[i] += float64(v[i])
		}
	}
	out := make([]float32, dim)
	for i, v := range sum {
		out[i] = float32(v / float64(len(vectors)))
	}
	return out
}

func l2Normalize(v []float32) []float32 {
	var sumSq float64
	for _, f := range v {
		sumSq += float64(f) * float64(f)
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out
}
