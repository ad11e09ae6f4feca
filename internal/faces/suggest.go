package faces

import (
	"context"
	"encoding/binary"
	"math"
	"sort"

	"github.com/tomtom215/mediacatalog/internal/database"
)

// defaultSuggestThreshold and defaultSuggestMinCount match the spec's
// stated defaults for merge suggestions (§4.6).
const (
	defaultSuggestThreshold = 0.45
	defaultSuggestMinCount  = 3
)

// MergeSuggestion is one candidate pair of clusters worth reviewing for a
// merge, ordered by ascending centroid distance.
type MergeSuggestion struct {
	BranchA, BranchB string
	Distance         float64
}

// SuggestMerges returns every pair of clusters with member_count >= minCount
// and a non-null centroid whose Euclidean distance is <= threshold, sorted
// ascending and capped at maxPairs (§4.6 "Merge suggestions"). A zero
// threshold or minCount falls back to the spec's stated defaults.
func (s *Service) SuggestMerges(ctx context.Context, projectID int64, minCount int, threshold float64, maxPairs int) ([]MergeSuggestion, error) {
	if minCount <= 0 {
		minCount = s.cfg.SuggestMinCount
	}
	if threshold <= 0 {
		threshold = s.cfg.SuggestThreshold
	}
	if maxPairs <= 0 {
		maxPairs = s.cfg.SuggestMaxPairs
	}

	var reps []repCentroid
	err := s.db.WithReadConn(ctx, func(q database.Querier) error {
		all, err := s.faces.ListReps(ctx, q, projectID)
		if err != nil {
			return err
		}
		for _, r := range all {
			if r.MemberCount < minCount || len(r.Centroid) == 0 {
				continue
			}
			reps = append(reps, repCentroid{branchKey: r.BranchKey, vector: decodeCentroid(r.Centroid)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var out []MergeSuggestion
	for i := 0; i < len(reps); i++ {
		for j := i + 1; j < len(reps); j++ {
			d, ok := euclideanDistance(reps[i].vector, reps[j].vector)
			if !ok || d > threshold {
				continue
			}
			out = append(out, MergeSuggestion{BranchA: reps[i].branchKey, BranchB: reps[j].branchKey, Distance: d})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if maxPairs > 0 && len(out) > maxPairs {
		out = out[:maxPairs]
	}
	return out, nil
}

type repCentroid struct {
	branchKey string
	vector    []float32
}

func euclideanDistance(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return math.Sqrt(sum), true
}

// encodeCentroid/decodeCentroid are this package's local float32-vector
// codec. internal/repository has an equivalent codec for semantic
// embeddings, but it is unexported there; duplicating a four-line
// little-endian round trip here is simpler than exporting a
// cross-package dependency for it.
func encodeCentroid(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeCentroid(b []byte) []float32 {
	n := len(b) / 4
	v := make([]float32, n)
	for i := 0; i < n; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
