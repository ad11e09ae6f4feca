package semantic

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/mediacatalog/internal/config"
	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/models"
	"github.com/tomtom215/mediacatalog/internal/repository"
)

const testModel = "clip-vit-b32"

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(&config.DatabaseConfig{
		Path: ":memory:", AutoInit: true, BusyTimeout: 5 * time.Second, PoolSize: 4,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// seedEmbeddings creates projectID with n photos, each embedded at a point
// on the unit circle spaced 2π/n apart, so cosine similarity ranks exactly
// match angular distance from any query point.
func seedEmbeddings(t *testing.T, ctx context.Context, db *database.DB, n int) (projectID int64, photoIDs []int64) {
	t.Helper()
	photos := repository.NewPhotoRepository(db)
	folders := repository.NewFolderRepository(db)
	projects := repository.NewProjectRepository(db)
	vecs := repository.NewSemanticRepository(db)
	modified := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		projectID, err = projects.Create(ctx, tx, "Test Project", "")
		if err != nil {
			return err
		}
		folderID, err := folders.Ensure(ctx, tx, projectID, "/root", "root", nil)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			path := fmt.Sprintf("/root/p%d.jpg", i)
			photoID, err := photos.Upsert(ctx, tx, repository.PhotoUpsertInput{
				ProjectID: projectID, FolderID: folderID, Path: path, SizeKB: 1, Modified: modified,
			})
			if err != nil {
				return err
			}
			photoIDs = append(photoIDs, photoID)

			vec := unitCircle(i, n)
			if err := vecs.Upsert(ctx, tx, models.SemanticEmbedding{
				PhotoID: photoID, ProjectID: projectID, Model: testModel, Vector: vec, Dim: len(vec), Norm: 1.0,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return projectID, photoIDs
}

func TestSearchRanksByCosineSimilarity(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := New(db, nil)

	projectID, photoIDs := seedEmbeddings(t, ctx, db, 8)

	// photoIDs[0] sits at angle 0; query with the same vector should rank
	// photoIDs[0] first.
	results, err := svc.Search(ctx, projectID, testModel, unitCircle(0, 8), 3, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, photoIDs[0], results[0].PhotoID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestSearchHonorsCandidateFilter(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := New(db, nil)

	projectID, photoIDs := seedEmbeddings(t, ctx, db, 8)

	results, err := svc.Search(ctx, projectID, testModel, unitCircle(0, 8), 5, []int64{photoIDs[4]})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, photoIDs[4], results[0].PhotoID)
}

// TestRefineMovesPositivesUpAndNegativesDown covers the S4 relevance
// feedback scenario at reduced scale: marking a mid-ranked photo positive
// and the current top result negative should pull the positive closer to
// the top and demote the negative, per the Rocchio update in §4.7.
func TestRefineMovesPositivesUpAndNegativesDown(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := New(db, nil)

	projectID, photoIDs := seedEmbeddings(t, ctx, db, 12)
	query := unitCircle(0, 12)
	positivePhoto := photoIDs[4]
	negativePhoto := photoIDs[0] // identical to the query vector, always the unique top match

	baseline, err := svc.Search(ctx, projectID, testModel, query, 12, nil)
	require.NoError(t, err)
	rankBeforePositive := rankOf(baseline, positivePhoto)
	rankBeforeNegative := rankOf(baseline, negativePhoto)
	require.Equal(t, 0, rankBeforeNegative)

	refined, err := svc.Refine(ctx, projectID, testModel, query, Feedback{
		Positive: []int64{positivePhoto},
		Negative: []int64{negativePhoto},
	}, 12, nil)
	require.NoError(t, err)

	rankAfterPositive := rankOf(refined, positivePhoto)
	rankAfterNegative := rankOf(refined, negativePhoto)

	assert.Less(t, rankAfterPositive, rankBeforePositive, "positive example should rank closer to the top after feedback")
	assert.GreaterOrEqual(t, rankAfterNegative, rankBeforeNegative+3, "marked negative should move down by at least 3 positions")
}

func rankOf(results []ScoredPhoto, photoID int64) int {
	for i, r := range results {
		if r.PhotoID == photoID {
			return i
		}
	}
	return -1
}

func unitCircle(i, n int) []float32 {
	angle := 2 * math.Pi * float64(i) / float64(n)
	return []float32{float32(math.Cos(angle)), float32(math.Sin(angle))}
}

func TestSaveAndUseSavedSearchTracksUsage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := New(db, nil)

	projectID, _ := seedEmbeddings(t, ctx, db, 2)
	text := "sunset beach"

	id, err := svc.SaveSearch(ctx, models.SavedSearch{
		ProjectID: projectID, Name: "Sunsets", SearchType: "text", Text: &text, Model: testModel,
	})
	require.NoError(t, err)

	search, err := svc.UseSavedSearch(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 1, search.UseCount)

	search, err = svc.UseSavedSearch(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 2, search.UseCount)
}

func TestRecordAndClearSearchHistory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := New(db, nil)

	projectID, photoIDs := seedEmbeddings(t, ctx, db, 2)
	_, err := svc.RecordSearch(ctx, models.SearchHistory{
		ProjectID: projectID, SearchType: "image", ResultCount: 1, TopIDs: photoIDs, Model: testModel,
	})
	require.NoError(t, err)

	history, err := svc.RecentSearches(ctx, projectID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, photoIDs, history[0].TopIDs)

	n, err := svc.ClearHistory(ctx, projectID, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	history, err = svc.RecentSearches(ctx, projectID, 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}
