package semantic

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// RecordSearch inserts one executed search into history, truncating top
// ids to 10 per the spec's stated cap (§4.7 "Search history").
func (s *Service) RecordSearch(ctx context.Context, h models.SearchHistory) (int64, error) {
	if len(h.TopIDs) > 10 {
		h.TopIDs = h.TopIDs[:10]
	}
	var id int64
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = s.vecs.InsertSearchHistory(ctx, tx, h)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("record search: %w", err)
	}
	return id, nil
}

// RecentSearches returns the most recent limit history rows for projectID.
func (s *Service) RecentSearches(ctx context.Context, projectID int64, limit int) ([]models.SearchHistory, error) {
	var out []models.SearchHistory
	err := s.db.WithReadConn(ctx, func(q database.Querier) error {
		var err error
		out, err = s.vecs.ListSearchHistory(ctx, q, projectID, limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list recent searches: %w", err)
	}
	return out, nil
}

// ClearHistory removes search history for projectID, wholly if olderThan is
// nil or only rows older than olderThan otherwise.
func (s *Service) ClearHistory(ctx context.Context, projectID int64, olderThan *time.Time) (int64, error) {
	var n int64
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		n, err = s.vecs.ClearSearchHistory(ctx, tx, projectID, olderThan)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("clear search history: %w", err)
	}
	return n, nil
}

// SaveSearch promotes a query to a named, reusable saved search.
func (s *Service) SaveSearch(ctx context.Context, search models.SavedSearch) (int64, error) {
	var id int64
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = s.saved.Create(ctx, tx, search)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("save search: %w", err)
	}
	return id, nil
}

// UseSavedSearch loads a saved search and bumps its use_count/last_used_at,
// returning the search so the caller can re-run it.
func (s *Service) UseSavedSearch(ctx context.Context, id int64) (*models.SavedSearch, error) {
	var search *models.SavedSearch
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.saved.Touch(ctx, tx, id); err != nil {
			return err
		}
		var err error
		search, err = s.saved.FindByID(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("use saved search: %w", err)
	}
	return search, nil
}
