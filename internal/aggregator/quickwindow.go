package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/mediacatalog/internal/database"
)

// QuickWindow names one of the predefined sidebar date shortcuts (§4.4).
type QuickWindow string

const (
	WindowToday           QuickWindow = "today"
	WindowThisWeek        QuickWindow = "this_week"
	WindowThisMonth       QuickWindow = "this_month"
	WindowLast30Days      QuickWindow = "last_30_days"
	WindowThisYear        QuickWindow = "this_year"
	WindowRecentlyIndexed QuickWindow = "recently_indexed"
)

// windowMode selects which timestamp a window filters on: "meta" uses
// date(COALESCE(date_taken, modified)); "updated" uses updated_at.
type windowMode string

const (
	modeMeta    windowMode = "meta"
	modeUpdated windowMode = "updated"
)

// Bounds resolves a QuickWindow to a [start, end) range and the column mode
// it filters on, relative to now.
func (w QuickWindow) Bounds(now time.Time) (start, end time.Time, mode windowMode, err error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch w {
	case WindowToday:
		return today, today.AddDate(0, 0, 1), modeMeta, nil
	case WindowThisWeek:
		offset := int(today.Weekday())
		weekStart := today.AddDate(0, 0, -offset)
		return weekStart, weekStart.AddDate(0, 0, 7), modeMeta, nil
	case WindowThisMonth:
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return monthStart, monthStart.AddDate(0, 1, 0), modeMeta, nil
	case WindowLast30Days:
		return today.AddDate(0, 0, -30), today.AddDate(0, 0, 1), modeMeta, nil
	case WindowThisYear:
		yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		return yearStart, yearStart.AddDate(1, 0, 0), modeMeta, nil
	case WindowRecentlyIndexed:
		return today.AddDate(0, 0, -7), today.AddDate(0, 0, 1), modeUpdated, nil
	default:
		return time.Time{}, time.Time{}, "", fmt.Errorf("unknown quick window %q", w)
	}
}

// CountInWindow returns the combined photo+video count falling in w,
// relative to now.
func (a *Aggregator) CountInWindow(ctx context.Context, q database.Querier, projectID int64, w QuickWindow, now time.Time) (int, error) {
	var count int
	err := a.met.ObserveQuery("CountInWindow", func() error {
		var err error
		count, err = countInWindow(ctx, q, projectID, w, now)
		return err
	})
	return count, err
}

func countInWindow(ctx context.Context, q database.Querier, projectID int64, w QuickWindow, now time.Time) (int, error) {
	start, end, mode, err := w.Bounds(now)
	if err != nil {
		return 0, err
	}

	column := "date(COALESCE(date_taken, modified))"
	if mode == modeUpdated {
		column = "date(updated_at)"
	}

	var count int
	err = q.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT
			(SELECT COUNT(*) FROM photos WHERE project_id = ? AND %s >= date(?) AND %s < date(?)) +
			(SELECT COUNT(*) FROM videos WHERE project_id = ? AND %s >= date(?) AND %s < date(?))`,
		column, column, column, column),
		projectID, start.Format("2006-01-02"), end.Format("2006-01-02"),
		projectID, start.Format("2006-01-02"), end.Format("2006-01-02"),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count quick window %s: %w", w, err)
	}
	return count, nil
}
