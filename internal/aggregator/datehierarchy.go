package aggregator

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tomtom215/mediacatalog/internal/database"
)

// DateHierarchy returns {year: {month: [day, ...]}} built from every
// distinct created_date across photos and videos for the project (§4.4).
func (a *Aggregator) DateHierarchy(ctx context.Context, q database.Querier, projectID int64) (map[int]map[int][]int, error) {
	var tree map[int]map[int][]int
	err := a.met.ObserveQuery("DateHierarchy", func() error {
		var err error
		tree, err = dateHierarchy(ctx, q, projectID)
		return err
	})
	return tree, err
}

func dateHierarchy(ctx context.Context, q database.Querier, projectID int64) (map[int]map[int][]int, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT DISTINCT created_date FROM photos WHERE project_id = ? AND created_date IS NOT NULL
		UNION
		SELECT DISTINCT created_date FROM videos WHERE project_id = ? AND created_date IS NOT NULL`,
		projectID, projectID)
	if err != nil {
		return nil, fmt.Errorf("query date hierarchy: %w", err)
	}
	defer rows.Close()

	tree := make(map[int]map[int][]int)
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, fmt.Errorf("scan date hierarchy row: %w", err)
		}
		year, month, day, err := splitISODate(date)
		if err != nil {
			continue
		}
		months, ok := tree[year]
		if !ok {
			months = make(map[int][]int)
			tree[year] = months
		}
		months[month] = append(months[month], day)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, months := range tree {
		for month, days := range months {
			sort.Ints(days)
			months[month] = days
		}
	}
	return tree, nil
}

// splitISODate parses a "YYYY-MM-DD" created_date value.
func splitISODate(date string) (year, month, day int, err error) {
	parts := strings.SplitN(date, "-", 3)
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("malformed created_date %q", date)
	}
	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, err
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, err
	}
	day, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, 0, err
	}
	return year, month, day, nil
}
