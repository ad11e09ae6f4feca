// Package catalogerr defines the small sentinel-error taxonomy used across
// the catalog core (§7). Errors are classified with errors.Is/errors.As
// rather than modeled as exception types, per the REDESIGN FLAGS.
package catalogerr

import "errors"

var (
	// ErrSchemaMissing means an expected table is absent; fatal at startup.
	ErrSchemaMissing = errors.New("catalog: expected schema object is missing")
	// ErrCrossProject means a mutation would link rows from different projects.
	ErrCrossProject = errors.New("catalog: cross-project reference is forbidden")
	// ErrInvalidBBox means a face crop's bounding box is out of range.
	ErrInvalidBBox = errors.New("catalog: invalid face crop bounding box")
	// ErrNotFound replaces the source's exception-driven "no rows" signaling.
	ErrNotFound = errors.New("catalog: record not found")
	// ErrStale marks a derived artifact (embedding) that must be recomputed.
	ErrStale = errors.New("catalog: derived artifact is stale")
	// ErrAlreadyRunning guards singleton import/indexer runs.
	ErrAlreadyRunning = errors.New("catalog: operation already in progress")
	// ErrNoMergeHistory means undo was requested with nothing to undo.
	ErrNoMergeHistory = errors.New("catalog: no merge history to undo")
)
