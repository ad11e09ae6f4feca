package repository

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// PhotoRepository implements the §4.2 PhotoRepository contract: upsert,
// missing-metadata scan, success/failure marking, and duplicate-path
// cleanup. It never holds a connection itself; every method takes a
// database.Querier so callers choose whether to run inside a transaction.
type PhotoRepository struct {
	base
}

// NewPhotoRepository builds a PhotoRepository bound to db.
func NewPhotoRepository(db *database.DB) *PhotoRepository {
	return &PhotoRepository{base: base{db: db}}
}

// NormalizePath renders path in the form invariant 2 requires: absolute,
// OS-normalized, with every backslash converted to a forward slash.
func NormalizePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return filepath.ToSlash(filepath.Clean(abs))
}

// dateTakenFormats lists the layouts a raw date_taken string is tried
// against, in the fixed priority order §4.3 specifies: EXIF-style first,
// then the ISO and locale variants a file's own metadata might carry.
// Matches the original importer's format list exactly (reference_db.py
// _normalize_created_fields/parse_one).
var dateTakenFormats = []string{
	"2006:01:02 15:04:05", // EXIF DateTimeOriginal
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"02.01.2006 15:04:05",
	"2006-01-02",
}

// parseDateTaken tries each of dateTakenFormats in order and returns the
// first successful parse. An empty or unparseable raw string is not an
// error (§4.3 "if neither parses, leave the three fields null") — ok is
// simply false.
func parseDateTaken(raw string) (t time.Time, ok bool) {
	for _, format := range dateTakenFormats {
		if parsed, err := time.Parse(format, raw); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// deriveCreatedFields implements invariant 4: created_ts/created_date/
// created_year come from a parsed date_taken when the raw extractor string
// is parseable, else from modified; if neither produces a usable time, all
// three (and the returned date_taken) are left null. It also returns the
// parsed date_taken, the value actually stored in the date_taken column —
// parsing, not the extractor, owns turning a raw string into a time.
func deriveCreatedFields(dateTakenRaw *string, modified time.Time) (dateTaken *time.Time, ts int64, date string, year int) {
	var t time.Time
	if dateTakenRaw != nil {
		if parsed, ok := parseDateTaken(*dateTakenRaw); ok {
			parsed := parsed
			dateTaken = &parsed
			t = parsed
		}
	}
	if t.IsZero() {
		t = modified
	}
	if t.IsZero() {
		return dateTaken, 0, "", 0
	}
	return dateTaken, t.Unix(), t.Format("2006-01-02"), t.Year()
}

// PhotoUpsertInput is the argument set for Upsert (§4.2).
type PhotoUpsertInput struct {
	ProjectID int64
	FolderID  int64
	Path      string
	SizeKB    int64
	Modified  time.Time
	Width     *int
	Height    *int
	// DateTaken is the raw, unparsed value the extractor read (an EXIF-style
	// or ISO date string); parseDateTaken turns it into the stored
	// date_taken column and the derived created_* fields.
	DateTaken *string
}

// Upsert performs an insert-or-update by (path, project_id), recomputing
// created_* fields and setting metadata_status='ok' (zeroing the fail
// count) the moment width/height or date_taken becomes non-null. It never
// regresses status away from 'ok'.
func (r *PhotoRepository) Upsert(ctx context.Context, q database.Querier, in PhotoUpsertInput) (int64, error) {
	path := NormalizePath(in.Path)
	dateTaken, ts, date, year := deriveCreatedFields(in.DateTaken, in.Modified)

	var createdTS *int64
	var createdDate *string
	var createdYear *int
	if date != "" {
		createdTS, createdDate, createdYear = &ts, &date, &year
	}

	hasMetadata := in.Width != nil || in.Height != nil || in.DateTaken != nil

	existing, err := r.findByPath(ctx, q, in.ProjectID, path)
	if err != nil && err != errNotFoundLocal {
		return 0, err
	}

	if existing == nil {
		status := models.MetadataStatusPending
		if hasMetadata {
			status = models.MetadataStatusOK
		}
		res, execErr := q.ExecContext(ctx, `
			INSERT INTO photos (
				project_id, folder_id, path, size_kb, modified, width, height, date_taken,
				created_ts, created_date, created_year, metadata_status, metadata_fail_count, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, CURRENT_TIMESTAMP)`,
			in.ProjectID, in.FolderID, path, in.SizeKB, in.Modified, in.Width, in.Height, dateTaken,
			createdTS, createdDate, createdYear, status)
		if execErr != nil {
			return 0, fmt.Errorf("insert photo: %w", execErr)
		}
		return res.LastInsertId()
	}

	status := existing.MetadataStatus
	failCount := existing.MetadataFailCount
	if hasMetadata && status != models.MetadataStatusOK {
		status = models.MetadataStatusOK
		failCount = 0
	}

	if photoUnchanged(existing, in, dateTaken, status, createdTS, createdDate, createdYear) {
		return existing.ID, nil
	}

	_, execErr := q.ExecContext(ctx, `
		UPDATE photos SET
			folder_id = ?, size_kb = ?, modified = ?, width = ?, height = ?, date_taken = ?,
			created_ts = ?, created_date = ?, created_year = ?,
			metadata_status = ?, metadata_fail_count = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		in.FolderID, in.SizeKB, in.Modified, in.Width, in.Height, dateTaken,
		createdTS, createdDate, createdYear, status, failCount, existing.ID)
	if execErr != nil {
		return 0, fmt.Errorf("update photo: %w", execErr)
	}
	return existing.ID, nil
}

// photoUnchanged implements testable property 9: the second upsert of an
// identical row must not bump updated_at. dateTaken is the already-parsed
// value deriveCreatedFields produced from in.DateTaken, not the raw string.
func photoUnchanged(existing *models.Photo, in PhotoUpsertInput, dateTaken *time.Time, status models.MetadataStatus, createdTS *int64, createdDate *string, createdYear *int) bool {
	if existing.FolderID != in.FolderID || existing.SizeKB != in.SizeKB || !existing.Modified.Equal(in.Modified) {
		return false
	}
	if !intPtrEqual(existing.Width, in.Width) || !intPtrEqual(existing.Height, in.Height) {
		return false
	}
	if !timePtrEqual(existing.DateTaken, dateTaken) {
		return false
	}
	if existing.MetadataStatus != status {
		return false
	}
	if !int64PtrEqual(existing.CreatedTS, createdTS) || !strPtrEqual(existing.CreatedDate, createdDate) || !intPtrEqual(existing.CreatedYear, createdYear) {
		return false
	}
	return true
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// errNotFoundLocal is a private sentinel used only to distinguish "no row"
// from a real query error inside findByPath, never returned to callers.
var errNotFoundLocal = fmt.Errorf("photo: no row for path")

func (r *PhotoRepository) findByPath(ctx context.Context, q database.Querier, projectID int64, path string) (*models.Photo, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, project_id, folder_id, path, size_kb, modified, width, height, date_taken,
			gps_latitude, gps_longitude, created_ts, created_date, created_year,
			file_hash, image_content_hash, metadata_status, metadata_fail_count, thumbnail_status, updated_at
		FROM photos WHERE project_id = ? AND path = ?`, projectID, path)
	p, err := scanPhoto(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errNotFoundLocal
		}
		return nil, fmt.Errorf("find photo by path: %w", err)
	}
	return p, nil
}

// FindByID returns the photo with the given id.
func (r *PhotoRepository) FindByID(ctx context.Context, q database.Querier, id int64) (*models.Photo, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, project_id, folder_id, path, size_kb, modified, width, height, date_taken,
			gps_latitude, gps_longitude, created_ts, created_date, created_year,
			file_hash, image_content_hash, metadata_status, metadata_fail_count, thumbnail_status, updated_at
		FROM photos WHERE id = ?`, id)
	p, err := scanPhoto(row)
	if err != nil {
		return nil, scanRowNotFound(err, "photos", id)
	}
	return p, nil
}

func scanPhoto(row *sql.Row) (*models.Photo, error) {
	var p models.Photo
	err := row.Scan(&p.ID, &p.ProjectID, &p.FolderID, &p.Path, &p.SizeKB, &p.Modified, &p.Width, &p.Height,
		&p.DateTaken, &p.GPSLatitude, &p.GPSLongitude, &p.CreatedTS, &p.CreatedDate, &p.CreatedYear,
		&p.FileHash, &p.ImageContentHash, &p.MetadataStatus, &p.MetadataFailCount, &p.ThumbnailStatus, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// MissingMetadata returns photos needing extraction: width/height/date_taken
// null, or status in {pending, failed_retry} with fail_count < maxFailures.
func (r *PhotoRepository) MissingMetadata(ctx context.Context, q database.Querier, projectID int64, limit, maxFailures int) ([]*models.Photo, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, project_id, folder_id, path, size_kb, modified, width, height, date_taken,
			gps_latitude, gps_longitude, created_ts, created_date, created_year,
			file_hash, image_content_hash, metadata_status, metadata_fail_count, thumbnail_status, updated_at
		FROM photos
		WHERE project_id = ?
		  AND (
			width IS NULL OR height IS NULL OR date_taken IS NULL
			OR (metadata_status IN (?, ?) AND metadata_fail_count < ?)
		  )
		ORDER BY id ASC
		LIMIT ?`,
		projectID, models.MetadataStatusPending, models.MetadataStatusFailedRetry, maxFailures, limit)
	if err != nil {
		return nil, fmt.Errorf("query missing metadata: %w", err)
	}
	defer rows.Close()

	var out []*models.Photo
	for rows.Next() {
		var p models.Photo
		if err := rows.Scan(&p.ID, &p.ProjectID, &p.FolderID, &p.Path, &p.SizeKB, &p.Modified, &p.Width, &p.Height,
			&p.DateTaken, &p.GPSLatitude, &p.GPSLongitude, &p.CreatedTS, &p.CreatedDate, &p.CreatedYear,
			&p.FileHash, &p.ImageContentHash, &p.MetadataStatus, &p.MetadataFailCount, &p.ThumbnailStatus, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan missing-metadata row: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// MarkSuccess records a successful extraction: width/height/date_taken are
// set, created_* fields recomputed, status becomes 'ok', fail count zeroed.
// dateTakenRaw is the extractor's raw, unparsed date_taken string.
func (r *PhotoRepository) MarkSuccess(ctx context.Context, q database.Querier, projectID int64, path string, width, height int, dateTakenRaw *string, modified time.Time) error {
	norm := NormalizePath(path)
	dateTaken, ts, date, year := deriveCreatedFields(dateTakenRaw, modified)
	var createdTS *int64
	var createdDate *string
	var createdYear *int
	if date != "" {
		createdTS, createdDate, createdYear = &ts, &date, &year
	}

	res, err := q.ExecContext(ctx, `
		UPDATE photos SET
			width = ?, height = ?, date_taken = ?, created_ts = ?, created_date = ?, created_year = ?,
			metadata_status = ?, metadata_fail_count = 0, updated_at = CURRENT_TIMESTAMP
		WHERE project_id = ? AND path = ?`,
		width, height, dateTaken, createdTS, createdDate, createdYear, models.MetadataStatusOK, projectID, norm)
	if err != nil {
		return fmt.Errorf("mark photo success: %w", err)
	}
	return requireRowsAffected(res, "photos", norm)
}

// MarkFailure increments metadata_fail_count and sets status to
// failed_retry, or failed once maxRetries is reached (§7 extractor failure).
func (r *PhotoRepository) MarkFailure(ctx context.Context, q database.Querier, projectID int64, path string, maxRetries int) error {
	norm := NormalizePath(path)

	var failCount int
	err := q.QueryRowContext(ctx,
		`SELECT metadata_fail_count FROM photos WHERE project_id = ? AND path = ?`, projectID, norm).Scan(&failCount)
	if err != nil {
		return scanRowNotFound(err, "photos", norm)
	}

	failCount++
	status := models.MetadataStatusFailedRetry
	if failCount >= maxRetries {
		status = models.MetadataStatusFailed
	}

	res, err := q.ExecContext(ctx, `
		UPDATE photos SET metadata_status = ?, metadata_fail_count = ?, updated_at = CURRENT_TIMESTAMP
		WHERE project_id = ? AND path = ?`, status, failCount, projectID, norm)
	if err != nil {
		return fmt.Errorf("mark photo failure: %w", err)
	}
	return requireRowsAffected(res, "photos", norm)
}

// CleanupDuplicatePaths is an idempotent maintenance pass that, after path
// normalization, removes duplicate (project_id, path) rows preserving the
// lowest id (invariant 2's "legacy rows are migrated once" companion).
func (r *PhotoRepository) CleanupDuplicatePaths(ctx context.Context, q database.Querier, projectID int64) (int64, error) {
	res, err := q.ExecContext(ctx, `
		DELETE FROM photos
		WHERE project_id = ?
		  AND id NOT IN (
			SELECT MIN(id) FROM photos WHERE project_id = ? GROUP BY path
		  )`, projectID, projectID)
	if err != nil {
		return 0, fmt.Errorf("cleanup duplicate photo paths: %w", err)
	}
	return res.RowsAffected()
}

func requireRowsAffected(res sql.Result, table string, key any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %s: %w", table, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: no row matched %v", table, key)
	}
	return nil
}
