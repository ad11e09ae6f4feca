package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// VideoRepository mirrors PhotoRepository for video rows (§4.3 "a parallel
// routine does the same for videos").
type VideoRepository struct {
	base
}

// NewVideoRepository builds a VideoRepository bound to db.
func NewVideoRepository(db *database.DB) *VideoRepository {
	return &VideoRepository{base: base{db: db}}
}

// VideoUpsertInput is the argument set for Upsert.
type VideoUpsertInput struct {
	ProjectID       int64
	FolderID        int64
	Path            string
	SizeKB          int64
	Modified        time.Time
	Width           *int
	Height          *int
	DurationSeconds *float64
	// DateTaken is the raw, unparsed value the extractor read; see
	// PhotoUpsertInput.DateTaken.
	DateTaken *string
}

// Upsert performs an insert-or-update by (path, project_id) for a video,
// mirroring PhotoRepository.Upsert's created_*/status semantics.
func (r *VideoRepository) Upsert(ctx context.Context, q database.Querier, in VideoUpsertInput) (int64, error) {
	path := NormalizePath(in.Path)
	dateTaken, ts, date, year := deriveCreatedFields(in.DateTaken, in.Modified)

	var createdTS *int64
	var createdDate *string
	var createdYear *int
	if date != "" {
		createdTS, createdDate, createdYear = &ts, &date, &year
	}

	hasMetadata := in.Width != nil || in.Height != nil || in.DateTaken != nil

	var existingID int64
	var existingStatus models.MetadataStatus
	err := q.QueryRowContext(ctx,
		`SELECT id, metadata_status FROM videos WHERE project_id = ? AND path = ?`, in.ProjectID, path).
		Scan(&existingID, &existingStatus)

	switch {
	case err == sql.ErrNoRows:
		status := models.MetadataStatusPending
		if hasMetadata {
			status = models.MetadataStatusOK
		}
		res, execErr := q.ExecContext(ctx, `
			INSERT INTO videos (
				project_id, folder_id, path, size_kb, modified, width, height, duration_seconds, date_taken,
				created_ts, created_date, created_year, metadata_status, metadata_fail_count, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, CURRENT_TIMESTAMP)`,
			in.ProjectID, in.FolderID, path, in.SizeKB, in.Modified, in.Width, in.Height, in.DurationSeconds, dateTaken,
			createdTS, createdDate, createdYear, status)
		if execErr != nil {
			return 0, fmt.Errorf("insert video: %w", execErr)
		}
		return res.LastInsertId()
	case err != nil:
		return 0, fmt.Errorf("find video by path: %w", err)
	}

	status := existingStatus
	failCountReset := ""
	if hasMetadata && status != models.MetadataStatusOK {
		status = models.MetadataStatusOK
		failCountReset = ", metadata_fail_count = 0"
	}

	_, execErr := q.ExecContext(ctx, `
		UPDATE videos SET
			folder_id = ?, size_kb = ?, modified = ?, width = ?, height = ?, duration_seconds = ?, date_taken = ?,
			created_ts = ?, created_date = ?, created_year = ?,
			metadata_status = ?, updated_at = CURRENT_TIMESTAMP`+failCountReset+`
		WHERE id = ?`,
		in.FolderID, in.SizeKB, in.Modified, in.Width, in.Height, in.DurationSeconds, dateTaken,
		createdTS, createdDate, createdYear, status, existingID)
	if execErr != nil {
		return 0, fmt.Errorf("update video: %w", execErr)
	}
	return existingID, nil
}

// FindByID returns the video with the given id.
func (r *VideoRepository) FindByID(ctx context.Context, q database.Querier, id int64) (*models.Video, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, project_id, folder_id, path, size_kb, modified, width, height, duration_seconds, date_taken,
			gps_latitude, gps_longitude, created_ts, created_date, created_year,
			file_hash, image_content_hash, metadata_status, metadata_fail_count, updated_at
		FROM videos WHERE id = ?`, id)

	var v models.Video
	err := row.Scan(&v.ID, &v.ProjectID, &v.FolderID, &v.Path, &v.SizeKB, &v.Modified, &v.Width, &v.Height,
		&v.DurationSeconds, &v.DateTaken, &v.GPSLatitude, &v.GPSLongitude, &v.CreatedTS, &v.CreatedDate, &v.CreatedYear,
		&v.FileHash, &v.ImageContentHash, &v.MetadataStatus, &v.MetadataFailCount, &v.UpdatedAt)
	if err != nil {
		return nil, scanRowNotFound(err, "videos", id)
	}
	return &v, nil
}

// MissingMetadata mirrors PhotoRepository.MissingMetadata for videos.
func (r *VideoRepository) MissingMetadata(ctx context.Context, q database.Querier, projectID int64, limit, maxFailures int) ([]*models.Video, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, project_id, folder_id, path, size_kb, modified, width, height, duration_seconds, date_taken,
			gps_latitude, gps_longitude, created_ts, created_date, created_year,
			file_hash, image_content_hash, metadata_status, metadata_fail_count, updated_at
		FROM videos
		WHERE project_id = ?
		  AND (
			width IS NULL OR height IS NULL OR date_taken IS NULL
			OR (metadata_status IN (?, ?) AND metadata_fail_count < ?)
		  )
		ORDER BY id ASC
		LIMIT ?`,
		projectID, models.MetadataStatusPending, models.MetadataStatusFailedRetry, maxFailures, limit)
	if err != nil {
		return nil, fmt.Errorf("query missing video metadata: %w", err)
	}
	defer rows.Close()

	var out []*models.Video
	for rows.Next() {
		var v models.Video
		if err := rows.Scan(&v.ID, &v.ProjectID, &v.FolderID, &v.Path, &v.SizeKB, &v.Modified, &v.Width, &v.Height,
			&v.DurationSeconds, &v.DateTaken, &v.GPSLatitude, &v.GPSLongitude, &v.CreatedTS, &v.CreatedDate, &v.CreatedYear,
			&v.FileHash, &v.ImageContentHash, &v.MetadataStatus, &v.MetadataFailCount, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan missing-metadata video row: %w", err)
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

// CleanupDuplicatePaths mirrors PhotoRepository.CleanupDuplicatePaths.
func (r *VideoRepository) CleanupDuplicatePaths(ctx context.Context, q database.Querier, projectID int64) (int64, error) {
	res, err := q.ExecContext(ctx, `
		DELETE FROM videos
		WHERE project_id = ?
		  AND id NOT IN (
			SELECT MIN(id) FROM videos WHERE project_id = ? GROUP BY path
		  )`, projectID, projectID)
	if err != nil {
		return 0, fmt.Errorf("cleanup duplicate video paths: %w", err)
	}
	return res.RowsAffected()
}
