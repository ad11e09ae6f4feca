package database

import "strings"

// expectedTables lists every table ValidateSchema checks for (§4.1).
var expectedTables = []string{
	"projects", "folders", "photos", "videos", "tags", "photo_tags", "video_tags",
	"project_images", "project_videos",
	"media_asset", "media_instance", "media_stack", "media_stack_member", "media_stack_meta",
	"semantic_embeddings", "semantic_index_meta",
	"face_crops", "face_branch_reps", "face_merge_history",
	"mobile_devices", "import_sessions", "device_files",
	"ml_job", "batch_checkpoints", "schema_version",
	"search_history", "saved_search",
}

// expectedIndexes lists the compound indexes the performance contracts in
// §4.4 depend on. A missing index only logs a warning (§4.1).
var expectedIndexes = []string{
	"idx_photos_project_folder",
	"idx_photos_project_year_date",
	"idx_photos_project_metadata_status",
	"idx_photos_project_thumbnail_status",
	"idx_media_instance_asset_project",
	"idx_face_crops_project_branch",
}

// canonicalSchemaSQL is the full DDL script run once, in one transaction,
// when a new catalog database is created (§4.1 step 1). Every column named
// in §3's entity descriptions is represented; compound indexes are part of
// the contract and removing one requires a new migration version (§6).
const canonicalSchemaSQL = `
CREATE TABLE projects (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	semantic_model TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE folders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	parent_id INTEGER REFERENCES folders(id) ON DELETE CASCADE,
	path TEXT NOT NULL,
	name TEXT NOT NULL,
	photo_count INTEGER NOT NULL DEFAULT 0,
	UNIQUE(project_id, path)
);
CREATE INDEX idx_folders_project_parent ON folders(project_id, parent_id);

CREATE TABLE photos (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	folder_id INTEGER NOT NULL REFERENCES folders(id) ON DELETE CASCADE,
	path TEXT NOT NULL,
	size_kb INTEGER NOT NULL DEFAULT 0,
	modified TIMESTAMP,
	width INTEGER,
	height INTEGER,
	date_taken TIMESTAMP,
	gps_latitude REAL,
	gps_longitude REAL,
	created_ts INTEGER,
	created_date TEXT,
	created_year INTEGER,
	file_hash TEXT,
	image_content_hash TEXT,
	metadata_status TEXT NOT NULL DEFAULT 'pending',
	metadata_fail_count INTEGER NOT NULL DEFAULT 0,
	thumbnail_status TEXT NOT NULL DEFAULT 'pending',
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(project_id, path)
);
CREATE INDEX idx_photos_project_folder ON photos(project_id, folder_id);
CREATE INDEX idx_photos_project_year_date ON photos(project_id, created_year, created_date);
CREATE INDEX idx_photos_project_metadata_status ON photos(project_id, metadata_status);
CREATE INDEX idx_photos_project_thumbnail_status ON photos(project_id, thumbnail_status);
CREATE INDEX idx_photos_content_hash ON photos(project_id, file_hash);

CREATE TABLE videos (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	folder_id INTEGER NOT NULL REFERENCES folders(id) ON DELETE CASCADE,
	path TEXT NOT NULL,
	size_kb INTEGER NOT NULL DEFAULT 0,
	modified TIMESTAMP,
	width INTEGER,
	height INTEGER,
	duration_seconds REAL,
	date_taken TIMESTAMP,
	gps_latitude REAL,
	gps_longitude REAL,
	created_ts INTEGER,
	created_date TEXT,
	created_year INTEGER,
	file_hash TEXT,
	image_content_hash TEXT,
	metadata_status TEXT NOT NULL DEFAULT 'pending',
	metadata_fail_count INTEGER NOT NULL DEFAULT 0,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(project_id, path)
);
CREATE INDEX idx_videos_project_folder ON videos(project_id, folder_id);
CREATE INDEX idx_videos_project_year_date ON videos(project_id, created_year, created_date);

CREATE TABLE tags (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	name TEXT NOT NULL COLLATE NOCASE,
	UNIQUE(project_id, name COLLATE NOCASE)
);

CREATE TABLE photo_tags (
	photo_id INTEGER NOT NULL REFERENCES photos(id) ON DELETE CASCADE,
	tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	PRIMARY KEY (photo_id, tag_id)
);
CREATE INDEX idx_photo_tags_tag ON photo_tags(tag_id);

CREATE TABLE video_tags (
	video_id INTEGER NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
	tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	PRIMARY KEY (video_id, tag_id)
);
CREATE INDEX idx_video_tags_tag ON video_tags(tag_id);

-- project_images/project_videos materialize branch membership (§3 invariant 11):
-- branch_key is 'all', 'by_date:YYYY-MM-DD', or a face branch key ('face_017').
CREATE TABLE project_images (
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	branch_key TEXT NOT NULL,
	photo_id INTEGER NOT NULL REFERENCES photos(id) ON DELETE CASCADE,
	PRIMARY KEY (project_id, branch_key, photo_id)
);
CREATE INDEX idx_project_images_branch ON project_images(project_id, branch_key);
CREATE INDEX idx_project_images_photo ON project_images(photo_id);

CREATE TABLE project_videos (
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	branch_key TEXT NOT NULL,
	video_id INTEGER NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
	PRIMARY KEY (project_id, branch_key, video_id)
);
CREATE INDEX idx_project_videos_branch ON project_videos(project_id, branch_key);

CREATE TABLE media_asset (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	content_hash TEXT NOT NULL,
	representative_photo_id INTEGER REFERENCES photos(id) ON DELETE SET NULL,
	perceptual_hash TEXT,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(project_id, content_hash)
);

CREATE TABLE media_instance (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	asset_id INTEGER NOT NULL REFERENCES media_asset(id) ON DELETE CASCADE,
	photo_id INTEGER NOT NULL REFERENCES photos(id) ON DELETE CASCADE,
	source_device_id INTEGER,
	source_path TEXT,
	import_session_id INTEGER,
	file_size_bytes INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(project_id, photo_id)
);
CREATE INDEX idx_media_instance_asset_project ON media_instance(asset_id, project_id);

CREATE TABLE media_stack (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	stack_type TEXT NOT NULL,
	rule_version TEXT NOT NULL,
	representative_photo_id INTEGER REFERENCES photos(id) ON DELETE SET NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX idx_media_stack_project_type_version ON media_stack(project_id, stack_type, rule_version);

CREATE TABLE media_stack_member (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	stack_id INTEGER NOT NULL REFERENCES media_stack(id) ON DELETE CASCADE,
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	photo_id INTEGER NOT NULL REFERENCES photos(id) ON DELETE CASCADE,
	rank INTEGER NOT NULL,
	similarity_score REAL,
	UNIQUE(stack_id, rank)
);
CREATE INDEX idx_media_stack_member_stack ON media_stack_member(stack_id);

CREATE TABLE media_stack_meta (
	stack_id INTEGER PRIMARY KEY REFERENCES media_stack(id) ON DELETE CASCADE,
	params_json TEXT NOT NULL
);

CREATE TABLE semantic_embeddings (
	photo_id INTEGER NOT NULL REFERENCES photos(id) ON DELETE CASCADE,
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	model TEXT NOT NULL,
	vector BLOB NOT NULL,
	dim INTEGER NOT NULL,
	norm REAL NOT NULL,
	source_photo_hash TEXT NOT NULL,
	source_photo_mtime TIMESTAMP,
	artifact_version INTEGER NOT NULL DEFAULT 1,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (photo_id, model)
);
CREATE INDEX idx_semantic_embeddings_project_model ON semantic_embeddings(project_id, model);

CREATE TABLE semantic_index_meta (
	project_id INTEGER NOT NULL,
	model TEXT NOT NULL,
	vector_count INTEGER NOT NULL DEFAULT 0,
	last_indexed_at TIMESTAMP,
	PRIMARY KEY (project_id, model)
);

CREATE TABLE face_crops (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	branch_key TEXT NOT NULL,
	image_path TEXT NOT NULL,
	crop_path TEXT NOT NULL,
	bbox_x REAL NOT NULL,
	bbox_y REAL NOT NULL,
	bbox_w REAL NOT NULL,
	bbox_h REAL NOT NULL,
	embedding BLOB,
	quality_score REAL,
	is_representative INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(project_id, branch_key, crop_path)
);
CREATE INDEX idx_face_crops_project_branch ON face_crops(project_id, branch_key);

CREATE TABLE face_branch_reps (
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	branch_key TEXT NOT NULL,
	label TEXT NOT NULL DEFAULT '',
	member_count INTEGER NOT NULL DEFAULT 0,
	centroid BLOB,
	rep_path TEXT,
	rep_thumb_png BLOB,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (project_id, branch_key)
);

CREATE TABLE face_merge_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	snapshot_json TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX idx_face_merge_history_project ON face_merge_history(project_id, created_at);

CREATE TABLE mobile_devices (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	device_id TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	device_type TEXT NOT NULL DEFAULT '',
	serial TEXT,
	volume_guid TEXT,
	mount_point TEXT,
	first_seen TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_seen TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	total_imported INTEGER NOT NULL DEFAULT 0,
	total_skipped INTEGER NOT NULL DEFAULT 0,
	UNIQUE(project_id, device_id)
);

CREATE TABLE import_sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	device_id INTEGER NOT NULL REFERENCES mobile_devices(id) ON DELETE CASCADE,
	started_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	completed_at TIMESTAMP,
	files_imported INTEGER NOT NULL DEFAULT 0,
	files_skipped INTEGER NOT NULL DEFAULT 0,
	files_failed INTEGER NOT NULL DEFAULT 0,
	error_message TEXT
);
CREATE INDEX idx_import_sessions_device ON import_sessions(device_id);

CREATE TABLE device_files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	device_id INTEGER NOT NULL REFERENCES mobile_devices(id) ON DELETE CASCADE,
	source_path TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	photo_id INTEGER REFERENCES photos(id) ON DELETE SET NULL,
	video_id INTEGER REFERENCES videos(id) ON DELETE SET NULL,
	seen_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(device_id, source_path)
);
CREATE INDEX idx_device_files_device_status ON device_files(device_id, status);

CREATE TABLE ml_job (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	payload_json TEXT NOT NULL DEFAULT '{}',
	backend TEXT NOT NULL DEFAULT 'local',
	state TEXT NOT NULL DEFAULT 'queued',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	started_at TIMESTAMP,
	finished_at TIMESTAMP,
	error TEXT
);
CREATE INDEX idx_ml_job_state_created ON ml_job(state, created_at);

CREATE TABLE batch_checkpoints (
	checkpoint_key TEXT PRIMARY KEY,
	items_processed INTEGER NOT NULL DEFAULT 0,
	total_items INTEGER NOT NULL DEFAULT 0,
	last_item_index INTEGER NOT NULL DEFAULT -1,
	last_item_id TEXT,
	extra_data_json TEXT,
	saved_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE search_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	search_type TEXT NOT NULL,
	text TEXT,
	image_path TEXT,
	result_count INTEGER NOT NULL DEFAULT 0,
	top_ids_json TEXT,
	filters_json TEXT,
	execution_ms INTEGER NOT NULL DEFAULT 0,
	model TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX idx_search_history_project_created ON search_history(project_id, created_at);

CREATE TABLE saved_search (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	search_type TEXT NOT NULL,
	text TEXT,
	filters_json TEXT,
	model TEXT NOT NULL DEFAULT '',
	use_count INTEGER NOT NULL DEFAULT 0,
	last_used_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(project_id, name)
);
`

// splitStatements splits a DDL script on statement-terminating semicolons.
// The canonical schema never embeds a semicolon inside a string literal,
// so a plain split is sufficient (no SQL tokenizer needed).
func splitStatements(script string) []string {
	raw := strings.Split(script, ";")
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
