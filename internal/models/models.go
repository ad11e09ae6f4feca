// Package models holds the typed record structs returned by the repository
// layer. The source system returned sqlite3.Row-style dynamic dicts; per
// the REDESIGN FLAGS this is replaced with one struct per table plus tagged
// variants (StackType, JobState) where rows carry a kind discriminator.
package models

import "time"

// Project is the top-level container owning every other row (§3).
type Project struct {
	ID           int64
	Name         string
	SemanticModel string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Folder is a node in a project's per-project folder tree.
type Folder struct {
	ID         int64
	ProjectID  int64
	ParentID   *int64
	Path       string
	Name       string
	PhotoCount int
}

// MetadataStatus tracks extraction progress for a photo or video row.
type MetadataStatus string

const (
	MetadataStatusOK          MetadataStatus = "ok"
	MetadataStatusPending     MetadataStatus = "pending"
	MetadataStatusFailedRetry MetadataStatus = "failed_retry"
	MetadataStatusFailed      MetadataStatus = "failed"
)

// Photo is a physical image file under exactly one folder of one project.
type Photo struct {
	ID                int64
	ProjectID         int64
	FolderID          int64
	Path              string
	SizeKB            int64
	Modified          time.Time
	Width             *int
	Height            *int
	DateTaken         *time.Time
	GPSLatitude       *float64
	GPSLongitude      *float64
	CreatedTS         *int64
	CreatedDate       *string // YYYY-MM-DD
	CreatedYear       *int
	FileHash          *string
	ImageContentHash  *string
	MetadataStatus    MetadataStatus
	MetadataFailCount int
	ThumbnailStatus   MetadataStatus
	UpdatedAt         time.Time
}

// Video mirrors Photo for video files, with a decoded duration instead of
// width/height-only decoded attributes (duration is additive, not exclusive).
type Video struct {
	ID                int64
	ProjectID         int64
	FolderID          int64
	Path              string
	SizeKB            int64
	Modified          time.Time
	Width             *int
	Height            *int
	DurationSeconds   *float64
	DateTaken         *time.Time
	GPSLatitude       *float64
	GPSLongitude      *float64
	CreatedTS         *int64
	CreatedDate       *string
	CreatedYear       *int
	FileHash          *string
	ImageContentHash  *string
	MetadataStatus    MetadataStatus
	MetadataFailCount int
	UpdatedAt         time.Time
}

// Tag is a case-insensitive, per-project label.
type Tag struct {
	ID        int64
	ProjectID int64
	Name      string
}

// MediaAsset is the content-identity row keyed by content_hash (§3).
type MediaAsset struct {
	ID                    int64
	ProjectID             int64
	ContentHash           string
	RepresentativePhotoID *int64
	PerceptualHash        *string
	CreatedAt             time.Time
}

// MediaInstance is the (asset, photo) edge with import provenance.
type MediaInstance struct {
	ID               int64
	ProjectID        int64
	AssetID          int64
	PhotoID          int64
	SourceDeviceID   *int64
	SourcePath       *string
	ImportSessionID  *int64
	FileSizeBytes    int64
	CreatedAt        time.Time
}

// StackType enumerates media_stack.stack_type.
type StackType string

const (
	StackTypeDuplicate    StackType = "duplicate"
	StackTypeNearDuplicate StackType = "near_duplicate"
	StackTypeSimilar      StackType = "similar"
	StackTypeBurst        StackType = "burst"
)

// MediaStack is a named grouping of photos sharing a declared stack_type.
type MediaStack struct {
	ID                  int64
	ProjectID           int64
	StackType           StackType
	RuleVersion         string
	RepresentativePhotoID *int64
	CreatedAt           time.Time
}

// MediaStackMember is a (stack, photo) edge with rank and similarity score.
type MediaStackMember struct {
	ID               int64
	StackID          int64
	ProjectID        int64
	PhotoID          int64
	Rank             int
	SimilarityScore  *float64
}

// MediaStackMeta holds the JSON params snapshot used to build a stack.
type MediaStackMeta struct {
	StackID    int64
	ParamsJSON string
}

// FaceCrop is a rectangular region of a photo attached to a cluster.
type FaceCrop struct {
	ID              int64
	ProjectID       int64
	BranchKey       string
	ImagePath       string
	CropPath        string
	BBox            [4]float64 // x, y, w, h normalized 0..1
	Embedding       []byte
	QualityScore    *float64
	IsRepresentative bool
	CreatedAt       time.Time
}

// FaceBranchRep is the per-(project, branch_key) cluster summary row.
type FaceBranchRep struct {
	ProjectID    int64
	BranchKey    string
	Label        string
	MemberCount  int
	Centroid     []byte
	RepPath      *string
	RepThumbPNG  []byte
	UpdatedAt    time.Time
}

// FaceMergeHistory is a reversible JSON snapshot taken at each merge.
type FaceMergeHistory struct {
	ID          int64
	ProjectID   int64
	SnapshotJSON string
	CreatedAt   time.Time
}

// SemanticEmbedding is one row per (photo_id, model).
type SemanticEmbedding struct {
	PhotoID          int64
	ProjectID        int64
	Model            string
	Vector           []float32
	Dim              int
	Norm             float64
	SourcePhotoHash  string
	SourcePhotoMtime time.Time
	ArtifactVersion  int
	UpdatedAt        time.Time
}

// MobileDevice is a provenance-chain row for imports.
type MobileDevice struct {
	ID              int64
	ProjectID       int64
	DeviceID        string
	Name            string
	DeviceType      string
	Serial          *string
	VolumeGUID      *string
	MountPoint      *string
	FirstSeen       time.Time
	LastSeen        time.Time
	TotalImported   int64
	TotalSkipped    int64
}

// ImportSession records per-import stats for one device sighting.
type ImportSession struct {
	ID            int64
	ProjectID     int64
	DeviceID      int64
	StartedAt     time.Time
	CompletedAt   *time.Time
	FilesImported int
	FilesSkipped  int
	FilesFailed   int
	ErrorMessage  *string
}

// DeviceFileStatus enumerates device_files.status.
type DeviceFileStatus string

const (
	DeviceFileStatusPending  DeviceFileStatus = "pending"
	DeviceFileStatusImported DeviceFileStatus = "imported"
	DeviceFileStatusSkipped  DeviceFileStatus = "skipped"
	DeviceFileStatusFailed   DeviceFileStatus = "failed"
)

// DeviceFile tracks every file ever seen on a device.
type DeviceFile struct {
	ID         int64
	ProjectID  int64
	DeviceID   int64
	SourcePath string
	Status     DeviceFileStatus
	PhotoID    *int64
	VideoID    *int64
	SeenAt     time.Time
}

// JobState enumerates ml_job.state transitions (§3 Lifecycle).
type JobState string

const (
	JobStateQueued    JobState = "queued"
	JobStateRunning   JobState = "running"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
	JobStateCanceled  JobState = "canceled"
)

// Job is a row in the background work queue.
type Job struct {
	ID          string
	Kind        string
	PayloadJSON string
	Backend     string
	State       JobState
	CreatedAt   time.Time
	StartedAt   *time.Time
	FinishedAt  *time.Time
	Error       *string
}

// BatchCheckpoint is the persisted progress marker for resumable processors.
type BatchCheckpoint struct {
	CheckpointKey   string
	ItemsProcessed  int
	TotalItems      int
	LastItemIndex   int
	LastItemID      *string
	ExtraDataJSON   *string
	SavedAt         time.Time
}

// SearchHistory records one executed search for audit/replay.
type SearchHistory struct {
	ID            int64
	ProjectID     int64
	SearchType    string
	Text          *string
	ImagePath     *string
	ResultCount   int
	TopIDs        []int64
	FiltersJSON   *string
	ExecutionMS   int64
	Model         string
	CreatedAt     time.Time
}

// SavedSearch is a promoted, named, reusable search.
type SavedSearch struct {
	ID           int64
	ProjectID    int64
	Name         string
	SearchType   string
	Text         *string
	FiltersJSON  *string
	Model        string
	UseCount     int64
	LastUsedAt   *time.Time
	CreatedAt    time.Time
}
