// Package extractor defines the FeatureExtractor capability the indexer,
// duplicate/stack service, face cluster service, and semantic search
// service all depend on. Image decoding, thumbnailing, and model inference
// are out of scope for the catalog core (§1 Non-goals); this package names
// the contract a concrete implementation must satisfy and ships two of its
// own: BasicExtractor (stdlib-only, no face detection or embeddings) and
// the ResilientExtractor decorator.
package extractor

import (
	"context"
	"time"
)

// EXIFResult is what ExtractEXIF returns for a single file.
type EXIFResult struct {
	Width  *int
	Height *int
	// DateTaken is the raw date_taken string as read from the file's own
	// metadata (EXIF DateTimeOriginal or an equivalent container tag), not
	// yet parsed into a time.Time. Parsing a fixed-priority list of layouts
	// is core-owned logic (repository.deriveCreatedFields), not this
	// extractor's concern.
	DateTaken *string
	GPSLat    *float64
	GPSLon    *float64
}

// FaceDetection is one face found by FaceDetect.
type FaceDetection struct {
	BBox         [4]float64
	Embedding    []byte
	QualityScore float64
}

// Embedding is the result of EmbedImage.
type Embedding struct {
	Vector     []float32
	Norm       float64
	SourceHash string
	Mtime      time.Time
}

// FeatureExtractor is the collaborator interface consumed for everything
// that needs to look inside an image or video file (§6). Implementations
// with real face detection or embeddings are supplied from outside this
// module; the core only calls through this interface, always under
// ScanConfig.ExtractorTimeout (§5).
type FeatureExtractor interface {
	ExtractEXIF(ctx context.Context, path string) (EXIFResult, error)
	PerceptualHash(ctx context.Context, path string) ([]byte, error)
	ContentHash(ctx context.Context, path string) ([]byte, error)
	FaceDetect(ctx context.Context, path string) ([]FaceDetection, error)
	EmbedImage(ctx context.Context, path, model string) (Embedding, error)
}
