// Package indexer brings the catalog up to date with the filesystem: a
// recursive scan that upserts photo/video rows, a purge pass for vanished
// files, date-branch (re)construction, and a legacy-row backfill (§4.3).
package indexer

import (
	"strings"

	"github.com/tomtom215/mediacatalog/internal/config"
	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/extractor"
	"github.com/tomtom215/mediacatalog/internal/repository"
	"github.com/tomtom215/mediacatalog/internal/scanner"
)

// AllBranch is the materialized branch key equal to "every photo/video of
// the project" (invariant 11, resolved Open Question 3 — see DESIGN.md).
const AllBranch = "all"

// Indexer implements the §4.3 operations.
type Indexer struct {
	db        *database.DB
	scan      scanner.Scanner
	extractor extractor.FeatureExtractor
	cfg       *config.ScanConfig

	photos  *repository.PhotoRepository
	videos  *repository.VideoRepository
	folders *repository.FolderRepository
}

// New builds an Indexer bound to db, using sc to enumerate the filesystem
// and fe to extract EXIF/hash data from matched files.
func New(db *database.DB, sc scanner.Scanner, fe extractor.FeatureExtractor, cfg *config.ScanConfig) *Indexer {
	return &Indexer{
		db:        db,
		scan:      sc,
		extractor: fe,
		cfg:       cfg,
		photos:    repository.NewPhotoRepository(db),
		videos:    repository.NewVideoRepository(db),
		folders:   repository.NewFolderRepository(db),
	}
}

// ProgressFunc receives a running count after each committed batch.
type ProgressFunc func(processed int)

func isPhotoExt(cfg *config.ScanConfig, ext string) bool {
	return containsFold(cfg.PhotoExtensions, ext)
}

func isVideoExt(cfg *config.ScanConfig, ext string) bool {
	return containsFold(cfg.VideoExtensions, ext)
}

func containsFold(list []string, ext string) bool {
	for _, e := range list {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}
