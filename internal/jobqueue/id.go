package jobqueue

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// newJobID returns a lexically sortable id for ml_job.id, so the "oldest
// queued row" ordering ClaimNext relies on holds even without reading
// created_at.
func newJobID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
