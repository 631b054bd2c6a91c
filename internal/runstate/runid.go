package runstate

import (
	"time"

	"github.com/google/uuid"
)

// NewRunID returns a sortable run identifier: a UTC timestamp plus a
// random UUID-derived suffix. The timestamp keeps run directories in
// chronological order; the suffix makes collisions between concurrent
// creators vanishingly unlikely (and Store.Create retries on the rest).
func NewRunID() string {
	return time.Now().UTC().Format("20060102-150405") + "-" + uuid.NewString()[:8]
}
