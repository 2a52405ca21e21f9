package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is a byte-valued key/value cache with expiry.
// Implementations must be safe for concurrent use.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
}

// PollSnapshotKey returns the key of a job's cached terminal poll snapshot
func PollSnapshotKey(jobID uuid.UUID) string {
	return "transcription:poll:" + jobID.String()
}
