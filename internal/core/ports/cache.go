package ports

import "context"

// ArtifactCache is the shared, content-addressed on-disk artifact store. It
// is the only shared mutable resource in the system; all mutation goes
// through Acquire/Commit/Abort.
//
//go:generate go run go.uber.org/mock/mockgen -source=cache.go -destination=mocks/mock_cache.go -package=mocks
type ArtifactCache interface {
	// Acquire obtains the entry for a content key. The caller either observes
	// an already-complete entry (handle.Complete() is true, the directory may
	// be read immediately) or holds exclusive populate rights until Commit or
	// Abort. Acquisition blocks while another process populates the key,
	// bounded by the configured wait timeout; on expiry it fails with
	// domain.ErrCacheContended.
	//
	// Release is guaranteed on every exit path: a handle must be finished
	// with exactly one Commit or Abort unless it was already complete.
	Acquire(ctx context.Context, key string) (CacheHandle, error)
}

// CacheHandle is a scoped acquisition of one cache key.
type CacheHandle interface {
	// Dir returns the directory for the entry: the published entry when
	// Complete or after a successful Commit, otherwise the private scratch
	// directory to populate.
	Dir() string

	// Complete reports whether the entry was already fully populated when
	// acquired. Commit and Abort are no-ops on a complete handle.
	Complete() bool

	// Commit atomically publishes the fully written scratch directory as the
	// visible entry for the key. Readers never observe a partial entry.
	Commit() error

	// Abort discards the scratch directory; the key stays absent for a
	// future attempt.
	Abort() error
}
