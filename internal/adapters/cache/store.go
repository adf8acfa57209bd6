// Package cache implements the atomic directory cache: a content-addressed
// on-disk store of downloaded and built artifacts, safe under arbitrary
// process concurrency and crash.
//
// Layout under the root:
//
//	<root>/<key>/        a complete entry; present iff fully populated
//	<root>/.locks/<key>  per-key advisory lock file
//	<root>/.tmp/<h(key)>-*  in-flight scratch directories, keyed by key hash
//
// Visibility is achieved only by the final os.Rename of a scratch directory
// onto the entry path, so a crash mid-population leaves at worst a stale
// scratch directory that the next populator sweeps.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cespare/xxhash/v2"
	"github.com/gofrs/flock"
	"go.trai.ch/pakt/internal/core/domain"
	"go.trai.ch/pakt/internal/core/ports"
	"go.trai.ch/zerr"
)

// DefaultWaitTimeout bounds how long Acquire waits on a contended key.
const DefaultWaitTimeout = 60 * time.Second

const sumFile = ".sum"

var _ ports.ArtifactCache = (*Store)(nil)

// Store implements ports.ArtifactCache on a local directory tree.
type Store struct {
	root        string
	waitTimeout time.Duration
	logger      ports.Logger
}

// NewStore opens (creating if needed) a cache rooted at root. waitTimeout
// bounds lock acquisition on contended keys; zero selects the default.
func NewStore(root string, waitTimeout time.Duration, logger ports.Logger) (*Store, error) {
	if waitTimeout <= 0 {
		waitTimeout = DefaultWaitTimeout
	}
	s := &Store{root: filepath.Clean(root), waitTimeout: waitTimeout, logger: logger}
	for _, dir := range []string{s.root, s.lockDir(), s.tmpDir()} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, zerr.Wrap(err, "failed to create cache directory")
		}
	}
	return s, nil
}

func (s *Store) lockDir() string { return filepath.Join(s.root, ".locks") }
func (s *Store) tmpDir() string  { return filepath.Join(s.root, ".tmp") }

func (s *Store) entryPath(key string) string {
	return filepath.Join(s.root, sanitizeKey(key))
}

// sanitizeKey keeps keys path-safe. Keys are hex hashes or url+hash
// composites; anything else collapses to its sha256.
func sanitizeKey(key string) string {
	for _, r := range key {
		if r == '/' || r == '\\' || r == ':' {
			sum := sha256.Sum256([]byte(key))
			return hex.EncodeToString(sum[:])
		}
	}
	return key
}

// scratchPrefix names scratch directories for a key. The fixed-width hash
// keeps prefixes of distinct keys from being prefixes of each other, so
// sweeping one key can never match another key's scratch.
func scratchPrefix(key string) string {
	return fmt.Sprintf("%016x-", xxhash.Sum64String(key))
}

// Acquire implements ports.ArtifactCache.
//
// The fast path observes a complete, fingerprint-matching entry and returns
// it without touching the lock. Otherwise the per-key lock is taken under
// bounded backoff; an acquisition that raced and lost re-checks completeness
// after the lock arrives and returns the winner's entry.
func (s *Store) Acquire(ctx context.Context, key string) (ports.CacheHandle, error) {
	entry := s.entryPath(key)

	if s.isComplete(entry) {
		return &handle{dir: entry, complete: true}, nil
	}

	fl := flock.New(filepath.Join(s.lockDir(), sanitizeKey(key)+".lock"))
	if err := s.lockWithBackoff(ctx, key, fl); err != nil {
		return nil, err
	}

	// Lost the populate race: the winner committed while we waited.
	if s.isComplete(entry) {
		_ = fl.Unlock()
		return &handle{dir: entry, complete: true}, nil
	}

	s.sweepStale(key)

	// A present but fingerprint-mismatched entry is corrupt; drop it under
	// the lock so the publishing rename can land.
	if _, statErr := os.Stat(entry); statErr == nil {
		if err := os.RemoveAll(entry); err != nil {
			_ = fl.Unlock()
			return nil, zerr.Wrap(err, "failed to remove corrupt cache entry")
		}
	}

	scratch, err := os.MkdirTemp(s.tmpDir(), scratchPrefix(key))
	if err != nil {
		_ = fl.Unlock()
		return nil, zerr.Wrap(err, "failed to create cache scratch directory")
	}
	return &handle{dir: scratch, final: entry, fl: fl}, nil
}

func (s *Store) lockWithBackoff(ctx context.Context, key string, fl *flock.Flock) error {
	contended := zerr.New("lock held")
	try := func() error {
		ok, err := fl.TryLock()
		if err != nil {
			return backoff.Permanent(zerr.Wrap(err, "failed to take cache lock"))
		}
		if !ok {
			return contended
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(10*time.Millisecond),
		backoff.WithMaxInterval(500*time.Millisecond),
		backoff.WithMaxElapsedTime(s.waitTimeout),
	)
	if err := backoff.Retry(try, backoff.WithContext(policy, ctx)); err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return perm.Err
		}
		return zerr.With(domain.ErrCacheContended, "key", key)
	}
	return nil
}

// isComplete reports whether the entry directory is published and its
// fingerprint still matches. A fingerprint mismatch means on-disk corruption;
// the entry is treated as absent and repopulated under the key lock.
func (s *Store) isComplete(entry string) bool {
	info, err := os.Stat(entry)
	if err != nil || !info.IsDir() {
		return false
	}
	want, err := os.ReadFile(filepath.Join(entry, sumFile))
	if err != nil {
		// Entries written by older layouts carry no fingerprint; presence of
		// the directory is the completeness marker.
		return true
	}
	got, err := fingerprint(entry)
	if err != nil || got != strings.TrimSpace(string(want)) {
		if s.logger != nil {
			s.logger.Warn("cache entry fingerprint mismatch, repopulating", "entry", entry)
		}
		return false
	}
	return true
}

// sweepStale removes scratch directories left behind by crashed populators
// of this key. Only the lock holder sweeps.
func (s *Store) sweepStale(key string) {
	matches, err := filepath.Glob(filepath.Join(s.tmpDir(), scratchPrefix(key)+"*"))
	if err != nil {
		return
	}
	for _, stale := range matches {
		if err := os.RemoveAll(stale); err == nil && s.logger != nil {
			s.logger.Debug("swept stale cache scratch directory", "dir", stale)
		}
	}
}

// fingerprint computes a cheap content fingerprint of a directory: xxhash
// over sorted relative paths and file contents. It is the local fast-path
// check only; artifact hashes of record stay sha256.
func fingerprint(dir string) (string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && d.Name() != sumFile {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return "", zerr.Wrap(err, "failed to walk cache entry")
	}
	sort.Strings(files)

	digest := xxhash.New()
	for _, path := range files {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return "", zerr.Wrap(err, "failed to relativize cache path")
		}
		_, _ = digest.WriteString(rel)
		_, _ = digest.Write([]byte{0})
		f, err := os.Open(path) //nolint:gosec // Paths come from walking our own entry
		if err != nil {
			return "", zerr.Wrap(err, "failed to open cache file")
		}
		_, err = io.Copy(digest, f)
		_ = f.Close()
		if err != nil {
			return "", zerr.Wrap(err, "failed to hash cache file")
		}
	}
	return fmt.Sprintf("%016x", digest.Sum64()), nil
}

// handle is one scoped acquisition of a cache key.
type handle struct {
	dir      string
	final    string
	fl       *flock.Flock
	complete bool
	done     bool
}

var _ ports.CacheHandle = (*handle)(nil)

func (h *handle) Dir() string    { return h.dir }
func (h *handle) Complete() bool { return h.complete }

// Commit publishes the scratch directory atomically. The fingerprint is
// written before the rename so completeness and verifiability arrive
// together.
func (h *handle) Commit() error {
	if h.complete || h.done {
		return nil
	}
	h.done = true
	defer h.unlock()

	sum, err := fingerprint(h.dir)
	if err != nil {
		_ = os.RemoveAll(h.dir)
		return err
	}
	if err := os.WriteFile(filepath.Join(h.dir, sumFile), []byte(sum+"\n"), 0o644); err != nil { //nolint:gosec // World-readable cache metadata
		_ = os.RemoveAll(h.dir)
		return zerr.Wrap(err, "failed to write cache fingerprint")
	}

	if err := os.Rename(h.dir, h.final); err != nil {
		// A concurrent committer is excluded by the key lock; an existing
		// entry here means a previous populate completed. Idempotent.
		if _, statErr := os.Stat(h.final); statErr == nil {
			_ = os.RemoveAll(h.dir)
			h.dir = h.final
			return nil
		}
		_ = os.RemoveAll(h.dir)
		return zerr.Wrap(err, "failed to publish cache entry")
	}

	// Dir now names the published entry.
	h.dir = h.final
	return nil
}

// Abort discards the scratch directory; the key stays absent.
func (h *handle) Abort() error {
	if h.complete || h.done {
		return nil
	}
	h.done = true
	defer h.unlock()
	if err := os.RemoveAll(h.dir); err != nil {
		return zerr.Wrap(err, "failed to discard cache scratch directory")
	}
	return nil
}

func (h *handle) unlock() {
	if h.fl != nil {
		_ = h.fl.Unlock()
	}
}
