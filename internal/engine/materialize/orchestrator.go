// Package materialize turns a resolved lock into populated cache entries:
// binary artifacts are downloaded and verified, source artifacts are
// downloaded, verified, extracted and built.
package materialize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"

	"go.trai.ch/pakt/internal/adapters/build"
	"go.trai.ch/pakt/internal/core/domain"
	"go.trai.ch/pakt/internal/core/ports"
	"go.trai.ch/zerr"
)

// Materializer executes materialization jobs against the artifact cache with
// bounded parallelism. Job failures are independent: every job runs to
// completion or failure and the errors are aggregated.
type Materializer struct {
	cache     ports.ArtifactCache
	backend   ports.BuildBackend
	telemetry ports.Telemetry
	logger    ports.Logger
	client    *http.Client
}

// New creates a Materializer.
func New(cache ports.ArtifactCache, backend ports.BuildBackend, telemetry ports.Telemetry, logger ports.Logger) *Materializer {
	return &Materializer{
		cache:     cache,
		backend:   backend,
		telemetry: telemetry,
		logger:    logger,
		client:    newHTTPClient(),
	}
}

// Result describes one materialized cache entry.
type Result struct {
	Artifact domain.Artifact
	// Targets are the environment names served by this entry.
	Targets []string
	// Dir is the published cache entry directory.
	Dir string
	// Cached reports that the entry was already complete.
	Cached bool
}

// job is one unit of work: a unique cache entry to populate.
type job struct {
	artifact domain.Artifact
	key      string
	// target is the environment a source artifact is built for. Binary
	// artifacts are target-independent.
	target  *domain.TargetEnvironment
	targets []string
}

// Materialize populates the cache for every artifact the lock pins, across
// all of the lock's target environments. It drains the whole job set before
// reporting: the returned error joins every job failure.
func (m *Materializer) Materialize(ctx context.Context, lock *domain.Lock, opts ports.MaterializeOptions) ([]Result, error) {
	jobs, err := collectJobs(lock)
	if err != nil {
		return nil, err
	}

	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	m.logger.Info("materializing artifacts", "jobs", len(jobs), "parallelism", parallelism)

	sem := semaphore.NewWeighted(int64(parallelism))
	results := make([]Result, len(jobs))
	errs := make([]error, len(jobs))

	var wg sync.WaitGroup
	for i, j := range jobs {
		if err := sem.Acquire(ctx, 1); err != nil {
			errs[i] = err
			break
		}
		wg.Add(1)
		go func(i int, j job) {
			defer wg.Done()
			defer sem.Release(1)
			results[i], errs[i] = m.run(ctx, j)
		}(i, j)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return results, nil
}

// collectJobs walks the lock and deduplicates artifacts by cache key.
// Deterministic: nodes in identity order, targets in lock order.
func collectJobs(lock *domain.Lock) ([]job, error) {
	var jobs []job
	index := make(map[string]int)

	for _, id := range lock.Graph.Identities() {
		node := lock.Graph.Node(id)
		for ti := range lock.Targets {
			target := &lock.Targets[ti]
			artifact, ok := node.Artifacts[target.Name]
			if !ok {
				return nil, zerr.With(zerr.With(domain.ErrUnsupportedTarget, "package", id.String()), "target", target.Name)
			}

			key := cacheKey(artifact, target)
			if i, seen := index[key]; seen {
				jobs[i].targets = append(jobs[i].targets, target.Name)
				continue
			}
			index[key] = len(jobs)
			jobs = append(jobs, job{
				artifact: artifact,
				key:      key,
				target:   target,
				targets:  []string{target.Name},
			})
		}
	}
	return jobs, nil
}

// cacheKey returns the cache key for one materialization. Binary artifacts
// are content-addressed directly; source artifacts produce target-dependent
// build output, so the target name becomes part of the key.
func cacheKey(artifact domain.Artifact, target *domain.TargetEnvironment) string {
	if artifact.Kind == domain.KindSource {
		return artifact.CacheKey() + "-" + target.Name
	}
	return artifact.CacheKey()
}

// run materializes a single job.
func (m *Materializer) run(ctx context.Context, j job) (Result, error) {
	verb := "fetch"
	if j.artifact.Kind == domain.KindSource {
		verb = "build"
	}
	name := fmt.Sprintf("%s %s %s", verb, j.artifact.Identity.String(), j.artifact.Version)
	if j.artifact.Kind == domain.KindSource {
		name += " for " + j.target.Name
	}

	vctx, vertex := m.telemetry.Record(ctx, name)

	handle, err := m.cache.Acquire(vctx, j.key)
	if err != nil {
		vertex.Complete(err)
		return Result{}, err
	}

	if handle.Complete() {
		vertex.Cached()
		vertex.Complete(nil)
		return Result{Artifact: j.artifact, Targets: j.targets, Dir: handle.Dir(), Cached: true}, nil
	}

	if err := m.populate(vctx, handle.Dir(), j); err != nil {
		if aerr := handle.Abort(); aerr != nil {
			m.logger.Warn("failed to abort cache entry", "key", j.key, "error", aerr)
		}
		vertex.Complete(err)
		return Result{}, err
	}

	if err := handle.Commit(); err != nil {
		vertex.Complete(err)
		return Result{}, err
	}

	vertex.Complete(nil)
	return Result{Artifact: j.artifact, Targets: j.targets, Dir: handle.Dir()}, nil
}

// populate fills the scratch directory for the job: download, verify, and
// for source artifacts extract and build.
func (m *Materializer) populate(ctx context.Context, dir string, j job) error {
	dest := filepath.Join(dir, artifactFilename(j.artifact))

	if err := m.fetch(ctx, j.artifact.URL, dest); err != nil {
		return err
	}
	if err := verify(dest, j.artifact); err != nil {
		return err
	}

	if j.artifact.Kind != domain.KindSource {
		return nil
	}
	return m.build(ctx, dir, dest, j)
}

// build extracts the verified source archive and runs the build backend. The
// built artifact replaces the archive as the entry's payload.
func (m *Materializer) build(ctx context.Context, dir, archive string, j job) error {
	if !m.backend.Available() {
		return zerr.With(domain.ErrBuildRequiredButUnavailable, "package", j.artifact.Identity.String())
	}

	scratch, err := os.MkdirTemp("", "pakt-build-*")
	if err != nil {
		return zerr.Wrap(err, "creating build scratch directory")
	}
	defer os.RemoveAll(scratch) //nolint:errcheck // scratch directory

	// Source tree and build output live under one scratch root so the single
	// deferred removal cleans up both, success or failure.
	srcDir := filepath.Join(scratch, "src")
	outDir := filepath.Join(scratch, "out")
	for _, d := range []string{srcDir, outDir} {
		if err := os.Mkdir(d, 0o750); err != nil {
			return zerr.Wrap(err, "creating build scratch directory")
		}
	}

	if err := build.ExtractArchive(archive, srcDir); err != nil {
		return err
	}

	result, err := m.backend.Build(ctx, ports.BuildJob{
		Artifact:  j.artifact,
		Target:    j.target,
		SourceDir: sourceRoot(srcDir),
		OutputDir: outDir,
	})
	if err != nil {
		return err
	}

	if err := copyFile(result.ArtifactPath, filepath.Join(dir, filepath.Base(result.ArtifactPath))); err != nil {
		return err
	}

	// The source archive was only input material; the entry's payload is the
	// built artifact.
	if err := os.Remove(archive); err != nil {
		return zerr.Wrap(err, "removing source archive")
	}
	return nil
}

// sourceRoot descends into the single top-level directory archives
// conventionally contain.
func sourceRoot(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 || !entries[0].IsDir() {
		return dir
	}
	return filepath.Join(dir, entries[0].Name())
}

// artifactFilename derives the on-disk name for a fetched artifact.
func artifactFilename(artifact domain.Artifact) string {
	if u, err := url.Parse(artifact.URL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" && base != "" {
			return base
		}
	}
	return artifact.Identity.String() + "-" + artifact.Version
}

func copyFile(src, dest string) error {
	in, err := os.Open(src) //nolint:gosec // build output path
	if err != nil {
		return zerr.Wrap(err, "opening built artifact")
	}
	defer in.Close() //nolint:errcheck // read-only file

	out, err := os.Create(dest) //nolint:gosec // cache scratch path
	if err != nil {
		return zerr.Wrap(err, "creating artifact file")
	}

	_, err = io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return zerr.Wrap(err, "copying built artifact")
	}
	return nil
}
