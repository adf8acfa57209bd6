package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.trai.ch/pakt/internal/core/domain"
	"go.trai.ch/pakt/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.CandidateIndex = (*Local)(nil)

// Local serves candidates from a directory of artifact files. Binary
// artifacts follow the `name-version-interpreter-abi-platform.whl` naming
// convention (names use underscores in place of dashes); source artifacts are
// `name-version.tar.gz` or `name-version.zip`. Dependency metadata comes from
// an optional `name-version.deps.json` sidecar:
//
//	{"requires": ["dep>=1.0", "other; extra == 'fast'"]}
type Local struct {
	dir string

	scanOnce sync.Once
	scanErr  error
	byID     map[domain.Identity][]domain.Artifact
	requires map[string][]string // identity==version -> raw requirements
}

// NewLocal creates a Local index over the given directory.
func NewLocal(dir string) *Local {
	return &Local{dir: filepath.Clean(dir)}
}

// ListCandidates implements ports.CandidateIndex.
func (l *Local) ListCandidates(_ context.Context, id domain.Identity) ([]domain.Artifact, error) {
	if err := l.scan(); err != nil {
		return nil, err
	}
	artifacts := l.byID[id]
	if len(artifacts) == 0 {
		return nil, zerr.With(domain.ErrUnknownPackage, "package", id.String())
	}
	return artifacts, nil
}

// Dependencies implements ports.CandidateIndex.
func (l *Local) Dependencies(_ context.Context, artifact domain.Artifact) ([]domain.Requirement, error) {
	if err := l.scan(); err != nil {
		return nil, err
	}
	var reqs []domain.Requirement
	for _, raw := range l.requires[depsKey(artifact.Identity, artifact.Version)] {
		req, err := domain.ParseRequirement(raw)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "sidecar dependency metadata"),
				"package", artifact.Identity.String())
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func depsKey(id domain.Identity, version string) string {
	return id.String() + "==" + version
}

func (l *Local) scan() error {
	l.scanOnce.Do(func() {
		l.byID = make(map[domain.Identity][]domain.Artifact)
		l.requires = make(map[string][]string)
		l.scanErr = l.scanDir()
	})
	return l.scanErr
}

func (l *Local) scanDir() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to scan local index"), "dir", l.dir)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := l.scanFile(entry.Name()); err != nil {
			return err
		}
	}
	return nil
}

func (l *Local) scanFile(name string) error {
	path := filepath.Join(l.dir, name)
	switch {
	case strings.HasSuffix(name, ".whl"):
		art, err := parseWheelFilename(name)
		if err != nil {
			return err
		}
		return l.add(path, art)
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".zip"):
		art, err := parseSdistFilename(name)
		if err != nil {
			return err
		}
		return l.add(path, art)
	case strings.HasSuffix(name, ".deps.json"):
		return l.loadSidecar(path, name)
	}
	return nil
}

func (l *Local) add(path string, art domain.Artifact) error {
	sum, size, err := hashFile(path)
	if err != nil {
		return err
	}
	art.URL = "file://" + path
	art.SHA256 = sum
	art.Size = size
	l.byID[art.Identity] = append(l.byID[art.Identity], art)
	return nil
}

func (l *Local) loadSidecar(path, name string) error {
	base := strings.TrimSuffix(name, ".deps.json")
	id, version, ok := splitNameVersion(base)
	if !ok {
		return zerr.With(zerr.New("malformed sidecar filename"), "file", name)
	}
	data, err := os.ReadFile(path) //nolint:gosec // Path comes from scanning the configured directory
	if err != nil {
		return zerr.Wrap(err, "failed to read dependency sidecar")
	}
	var sidecar struct {
		Requires []string `json:"requires"`
	}
	if err := json.Unmarshal(data, &sidecar); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to parse dependency sidecar"), "file", name)
	}
	l.requires[depsKey(id, version)] = sidecar.Requires
	return nil
}

// parseWheelFilename splits `name-version-interpreter-abi-platform.whl`.
// An optional build tag between version and interpreter tag is tolerated.
func parseWheelFilename(name string) (domain.Artifact, error) {
	parts := strings.Split(strings.TrimSuffix(name, ".whl"), "-")
	if len(parts) != 5 && len(parts) != 6 {
		return domain.Artifact{}, zerr.With(zerr.New("malformed wheel filename"), "file", name)
	}
	tag, err := domain.ParseTag(strings.Join(parts[len(parts)-3:], "-"))
	if err != nil {
		return domain.Artifact{}, zerr.With(zerr.Wrap(err, "wheel filename tag"), "file", name)
	}
	return domain.Artifact{
		Identity: domain.NewIdentity(parts[0]),
		Version:  parts[1],
		Kind:     domain.KindBinary,
		Tags:     []domain.Tag{tag},
	}, nil
}

func parseSdistFilename(name string) (domain.Artifact, error) {
	base := strings.TrimSuffix(strings.TrimSuffix(name, ".tar.gz"), ".zip")
	id, version, ok := splitNameVersion(base)
	if !ok {
		return domain.Artifact{}, zerr.With(zerr.New("malformed sdist filename"), "file", name)
	}
	return domain.Artifact{Identity: id, Version: version, Kind: domain.KindSource}, nil
}

// splitNameVersion splits `name-version` at the last dash whose suffix looks
// like a version. Package names may themselves contain dashes.
func splitNameVersion(base string) (domain.Identity, string, bool) {
	i := strings.LastIndexByte(base, '-')
	if i <= 0 || i == len(base)-1 {
		return domain.Identity{}, "", false
	}
	version := base[i+1:]
	if version[0] < '0' || version[0] > '9' {
		return domain.Identity{}, "", false
	}
	return domain.NewIdentity(base[:i]), version, true
}

func hashFile(path string) (sum string, size int64, err error) {
	f, err := os.Open(path) //nolint:gosec // Path comes from scanning the configured directory
	if err != nil {
		return "", 0, zerr.Wrap(err, "failed to open artifact")
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	digest := sha256.New()
	size, err = io.Copy(digest, f)
	if err != nil {
		return "", 0, zerr.Wrap(err, "failed to hash artifact")
	}
	return hex.EncodeToString(digest.Sum(nil)), size, nil
}
