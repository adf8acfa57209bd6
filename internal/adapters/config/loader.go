// Package config provides the manifest loader for pakt.
package config

import (
	"os"
	"path/filepath"
	"sync"

	"go.trai.ch/pakt/internal/core/domain"
	"go.trai.ch/pakt/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// DefaultFilename is the manifest file name discovered from the working
// directory upward.
const DefaultFilename = "pakt.yaml"

// DefaultLockFilename is used when the manifest does not set lock-path.
const DefaultLockFilename = "pakt.lock.json"

// Loader implements ports.ConfigLoader using a YAML manifest. Loaded
// manifests are memoized per path so the DI graph can share one loader
// without re-reading the file.
type Loader struct {
	Filename string
	logger   ports.Logger

	mu    sync.Mutex
	cache map[string]*ports.Manifest
}

// NewLoader creates a Loader for the default manifest filename.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{
		Filename: DefaultFilename,
		logger:   logger,
		cache:    make(map[string]*ports.Manifest),
	}
}

// Load discovers the manifest by walking from cwd toward the filesystem root
// and returns the parsed, validated manifest.
func (l *Loader) Load(cwd string) (*ports.Manifest, error) {
	path, err := l.discover(cwd)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if m, ok := l.cache[path]; ok {
		return m, nil
	}

	m, err := Load(path)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("loaded manifest", "path", path, "requirements", len(m.Requirements), "targets", len(m.Targets))
	l.cache[path] = m
	return m, nil
}

// discover walks from dir upward until it finds the manifest file.
func (l *Loader) discover(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", zerr.Wrap(err, "resolving working directory")
	}

	for {
		candidate := filepath.Join(dir, l.Filename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", zerr.With(zerr.New("manifest not found"), "filename", l.Filename)
		}
		dir = parent
	}
}

// Load reads a manifest file from the given path.
func Load(path string) (*ports.Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read manifest file")
	}

	var file Paktfile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, zerr.Wrap(err, "failed to parse manifest file")
	}

	return convert(&file, filepath.Dir(path))
}

// convert validates the DTO and builds the domain manifest. Relative paths
// are resolved against the manifest's directory.
func convert(file *Paktfile, baseDir string) (*ports.Manifest, error) {
	if len(file.Requirements) == 0 {
		return nil, zerr.New("manifest declares no requirements")
	}
	if len(file.Targets) == 0 {
		return nil, zerr.New("manifest declares no targets")
	}

	requirements := make([]domain.Requirement, 0, len(file.Requirements))
	for _, raw := range file.Requirements {
		req, err := domain.ParseRequirement(raw)
		if err != nil {
			return nil, zerr.With(err, "requirement", raw)
		}
		requirements = append(requirements, req)
	}

	targets := make([]*domain.TargetEnvironment, 0, len(file.Targets))
	seen := make(map[string]bool)
	for _, dto := range file.Targets {
		if dto.Implementation == "" || dto.Version == "" || dto.Platform == "" {
			return nil, zerr.New("target requires implementation, version and platform")
		}
		target, err := domain.NewTargetEnvironment(dto.Implementation, dto.Version, dto.Platform, dto.ABI)
		if err != nil {
			return nil, err
		}
		if len(dto.Markers) > 0 {
			target = target.WithBindings(dto.Markers)
		}
		if seen[target.Name] {
			return nil, zerr.With(zerr.New("duplicate target environment"), "target", target.Name)
		}
		seen[target.Name] = true
		targets = append(targets, target)
	}

	resolution, err := convertResolution(file.Resolution)
	if err != nil {
		return nil, err
	}

	if file.Materialize.Parallelism < 0 {
		return nil, zerr.With(zerr.New("materialize parallelism must not be negative"), "parallelism", file.Materialize.Parallelism)
	}

	lockPath := file.LockPath
	if lockPath == "" {
		lockPath = DefaultLockFilename
	}

	localDirs := make([]string, 0, len(file.LocalDirs))
	for _, dir := range file.LocalDirs {
		localDirs = append(localDirs, resolvePath(baseDir, dir))
	}

	return &ports.Manifest{
		Requirements: requirements,
		Targets:      targets,
		IndexURL:     file.IndexURL,
		LocalDirs:    localDirs,
		CacheDir:     resolvePathOrEmpty(baseDir, file.CacheDir),
		LockPath:     resolvePath(baseDir, lockPath),
		Resolution:   resolution,
		Materialize: ports.MaterializeOptions{
			Parallelism: file.Materialize.Parallelism,
		},
		Build: ports.BuildOptions{
			Tool: file.Build.Tool,
			Args: file.Build.Args,
		},
	}, nil
}

func convertResolution(dto ResolutionDTO) (ports.ResolutionOptions, error) {
	opts := ports.ResolutionOptions{
		AllowPrerelease: dto.AllowPrerelease,
	}

	if dto.MaxNarrowRetries != nil {
		if *dto.MaxNarrowRetries < 1 {
			return opts, zerr.With(zerr.New("max-narrow-retries must be at least 1"), "max_narrow_retries", *dto.MaxNarrowRetries)
		}
		opts.MaxNarrowRetries = *dto.MaxNarrowRetries
	}

	switch dto.SourcePolicy {
	case "":
		opts.SourcePolicy = ports.SourcePolicyBuild
	case string(ports.SourcePolicyBuild):
		opts.SourcePolicy = ports.SourcePolicyBuild
	case string(ports.SourcePolicyPreferBinary):
		opts.SourcePolicy = ports.SourcePolicyPreferBinary
	default:
		return opts, zerr.With(zerr.New("unknown source policy"), "source_policy", dto.SourcePolicy)
	}

	return opts, nil
}

func resolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

func resolvePathOrEmpty(baseDir, path string) string {
	if path == "" {
		return ""
	}
	return resolvePath(baseDir, path)
}
