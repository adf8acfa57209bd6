package ports

import "go.trai.ch/pakt/internal/core/domain"

// ResolutionOptions tune the resolver's policies. Loaded from the manifest.
type ResolutionOptions struct {
	// MaxNarrowRetries bounds the post-resolution narrowing loop. When a
	// later-arriving requirement invalidates an earlier selection, the
	// resolver restarts selection with the narrowed intersection at most this
	// many times per package before failing with the conflict trail.
	MaxNarrowRetries int

	// SourcePolicy decides what to do when the best version for a target has
	// only a source artifact and no build backend is available.
	SourcePolicy SourcePolicy

	// AllowPrerelease admits pre-release versions even when stable candidates
	// exist. Absent this, pre-releases are used only when a requirement
	// explicitly asks for one or nothing else exists.
	AllowPrerelease bool
}

// SourcePolicy is the fallback behavior for source-only selections.
type SourcePolicy string

const (
	// SourcePolicyBuild schedules a build and fails resolution with
	// domain.ErrBuildRequiredButUnavailable when no backend exists.
	SourcePolicyBuild SourcePolicy = "build"
	// SourcePolicyPreferBinary narrows the intersection past source-only
	// versions and retries with versions that have a compatible binary.
	SourcePolicyPreferBinary SourcePolicy = "prefer-binary"
)

// MaterializeOptions tune artifact materialization.
type MaterializeOptions struct {
	// Parallelism bounds the build/download worker pool.
	Parallelism int
}

// BuildOptions configure the subprocess build backend.
type BuildOptions struct {
	// Tool is the executable to invoke. Empty selects the adapter default.
	Tool string
	// Args are the frontend arguments passed before the output and source
	// directories. Empty selects the adapter default.
	Args []string
}

// Manifest is the loaded project configuration: root requirements, target
// environments, and policy options.
type Manifest struct {
	Requirements []domain.Requirement
	Targets      []*domain.TargetEnvironment
	IndexURL     string
	LocalDirs    []string
	CacheDir     string
	LockPath     string
	Resolution   ResolutionOptions
	Materialize  MaterializeOptions
	Build        BuildOptions
}

// ConfigLoader defines the interface for loading the project manifest.
//
//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the manifest from the given working directory.
	Load(cwd string) (*Manifest, error)
}
