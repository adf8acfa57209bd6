package ports

import (
	"context"

	"go.trai.ch/pakt/internal/core/domain"
)

// BuildJob describes one source artifact to turn into a binary artifact for a
// target environment. SourceDir is the extracted source tree. OutputDir is an
// existing empty directory the backend writes its single output into; the
// caller owns it and removes it when done with the result.
type BuildJob struct {
	Artifact  domain.Artifact
	Target    *domain.TargetEnvironment
	SourceDir string
	OutputDir string
}

// BuildResult is the structured outcome of a successful build.
type BuildResult struct {
	// ArtifactPath is the built artifact on disk.
	ArtifactPath string
	// SHA256 is the hex content hash of the built artifact.
	SHA256 string
}

// BuildBackend invokes an external build tool as a subprocess. The only
// trusted channels are filesystem artifacts, the exit code and captured log
// output; nothing is shared in-process.
//
//go:generate go run go.uber.org/mock/mockgen -source=builder.go -destination=mocks/mock_builder.go -package=mocks
type BuildBackend interface {
	// Available reports whether the backend tool can be located. When it
	// cannot, source-only selections fail with
	// domain.ErrBuildRequiredButUnavailable instead of at build time.
	Available() bool

	// Build runs the backend for the job and returns the produced artifact,
	// or a domain.ErrBuild error carrying the exit code and log tail.
	Build(ctx context.Context, job BuildJob) (BuildResult, error)
}
