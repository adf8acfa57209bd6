package domain

import "go.trai.ch/zerr"

var (
	// ErrRequirementParse is returned when a requirement string is malformed.
	ErrRequirementParse = zerr.New("malformed requirement")

	// ErrMarkerParse is returned when an environment marker expression is malformed.
	ErrMarkerParse = zerr.New("malformed marker expression")

	// ErrSpecifierParse is returned when a version specifier cannot be parsed.
	ErrSpecifierParse = zerr.New("malformed version specifier")

	// ErrConflict is returned when the accumulated specifier intersection for a
	// package admits no candidate version. The error metadata carries the full
	// trail of requirement edges that contributed to the intersection.
	ErrConflict = zerr.New("unsatisfiable requirement intersection")

	// ErrUnsupportedTarget is returned when no artifact of any kind is
	// compatible with a target environment.
	ErrUnsupportedTarget = zerr.New("no compatible artifact for target environment")

	// ErrBuildRequiredButUnavailable is returned when only source artifacts
	// exist for a selection and no build backend could be located.
	ErrBuildRequiredButUnavailable = zerr.New("build required but no build backend available")

	// ErrBuild is returned when one or more build backend invocations failed.
	ErrBuild = zerr.New("build backend failed")

	// ErrCacheContended is returned when acquiring a cache key times out while
	// another populator holds it.
	ErrCacheContended = zerr.New("cache key contended")

	// ErrHashMismatch is returned when downloaded or built content fails
	// integrity verification against a locked hash. Always fatal.
	ErrHashMismatch = zerr.New("artifact hash mismatch")

	// ErrDuplicateNode is returned when adding a node for an identity that is
	// already present in the graph.
	ErrDuplicateNode = zerr.New("node already exists")

	// ErrUnknownPackage is returned when an index has no candidates at all for
	// a requested identity.
	ErrUnknownPackage = zerr.New("unknown package")
)
