// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/pakt/internal/core/domain"
)

// CandidateIndex abstracts a source of candidate artifacts: a remote package
// index, a local artifact directory, or a previously built lock treated as a
// closed world. A composite implementation fans out over several backends.
//
//go:generate go run go.uber.org/mock/mockgen -source=index.go -destination=mocks/mock_index.go -package=mocks
type CandidateIndex interface {
	// ListCandidates returns every known artifact for the identity, across
	// all versions. An identity the index has never heard of yields
	// domain.ErrUnknownPackage.
	ListCandidates(ctx context.Context, id domain.Identity) ([]domain.Artifact, error)

	// Dependencies returns the declared requirements of the artifact,
	// including extra-conditioned and marker-conditioned ones.
	Dependencies(ctx context.Context, artifact domain.Artifact) ([]domain.Requirement, error)
}
