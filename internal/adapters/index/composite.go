package index

import (
	"context"
	"errors"

	"go.trai.ch/pakt/internal/core/domain"
	"go.trai.ch/pakt/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.CandidateIndex = (*Composite)(nil)

// Composite fans out over several backends in priority order. The first
// backend that knows an identity serves its candidates; later backends are
// not consulted for that identity, so a local directory can shadow the
// remote index.
type Composite struct {
	backends []ports.CandidateIndex
}

// NewComposite creates a Composite over the backends, highest priority first.
func NewComposite(backends ...ports.CandidateIndex) *Composite {
	return &Composite{backends: backends}
}

// ListCandidates implements ports.CandidateIndex.
func (c *Composite) ListCandidates(ctx context.Context, id domain.Identity) ([]domain.Artifact, error) {
	for _, backend := range c.backends {
		artifacts, err := backend.ListCandidates(ctx, id)
		if err == nil {
			return artifacts, nil
		}
		if !errors.Is(err, domain.ErrUnknownPackage) {
			return nil, err
		}
	}
	return nil, zerr.With(domain.ErrUnknownPackage, "package", id.String())
}

// Dependencies implements ports.CandidateIndex. The artifact's metadata is
// served by whichever backend recognizes it, tried in the same priority
// order as ListCandidates.
func (c *Composite) Dependencies(ctx context.Context, artifact domain.Artifact) ([]domain.Requirement, error) {
	for _, backend := range c.backends {
		reqs, err := backend.Dependencies(ctx, artifact)
		if err == nil {
			return reqs, nil
		}
		if !errors.Is(err, domain.ErrUnknownPackage) {
			return nil, err
		}
	}
	return nil, zerr.With(zerr.With(domain.ErrUnknownPackage,
		"package", artifact.Identity.String()), "version", artifact.Version)
}
