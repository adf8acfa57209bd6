package index

import (
	"context"

	"go.trai.ch/pakt/internal/core/domain"
	"go.trai.ch/pakt/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.CandidateIndex = (*LockIndex)(nil)

// LockIndex treats a previously built lock as a closed-world index: the only
// candidates are the pinned artifacts, and every dependency edge carries an
// exact-pin specifier. Resolving against it can subset a lock but never move
// a pin.
type LockIndex struct {
	lock *domain.Lock
}

// NewLockIndex creates a LockIndex over the given lock.
func NewLockIndex(lock *domain.Lock) *LockIndex {
	return &LockIndex{lock: lock}
}

// ListCandidates implements ports.CandidateIndex.
func (li *LockIndex) ListCandidates(_ context.Context, id domain.Identity) ([]domain.Artifact, error) {
	node := li.lock.Graph.Node(id)
	if node == nil {
		return nil, zerr.With(domain.ErrUnknownPackage, "package", id.String())
	}

	// The same artifact may serve several targets; dedupe by content hash so
	// ranking sees each candidate once.
	seen := make(map[string]bool, len(node.Artifacts))
	var artifacts []domain.Artifact
	for _, target := range li.lock.Targets {
		art, ok := node.Artifacts[target.Name]
		if !ok {
			continue
		}
		if seen[art.SHA256] {
			continue
		}
		seen[art.SHA256] = true
		artifacts = append(artifacts, art)
	}
	return artifacts, nil
}

// Dependencies implements ports.CandidateIndex. Edges are reconstructed as
// exact pins on the locked versions.
func (li *LockIndex) Dependencies(_ context.Context, artifact domain.Artifact) ([]domain.Requirement, error) {
	node := li.lock.Graph.Node(artifact.Identity)
	if node == nil || node.Version != artifact.Version {
		return nil, zerr.With(zerr.With(domain.ErrUnknownPackage,
			"package", artifact.Identity.String()), "version", artifact.Version)
	}

	reqs := make([]domain.Requirement, 0, len(node.Dependencies))
	for _, dep := range node.Dependencies {
		depNode := li.lock.Graph.Node(dep)
		if depNode == nil {
			return nil, zerr.With(zerr.New("lock is missing a dependency node"),
				"package", dep.String())
		}
		spec, err := domain.ParseSpecifier("==" + depNode.Version)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, domain.Requirement{
			Identity:  dep,
			Name:      dep.String(),
			Specifier: spec,
			Origin:    depNode.Origin,
			Via:       node.Identity.String() + "==" + node.Version,
		})
	}
	return reqs, nil
}
