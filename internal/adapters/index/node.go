package index

import (
	"context"
	"os"

	"github.com/grindlemire/graft"
	"go.trai.ch/pakt/internal/adapters/config"
	"go.trai.ch/pakt/internal/core/ports"
)

// NodeID is the unique identifier for the candidate index Graft node. The
// registered index is a composite over the manifest's local directories and
// remote index, in that priority order.
const NodeID graft.ID = "adapter.candidate_index"

func init() {
	graft.Register(graft.Node[ports.CandidateIndex]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID},
		Run: func(ctx context.Context) (ports.CandidateIndex, error) {
			loader, err := graft.Dep[ports.ConfigLoader](ctx)
			if err != nil {
				return nil, err
			}

			cwd, err := os.Getwd()
			if err != nil {
				return nil, err
			}

			manifest, err := loader.Load(cwd)
			if err != nil {
				return nil, err
			}

			return FromManifest(manifest), nil
		},
	})
}

// FromManifest assembles the candidate index the manifest describes: local
// directories first, then the remote index when one is configured.
func FromManifest(manifest *ports.Manifest) ports.CandidateIndex {
	backends := make([]ports.CandidateIndex, 0, len(manifest.LocalDirs)+1)
	for _, dir := range manifest.LocalDirs {
		backends = append(backends, NewLocal(dir))
	}
	if manifest.IndexURL != "" {
		backends = append(backends, NewRemote(manifest.IndexURL))
	}
	return NewComposite(backends...)
}
