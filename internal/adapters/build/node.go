package build

import (
	"context"
	"os"

	"github.com/grindlemire/graft"
	"go.trai.ch/pakt/internal/adapters/config"
	"go.trai.ch/pakt/internal/adapters/logger"
	"go.trai.ch/pakt/internal/core/ports"
)

// NodeID is the unique identifier for the build backend Graft node.
const NodeID graft.ID = "adapter.build_backend"

func init() {
	graft.Register(graft.Node[ports.BuildBackend]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID, logger.NodeID},
		Run: func(ctx context.Context) (ports.BuildBackend, error) {
			loader, err := graft.Dep[ports.ConfigLoader](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
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

			return NewBackend(manifest.Build.Tool, manifest.Build.Args, log), nil
		},
	})
}
