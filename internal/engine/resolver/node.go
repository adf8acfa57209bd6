package resolver

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/pakt/internal/adapters/build"  //nolint:depguard // Wired in engine wiring
	"go.trai.ch/pakt/internal/adapters/index"  //nolint:depguard // Wired in engine wiring
	"go.trai.ch/pakt/internal/adapters/logger" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/pakt/internal/core/ports"
)

// NodeID is the unique identifier for the resolver Graft node.
const NodeID graft.ID = "engine.resolver"

func init() {
	graft.Register(graft.Node[*Resolver]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			index.NodeID,
			build.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Resolver, error) {
			idx, err := graft.Dep[ports.CandidateIndex](ctx)
			if err != nil {
				return nil, err
			}

			backend, err := graft.Dep[ports.BuildBackend](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return New(idx, backend, log), nil
		},
	})
}
