package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/pakt/internal/adapters/config" //nolint:depguard // Wired in app layer
	"go.trai.ch/pakt/internal/adapters/logger" //nolint:depguard // Wired in app layer
	"go.trai.ch/pakt/internal/core/ports"
	"go.trai.ch/pakt/internal/engine/materialize"
	"go.trai.ch/pakt/internal/engine/resolver"
)

// NodeID is the unique identifier for the main App Graft node.
const NodeID graft.ID = "app.main"

func init() {
	graft.Register(graft.Node[*App]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			resolver.NodeID,
			materialize.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*App, error) {
			loader, err := graft.Dep[ports.ConfigLoader](ctx)
			if err != nil {
				return nil, err
			}

			res, err := graft.Dep[*resolver.Resolver](ctx)
			if err != nil {
				return nil, err
			}

			mat, err := graft.Dep[*materialize.Materializer](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return New(loader, res, mat, log), nil
		},
	})
}
