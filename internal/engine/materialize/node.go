package materialize

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/pakt/internal/adapters/build"              //nolint:depguard // Wired in engine wiring
	"go.trai.ch/pakt/internal/adapters/cache"              //nolint:depguard // Wired in engine wiring
	"go.trai.ch/pakt/internal/adapters/logger"             //nolint:depguard // Wired in engine wiring
	"go.trai.ch/pakt/internal/adapters/telemetry/progrock" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/pakt/internal/core/ports"
)

// NodeID is the unique identifier for the materializer Graft node.
const NodeID graft.ID = "engine.materializer"

func init() {
	graft.Register(graft.Node[*Materializer]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			cache.NodeID,
			build.NodeID,
			progrock.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Materializer, error) {
			store, err := graft.Dep[ports.ArtifactCache](ctx)
			if err != nil {
				return nil, err
			}

			backend, err := graft.Dep[ports.BuildBackend](ctx)
			if err != nil {
				return nil, err
			}

			telemetry, err := graft.Dep[ports.Telemetry](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return New(store, backend, telemetry, log), nil
		},
	})
}
