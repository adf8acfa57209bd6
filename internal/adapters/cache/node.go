package cache

import (
	"context"
	"os"
	"path/filepath"

	"github.com/grindlemire/graft"
	"go.trai.ch/pakt/internal/adapters/config"
	"go.trai.ch/pakt/internal/adapters/logger"
	"go.trai.ch/pakt/internal/core/ports"
)

// NodeID is the unique identifier for the artifact cache Graft node.
const NodeID graft.ID = "adapter.artifact_cache"

func init() {
	graft.Register(graft.Node[ports.ArtifactCache]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID, logger.NodeID},
		Run: func(ctx context.Context) (ports.ArtifactCache, error) {
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

			root := manifest.CacheDir
			if root == "" {
				root, err = DefaultRoot()
				if err != nil {
					return nil, err
				}
			}
			return NewStore(root, 0, log)
		},
	})
}

// DefaultRoot returns the per-user artifact cache root used when the manifest
// does not configure one.
func DefaultRoot() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "pakt", "artifacts"), nil
}
