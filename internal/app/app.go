// Package app implements the application layer for pakt.
package app

import (
	"context"

	"go.trai.ch/pakt/internal/adapters/lockfile"
	"go.trai.ch/pakt/internal/core/domain"
	"go.trai.ch/pakt/internal/core/ports"
	"go.trai.ch/pakt/internal/engine/materialize"
	"go.trai.ch/pakt/internal/engine/resolver"
	"go.trai.ch/zerr"
)

// App represents the main application logic: resolving requirements into a
// lockfile and materializing a lockfile into the artifact cache.
type App struct {
	configLoader ports.ConfigLoader
	resolver     *resolver.Resolver
	materializer *materialize.Materializer
	logger       ports.Logger
}

// New creates a new App instance.
func New(loader ports.ConfigLoader, res *resolver.Resolver, mat *materialize.Materializer, logger ports.Logger) *App {
	return &App{
		configLoader: loader,
		resolver:     res,
		materializer: mat,
		logger:       logger,
	}
}

// Lock resolves the manifest's requirements for every declared target
// environment and writes the lockfile. The resulting lock is returned for
// inspection.
func (a *App) Lock(ctx context.Context) (*domain.Lock, error) {
	manifest, err := a.configLoader.Load(".")
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load manifest")
	}

	lock, err := a.resolver.Resolve(ctx, manifest.Requirements, manifest.Targets, manifest.Resolution)
	if err != nil {
		return nil, zerr.Wrap(err, "resolution failed")
	}

	if err := lockfile.WriteFile(manifest.LockPath, lock); err != nil {
		return nil, err
	}

	a.logger.Info("wrote lockfile",
		"path", manifest.LockPath,
		"packages", lock.Graph.Len(),
		"targets", len(lock.Targets),
		"style", string(lock.Style),
	)
	return lock, nil
}

// Sync materializes the current lockfile into the artifact cache. When only
// is non-empty, it names requirements whose dependency closure is
// materialized instead of the full lock; pins are taken from the lockfile
// verbatim, never re-resolved.
func (a *App) Sync(ctx context.Context, only []string) error {
	manifest, err := a.configLoader.Load(".")
	if err != nil {
		return zerr.Wrap(err, "failed to load manifest")
	}

	lock, err := lockfile.ReadFile(manifest.LockPath)
	if err != nil {
		return err
	}

	if len(only) > 0 {
		requirements := make([]domain.Requirement, 0, len(only))
		for _, raw := range only {
			req, err := domain.ParseRequirement(raw)
			if err != nil {
				return err
			}
			requirements = append(requirements, req)
		}
		lock = lock.Subset(requirements)
	}

	results, err := a.materializer.Materialize(ctx, lock, manifest.Materialize)
	if err != nil {
		return zerr.Wrap(err, "materialization failed")
	}

	cached := 0
	for _, result := range results {
		if result.Cached {
			cached++
		}
	}
	a.logger.Info("materialized artifacts", "entries", len(results), "cache_hits", cached)
	return nil
}
