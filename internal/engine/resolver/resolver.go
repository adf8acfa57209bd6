// Package resolver implements the dependency resolution engine: iterative
// constraint propagation over a per-target requirement frontier, producing a
// fully pinned lock.
package resolver

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.trai.ch/pakt/internal/core/domain"
	"go.trai.ch/pakt/internal/core/ports"
	"go.trai.ch/zerr"
)

// DefaultMaxNarrowRetries bounds the post-resolution narrowing loop when the
// manifest does not configure it.
const DefaultMaxNarrowRetries = 5

// Resolver computes a consistent, fully pinned transitive closure of package
// versions and artifacts for a set of requirements and target environments.
//
// A resolution run is logically single-threaded; independent runs may execute
// in parallel and share nothing but the (externally synchronized) cache.
type Resolver struct {
	index   ports.CandidateIndex
	backend ports.BuildBackend
	logger  ports.Logger
}

// New creates a Resolver. backend may be nil when no build backend exists;
// source-only selections then fail per the configured source policy.
func New(index ports.CandidateIndex, backend ports.BuildBackend, logger ports.Logger) *Resolver {
	return &Resolver{index: index, backend: backend, logger: logger}
}

// Resolve runs resolution to a fixpoint and returns the lock, or a conflict,
// unsupported-target, or build-availability error per the failure taxonomy.
// No partial lock is ever returned.
//
// Given identical index responses the result is deterministic: the frontier
// is FIFO, version selection is a total order, and artifact ranking breaks
// ties by content hash.
func (r *Resolver) Resolve(
	ctx context.Context,
	requirements []domain.Requirement,
	targets []*domain.TargetEnvironment,
	opts ports.ResolutionOptions,
) (*domain.Lock, error) {
	if opts.MaxNarrowRetries <= 0 {
		opts.MaxNarrowRetries = DefaultMaxNarrowRetries
	}
	if opts.SourcePolicy == "" {
		opts.SourcePolicy = ports.SourcePolicyBuild
	}

	run := &resolution{
		r:       r,
		opts:    opts,
		targets: targets,
		states:  make(map[domain.Identity]*pkgState),
	}

	// Seed the frontier. A requirement whose marker evaluates false for a
	// target is dropped for that target only, never globally.
	for _, req := range requirements {
		for _, target := range targets {
			if req.AppliesTo(target) {
				run.push(req, target)
			}
		}
	}

	if err := run.propagate(ctx); err != nil {
		return nil, err
	}
	if err := run.reverify(ctx); err != nil {
		return nil, err
	}
	return run.buildLock()
}

// pkgState is the accumulated resolution state for one package identity. The
// specifier intersection and extras union grow monotonically; selection is
// redone whenever growth invalidates it.
type pkgState struct {
	id     domain.Identity
	spec   domain.Specifier
	extras []string
	// trail is every requirement edge that contributed to the intersection,
	// in arrival order. It is the material of conflict reports.
	trail []domain.Requirement
	// targets is the set of target names the package is in scope for.
	targets map[string]bool

	version *semver.Version
	pin     string
	// candidates is the index response the current selection was made from.
	candidates []domain.Artifact
	artifacts  map[string]domain.Artifact
	deps       []domain.Identity
	origin     domain.Origin
	narrows    int
}

func (st *pkgState) hasArtifactFor(target string) bool {
	_, ok := st.artifacts[target]
	return ok
}

func (st *pkgState) allowPrerelease(global bool) bool {
	return global || st.spec.MentionsPrerelease()
}

type frontierItem struct {
	req    domain.Requirement
	target *domain.TargetEnvironment
}

type resolution struct {
	r        *Resolver
	opts     ports.ResolutionOptions
	targets  []*domain.TargetEnvironment
	states   map[domain.Identity]*pkgState
	frontier []frontierItem
}

func (run *resolution) push(req domain.Requirement, target *domain.TargetEnvironment) {
	run.frontier = append(run.frontier, frontierItem{req: req, target: target})
}

func (run *resolution) state(id domain.Identity) *pkgState {
	st, ok := run.states[id]
	if !ok {
		st = &pkgState{id: id, targets: make(map[string]bool)}
		run.states[id] = st
	}
	return st
}

// propagate drains the frontier to a fixpoint. Cycles terminate naturally: a
// dependency edge re-entering an already-resolved identity only merges
// constraints, and merging re-expands only when the selection actually
// changed.
func (run *resolution) propagate(ctx context.Context) error {
	for len(run.frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		item := run.frontier[0]
		run.frontier = run.frontier[1:]
		if err := run.merge(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (run *resolution) merge(ctx context.Context, item frontierItem) error {
	st := run.state(item.req.Identity)
	st.targets[item.target.Name] = true
	run.recordEdge(st, item.req)

	merged, err := st.spec.Intersect(item.req.Specifier)
	if err != nil {
		return run.conflict(st, err)
	}
	specGrew := merged.String() != st.spec.String()
	st.spec = merged

	extras := domain.MergeExtras(st.extras, item.req.Extras)
	extrasGrew := !slices.Equal(extras, st.extras)
	st.extras = extras

	if item.req.Origin.Kind != domain.OriginIndex {
		st.origin = item.req.Origin
	}

	switch {
	case st.version == nil,
		specGrew && !st.spec.Check(st.version, st.allowPrerelease(run.opts.AllowPrerelease)):
		// First sight, or the narrowed intersection invalidated the pin.
		return run.selectAndExpand(ctx, st)
	case !st.hasArtifactFor(item.target.Name):
		// Known package reaching a new target: the pinned version must offer
		// a compatible artifact there too, or selection restarts.
		if err := run.selectArtifacts(st); err != nil {
			return run.selectAndExpand(ctx, st)
		}
		return run.expand(ctx, st, item.target)
	case extrasGrew:
		// Same pin, wider extras: re-expand so extra-gated dependencies of
		// the already-selected artifacts join the frontier.
		return run.expandAll(ctx, st)
	}
	return nil
}

// recordEdge appends a requirement to the conflict trail, deduplicated by its
// rendered form and provenance.
func (run *resolution) recordEdge(st *pkgState, req domain.Requirement) {
	for _, seen := range st.trail {
		if seen.Via == req.Via && seen.String() == req.String() {
			return
		}
	}
	st.trail = append(st.trail, req)
}

func (run *resolution) selectAndExpand(ctx context.Context, st *pkgState) error {
	if err := run.selectVersion(ctx, st); err != nil {
		return err
	}
	st.deps = nil
	return run.expandAll(ctx, st)
}

// selectVersion picks the highest version admitted by the accumulated
// intersection that offers a usable artifact for every in-scope target, then
// fixes the per-target artifact selection.
func (run *resolution) selectVersion(ctx context.Context, st *pkgState) error {
	candidates, err := run.r.index.ListCandidates(ctx, st.id)
	if err != nil {
		// Index failures are not conflicts; the caller needs the original
		// error intact to distinguish an unknown package from a broken index.
		return zerr.With(zerr.Wrap(err, "listing candidates"), "package", st.id.String())
	}
	st.candidates = candidates

	byVersion := make(map[string][]domain.Artifact)
	for _, c := range candidates {
		byVersion[c.Version] = append(byVersion[c.Version], c)
	}

	allowPre := st.allowPrerelease(run.opts.AllowPrerelease)
	versions := run.admissibleVersions(byVersion, st, allowPre)
	if len(versions) == 0 {
		// Stable-only came up empty; fall back to pre-releases if they are
		// all that exists.
		versions = run.admissibleVersions(byVersion, st, true)
		if len(versions) == 0 {
			return run.conflict(st, nil)
		}
	}

	var sawBuildUnavailable *semver.Version
	for _, v := range versions {
		prev, prevPin := st.version, st.pin
		st.version, st.pin = v, v.Original()
		err := run.selectArtifacts(st)
		if err == nil {
			if run.r.logger != nil {
				run.r.logger.Debug("selected version", "package", st.id.String(), "version", st.pin)
			}
			return nil
		}
		st.version, st.pin = prev, prevPin
		if errors.Is(err, domain.ErrBuildRequiredButUnavailable) {
			if run.opts.SourcePolicy == ports.SourcePolicyBuild {
				return err
			}
			// prefer-binary: remember the failure and retry the narrowed
			// intersection with the next-best version.
			if sawBuildUnavailable == nil {
				sawBuildUnavailable = v
			}
			continue
		}
		// No artifact of any kind for some target at this version; a lower
		// version may still work.
	}

	if sawBuildUnavailable != nil {
		return zerr.With(zerr.With(domain.ErrBuildRequiredButUnavailable,
			"package", st.id.String()), "version", sawBuildUnavailable.Original())
	}
	return zerr.With(domain.ErrUnsupportedTarget, "package", st.id.String())
}

// admissibleVersions returns the versions satisfying the intersection, newest
// first. Version order plus the ranking tie-breaks make selection a total,
// reproducible order.
func (run *resolution) admissibleVersions(
	byVersion map[string][]domain.Artifact,
	st *pkgState,
	allowPre bool,
) []*semver.Version {
	var versions []*semver.Version
	for raw := range byVersion {
		v, err := semver.NewVersion(raw)
		if err != nil {
			continue
		}
		if st.spec.Check(v, allowPre) {
			versions = append(versions, v)
		}
	}
	slices.SortFunc(versions, func(a, b *semver.Version) int { return b.Compare(a) })
	return versions
}

// selectArtifacts fixes the artifact for every in-scope target at the current
// pin. It fails closed: a single target without a usable artifact rejects the
// whole version.
func (run *resolution) selectArtifacts(st *pkgState) error {
	backendAvailable := run.r.backend != nil && run.r.backend.Available()

	artifacts := make(map[string]domain.Artifact, len(st.targets))
	for _, target := range run.targets {
		if !st.targets[target.Name] {
			continue
		}
		ranked := domain.RankArtifacts(target, run.versionArtifacts(st))
		if len(ranked) == 0 {
			return zerr.With(zerr.With(domain.ErrUnsupportedTarget,
				"package", st.id.String()), "target", target.Name)
		}
		art := ranked[0]
		if art.Kind == domain.KindSource && !backendAvailable {
			return zerr.With(zerr.With(domain.ErrBuildRequiredButUnavailable,
				"package", st.id.String()), "version", st.pin)
		}
		artifacts[target.Name] = art
	}
	st.artifacts = artifacts
	if st.origin.Kind == "" {
		st.origin = domain.Origin{Kind: domain.OriginIndex}
	}
	return nil
}

// versionArtifacts filters the retained index response down to the pinned
// version. Candidate lists are small; refiltering beats a second cache.
func (run *resolution) versionArtifacts(st *pkgState) []domain.Artifact {
	var out []domain.Artifact
	for _, c := range st.candidates {
		if c.Version == st.pin {
			out = append(out, c)
		}
	}
	return out
}

func (run *resolution) expandAll(ctx context.Context, st *pkgState) error {
	for _, target := range run.targets {
		if !st.targets[target.Name] {
			continue
		}
		if err := run.expand(ctx, st, target); err != nil {
			return err
		}
	}
	return nil
}

// expand pushes the declared dependencies of the artifact selected for the
// target onto the frontier, filtered by their own markers and by the
// requested extras.
func (run *resolution) expand(ctx context.Context, st *pkgState, target *domain.TargetEnvironment) error {
	art, ok := st.artifacts[target.Name]
	if !ok {
		return nil
	}
	deps, err := run.r.index.Dependencies(ctx, art)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "dependency metadata"), "package", st.id.String())
	}
	via := st.id.String() + "==" + st.pin
	for _, dep := range deps {
		if !appliesWithExtras(dep, target, st.extras) {
			continue
		}
		dep.Via = via
		st.addDep(dep.Identity)
		run.push(dep, target)
	}
	return nil
}

func (st *pkgState) addDep(dep domain.Identity) {
	i, found := slices.BinarySearchFunc(st.deps, dep, func(a, b domain.Identity) int {
		return strings.Compare(a.String(), b.String())
	})
	if !found {
		st.deps = slices.Insert(st.deps, i, dep)
	}
}

// appliesWithExtras evaluates a dependency's marker for the target, also
// trying each requested extra bound as the `extra` variable. A dependency
// gated on `extra == "x"` is in scope iff "x" was requested.
func appliesWithExtras(dep domain.Requirement, target *domain.TargetEnvironment, extras []string) bool {
	if dep.Marker.IsZero() {
		return true
	}
	if dep.Marker.Eval(target.MarkerBindings) {
		return true
	}
	for _, extra := range extras {
		bound := target.WithBindings(map[string]string{"extra": extra})
		if dep.Marker.Eval(bound.MarkerBindings) {
			return true
		}
	}
	return false
}

// reverify re-walks the finished graph confirming every retained requirement
// edge is satisfied by the selected version. Frontier processing is
// incremental, so a later-arriving edge can in principle invalidate an
// earlier pin; each violation narrows the intersection and restarts selection
// for the affected identity, bounded by MaxNarrowRetries.
func (run *resolution) reverify(ctx context.Context) error {
	for pass := 0; ; pass++ {
		violated := run.violations()
		if len(violated) == 0 {
			return nil
		}
		for _, st := range violated {
			st.narrows++
			if st.narrows > run.opts.MaxNarrowRetries {
				return run.conflict(st, nil)
			}
			if err := run.selectAndExpand(ctx, st); err != nil {
				return err
			}
		}
		if err := run.propagate(ctx); err != nil {
			return err
		}
	}
}

func (run *resolution) violations() []*pkgState {
	var violated []*pkgState
	for _, id := range run.sortedIdentities() {
		st := run.states[id]
		if st.version == nil {
			violated = append(violated, st)
			continue
		}
		if !st.spec.Check(st.version, st.allowPrerelease(run.opts.AllowPrerelease)) {
			violated = append(violated, st)
		}
	}
	return violated
}

func (run *resolution) sortedIdentities() []domain.Identity {
	ids := make([]domain.Identity, 0, len(run.states))
	for id := range run.states {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b domain.Identity) int {
		return strings.Compare(a.String(), b.String())
	})
	return ids
}

// buildLock assembles the per-target results into a lock and verifies the
// closure invariant: every node has a selected artifact for every in-scope
// target.
func (run *resolution) buildLock() (*domain.Lock, error) {
	graph := domain.NewGraph()
	for _, id := range run.sortedIdentities() {
		st := run.states[id]
		for name := range st.targets {
			if !st.hasArtifactFor(name) {
				return nil, zerr.With(zerr.With(domain.ErrUnsupportedTarget,
					"package", id.String()), "target", name)
			}
		}
		node := &domain.Node{
			Identity:     st.id,
			Version:      st.pin,
			Artifacts:    st.artifacts,
			Requirements: st.trail,
			Dependencies: st.deps,
			Extras:       st.extras,
			Origin:       st.origin,
		}
		if err := graph.AddNode(node); err != nil {
			return nil, err
		}
	}

	targets := make([]domain.TargetEnvironment, 0, len(run.targets))
	for _, t := range run.targets {
		targets = append(targets, *t)
	}
	lock := &domain.Lock{Targets: targets, Graph: graph}
	lock.Style = lock.DetectStyle()
	return lock, nil
}

// conflict builds the unsatisfiable-intersection report, naming every
// requirement edge that contributed, not only the last one examined.
func (run *resolution) conflict(st *pkgState, cause error) error {
	trail := make([]string, 0, len(st.trail))
	for _, req := range st.trail {
		trail = append(trail, req.String()+" (via "+req.Via+")")
	}
	err := domain.ErrConflict
	if cause != nil {
		err = zerr.With(err, "cause", cause.Error())
	}
	err = zerr.With(err, "package", st.id.String())
	err = zerr.With(err, "intersection", st.spec.String())
	return zerr.With(err, "required_by", strings.Join(trail, "; "))
}
