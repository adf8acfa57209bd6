package domain

import (
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ArtifactKind distinguishes prebuilt binary artifacts from source artifacts.
type ArtifactKind string

const (
	// KindBinary is a prebuilt artifact directly usable on compatible targets.
	KindBinary ArtifactKind = "binary"
	// KindSource is a source artifact that must be built before use.
	KindSource ArtifactKind = "source"
)

// Artifact is one concrete downloadable or buildable unit for a package
// version.
type Artifact struct {
	Identity Identity     `json:"identity"`
	Version  string       `json:"version"`
	Kind     ArtifactKind `json:"kind"`
	// Tags are the declared compatibility tags; empty for source artifacts.
	Tags []Tag `json:"tags,omitzero"`
	// URL is the origin the artifact is fetched from.
	URL string `json:"url"`
	// SHA256 is the hex content hash of record.
	SHA256 string `json:"sha256"`
	// Size is the artifact size in bytes, zero when unknown.
	Size int64 `json:"size,omitzero"`
}

// CacheKey returns the content-addressed cache key for the artifact.
func (a Artifact) CacheKey() string {
	return a.SHA256
}

// Compatible reports whether the artifact can be used on the target. A binary
// artifact is compatible iff at least one of its tags appears in the target's
// ranked tag list. Source artifacts are always a fallback candidate; they
// still need a build before becoming usable.
func (a Artifact) Compatible(target *TargetEnvironment) bool {
	if a.Kind == KindSource {
		return true
	}
	for _, tag := range a.Tags {
		if target.TagRank(tag) >= 0 {
			return true
		}
	}
	return false
}

// rankFor returns the artifact's best tag rank for the target. Source
// artifacts rank below every binary tag.
func (a Artifact) rankFor(target *TargetEnvironment) int {
	if a.Kind == KindSource {
		return len(target.Tags)
	}
	best := -1
	for _, tag := range a.Tags {
		if r := target.TagRank(tag); r >= 0 && (best < 0 || r < best) {
			best = r
		}
	}
	return best
}

// RankArtifacts orders compatible candidates by precedence for the target:
// target tag-list order first, then binary over source, then higher version,
// then content hash as a deterministic tie-break. Incompatible candidates are
// dropped. The input slice is not modified.
func RankArtifacts(target *TargetEnvironment, candidates []Artifact) []Artifact {
	ranked := make([]Artifact, 0, len(candidates))
	for _, c := range candidates {
		if c.Compatible(target) {
			ranked = append(ranked, c)
		}
	}
	slices.SortStableFunc(ranked, func(a, b Artifact) int {
		if c := a.rankFor(target) - b.rankFor(target); c != 0 {
			return c
		}
		if a.Kind != b.Kind {
			if a.Kind == KindBinary {
				return -1
			}
			return 1
		}
		if c := compareVersionStrings(b.Version, a.Version); c != 0 {
			return c
		}
		return strings.Compare(a.SHA256, b.SHA256)
	})
	return ranked
}

func compareVersionStrings(a, b string) int {
	av, aerr := semver.NewVersion(a)
	bv, berr := semver.NewVersion(b)
	if aerr != nil || berr != nil {
		return strings.Compare(a, b)
	}
	return av.Compare(bv)
}
