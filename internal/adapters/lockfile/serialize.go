// Package lockfile serializes resolved locks to their on-disk JSON form.
//
// The encoding is canonical: packages sorted by identity, map keys sorted,
// fixed indentation. Re-serializing an unchanged lock produces byte-identical
// output, so lockfiles diff cleanly under version control.
package lockfile

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"go.trai.ch/pakt/internal/core/domain"
	"go.trai.ch/zerr"
)

// FormatVersion is the lockfile schema version written and accepted.
const FormatVersion = 1

// ErrLockFormat is returned for lockfiles this version cannot read.
var ErrLockFormat = zerr.New("unsupported lockfile format")

type lockDTO struct {
	Version  int          `json:"version"`
	Style    string       `json:"style"`
	Targets  []targetDTO  `json:"targets"`
	Packages []packageDTO `json:"packages"`
}

type targetDTO struct {
	Name           string            `json:"name"`
	Implementation string            `json:"implementation"`
	Version        string            `json:"version"`
	Platform       string            `json:"platform"`
	ABI            string            `json:"abi,omitempty"`
	Markers        map[string]string `json:"markers"`
	Tags           []string          `json:"tags"`
}

type packageDTO struct {
	Identity     string                 `json:"identity"`
	Version      string                 `json:"version"`
	Origin       originDTO              `json:"origin"`
	Extras       []string               `json:"extras,omitempty"`
	Requirements []requirementDTO       `json:"requirements,omitempty"`
	Dependencies []string               `json:"dependencies,omitempty"`
	Artifacts    map[string]artifactDTO `json:"artifacts"`
}

// requirementDTO records one requirement edge pointing at the package: its
// rendered form, marker included, and which package declared it.
type requirementDTO struct {
	Requirement string `json:"requirement"`
	Via         string `json:"via"`
}

type originDTO struct {
	Kind string `json:"kind"`
	URL  string `json:"url,omitempty"`
}

type artifactDTO struct {
	Kind   string   `json:"kind"`
	Tags   []string `json:"tags,omitempty"`
	URL    string   `json:"url"`
	SHA256 string   `json:"sha256"`
	Size   int64    `json:"size,omitempty"`
}

// Marshal renders the lock in its canonical form.
func Marshal(lock *domain.Lock) ([]byte, error) {
	dto := lockDTO{
		Version: FormatVersion,
		Style:   string(lock.Style),
	}

	for _, target := range lock.Targets {
		dto.Targets = append(dto.Targets, targetDTO{
			Name:           target.Name,
			Implementation: target.Implementation,
			Version:        target.Version,
			Platform:       target.Platform,
			ABI:            target.ABI,
			Markers:        target.MarkerBindings,
			Tags:           tagStrings(target.Tags),
		})
	}

	for _, id := range lock.Graph.Identities() {
		node := lock.Graph.Node(id)

		artifacts := make(map[string]artifactDTO, len(node.Artifacts))
		for targetName, art := range node.Artifacts {
			artifacts[targetName] = artifactDTO{
				Kind:   string(art.Kind),
				Tags:   tagStrings(art.Tags),
				URL:    art.URL,
				SHA256: art.SHA256,
				Size:   art.Size,
			}
		}

		deps := make([]string, 0, len(node.Dependencies))
		for _, dep := range node.Dependencies {
			deps = append(deps, dep.String())
		}

		reqs := make([]requirementDTO, 0, len(node.Requirements))
		for _, req := range node.Requirements {
			reqs = append(reqs, requirementDTO{Requirement: req.String(), Via: req.Via})
		}

		dto.Packages = append(dto.Packages, packageDTO{
			Identity:     node.Identity.String(),
			Version:      node.Version,
			Origin:       originDTO{Kind: string(node.Origin.Kind), URL: node.Origin.URL},
			Extras:       node.Extras,
			Requirements: reqs,
			Dependencies: deps,
			Artifacts:    artifacts,
		})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dto); err != nil {
		return nil, zerr.Wrap(err, "encoding lockfile")
	}
	return buf.Bytes(), nil
}

// Unmarshal parses a lockfile produced by Marshal.
func Unmarshal(data []byte) (*domain.Lock, error) {
	var dto lockDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, zerr.Wrap(err, "parsing lockfile")
	}

	if dto.Version != FormatVersion {
		return nil, zerr.With(ErrLockFormat, "format_version", dto.Version)
	}

	lock := &domain.Lock{
		Graph: domain.NewGraph(),
		Style: domain.LockStyle(dto.Style),
	}
	if lock.Style != domain.StyleUniversal && lock.Style != domain.StylePerEnvironment {
		return nil, zerr.With(ErrLockFormat, "style", dto.Style)
	}

	for _, t := range dto.Targets {
		tags, err := parseTags(t.Tags)
		if err != nil {
			return nil, err
		}
		lock.Targets = append(lock.Targets, domain.TargetEnvironment{
			Name:           t.Name,
			Implementation: t.Implementation,
			Version:        t.Version,
			Platform:       t.Platform,
			ABI:            t.ABI,
			MarkerBindings: t.Markers,
			Tags:           tags,
		})
	}

	for _, p := range dto.Packages {
		id := domain.NewIdentity(p.Identity)

		artifacts := make(map[string]domain.Artifact, len(p.Artifacts))
		for targetName, a := range p.Artifacts {
			tags, err := parseTags(a.Tags)
			if err != nil {
				return nil, err
			}
			artifacts[targetName] = domain.Artifact{
				Identity: id,
				Version:  p.Version,
				Kind:     domain.ArtifactKind(a.Kind),
				Tags:     tags,
				URL:      a.URL,
				SHA256:   a.SHA256,
				Size:     a.Size,
			}
		}

		node := &domain.Node{
			Identity:  id,
			Version:   p.Version,
			Artifacts: artifacts,
			Extras:    p.Extras,
			Origin:    domain.Origin{Kind: domain.OriginKind(p.Origin.Kind), URL: p.Origin.URL},
		}
		for _, r := range p.Requirements {
			req, err := domain.ParseRequirement(r.Requirement)
			if err != nil {
				return nil, zerr.With(zerr.Wrap(ErrLockFormat, err.Error()), "requirement", r.Requirement)
			}
			req.Via = r.Via
			node.Requirements = append(node.Requirements, req)
		}
		for _, dep := range p.Dependencies {
			node.AddDependency(domain.NewIdentity(dep))
		}

		if err := lock.Graph.AddNode(node); err != nil {
			return nil, err
		}
	}

	return lock, nil
}

// WriteFile writes the lock to path atomically.
func WriteFile(path string, lock *domain.Lock) error {
	data, err := Marshal(lock)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return zerr.Wrap(err, "creating lockfile temp file")
	}

	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return zerr.Wrap(err, "writing lockfile")
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return zerr.Wrap(err, "publishing lockfile")
	}
	return nil
}

// ReadFile reads a lockfile from path.
func ReadFile(path string) (*domain.Lock, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.Wrap(err, "reading lockfile")
	}
	return Unmarshal(data)
}

func tagStrings(tags []domain.Tag) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, len(tags))
	for i, tag := range tags {
		out[i] = tag.String()
	}
	return out
}

func parseTags(raw []string) ([]domain.Tag, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	tags := make([]domain.Tag, len(raw))
	for i, s := range raw {
		tag, err := domain.ParseTag(s)
		if err != nil {
			return nil, err
		}
		tags[i] = tag
	}
	return tags, nil
}
