package domain

import (
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// OriginKind classifies where a requirement's candidates come from.
type OriginKind string

const (
	// OriginIndex resolves against a package index.
	OriginIndex OriginKind = "index"
	// OriginLocal resolves against a local artifact directory.
	OriginLocal OriginKind = "local"
	// OriginVCS pins a version-control URL.
	OriginVCS OriginKind = "vcs"
	// OriginDirectURL pins a direct artifact URL.
	OriginDirectURL OriginKind = "url"
)

// Origin describes the source of a requirement's candidates. URL is empty for
// OriginIndex and OriginLocal.
type Origin struct {
	Kind OriginKind `json:"kind"`
	URL  string     `json:"url,omitzero"`
}

// Requirement is one declared dependency: a package identity plus version,
// extra and marker constraints.
type Requirement struct {
	// Identity is the normalized package name.
	Identity Identity
	// Name is the package name as written by the author.
	Name string
	// Extras are the requested extras, sorted and deduplicated.
	Extras []string
	// Specifier is the version constraint; zero matches every version.
	Specifier Specifier
	// Marker scopes the requirement to matching target environments.
	Marker Marker
	// Origin describes where candidates for this requirement come from.
	Origin Origin
	// Via names the requiring package ("root" for a top-level requirement).
	// It is what conflict trails are made of.
	Via string
}

// ParseRequirement parses a requirement string of the form
//
//	name[extra1,extra2]>=1.0,<2.0; python_version >= "3.9"
//
// Direct URL requirements use "name @ https://..." in place of a specifier.
func ParseRequirement(raw string) (Requirement, error) {
	spec := strings.TrimSpace(raw)
	if spec == "" {
		return Requirement{}, zerr.With(ErrRequirementParse, "requirement", raw)
	}

	req := Requirement{Origin: Origin{Kind: OriginIndex}, Via: "root"}

	// Split off the marker first; a `;` can appear nowhere else.
	if i := strings.IndexByte(spec, ';'); i >= 0 {
		marker, err := ParseMarker(spec[i+1:])
		if err != nil {
			return Requirement{}, zerr.With(zerr.Wrap(err, "requirement marker"), "requirement", raw)
		}
		req.Marker = marker
		spec = strings.TrimSpace(spec[:i])
	}

	// Direct URL: "name @ url".
	if name, url, ok := strings.Cut(spec, "@"); ok && strings.Contains(url, "://") {
		spec = strings.TrimSpace(name)
		req.Origin = Origin{Kind: OriginDirectURL, URL: strings.TrimSpace(url)}
		if strings.HasPrefix(req.Origin.URL, "git+") {
			req.Origin.Kind = OriginVCS
		}
	}

	// Extras: "name[a,b]".
	if i := strings.IndexByte(spec, '['); i >= 0 {
		j := strings.IndexByte(spec, ']')
		if j < i {
			return Requirement{}, zerr.With(ErrRequirementParse, "requirement", raw)
		}
		for _, e := range strings.Split(spec[i+1:j], ",") {
			e = strings.TrimSpace(e)
			if e == "" {
				return Requirement{}, zerr.With(ErrRequirementParse, "requirement", raw)
			}
			req.Extras = append(req.Extras, NormalizeName(e))
		}
		slices.Sort(req.Extras)
		req.Extras = slices.Compact(req.Extras)
		spec = spec[:i] + spec[j+1:]
	}

	// The name ends at the first specifier operator character.
	nameEnd := strings.IndexAny(spec, "<>=!~")
	name := spec
	if nameEnd >= 0 {
		name = spec[:nameEnd]
		specifier, err := ParseSpecifier(spec[nameEnd:])
		if err != nil {
			return Requirement{}, zerr.With(zerr.Wrap(err, "requirement specifier"), "requirement", raw)
		}
		req.Specifier = specifier
	}

	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, " \t()") {
		return Requirement{}, zerr.With(ErrRequirementParse, "requirement", raw)
	}
	req.Name = name
	req.Identity = NewIdentity(name)
	return req, nil
}

// String renders the requirement in its canonical textual form.
func (r Requirement) String() string {
	var b strings.Builder
	b.WriteString(r.Identity.String())
	if len(r.Extras) > 0 {
		b.WriteByte('[')
		b.WriteString(strings.Join(r.Extras, ","))
		b.WriteByte(']')
	}
	b.WriteString(r.Specifier.String())
	if !r.Marker.IsZero() {
		b.WriteString("; ")
		b.WriteString(r.Marker.String())
	}
	return b.String()
}

// AppliesTo reports whether the requirement is in scope for the target
// environment, i.e. its marker evaluates true against the target's bindings.
func (r Requirement) AppliesTo(target *TargetEnvironment) bool {
	return r.Marker.Eval(target.MarkerBindings)
}

// MergeExtras returns the sorted union of two extra sets. Requesting a package
// twice with different extras must union them rather than fork the node.
func MergeExtras(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	merged := append(slices.Clone(a), b...)
	slices.Sort(merged)
	return slices.Compact(merged)
}
