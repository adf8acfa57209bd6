package domain

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.trai.ch/zerr"
)

// Specifier is a version constraint expression such as ">=1.0,<2.0".
// The zero value matches every version.
//
// The textual form follows packaging conventions (`==`, `!=`, `<`, `<=`, `>`,
// `>=`, `~=`); it is translated to semver constraint syntax on parse.
type Specifier struct {
	raw string
	c   *semver.Constraints
}

// ParseSpecifier parses a comma-separated constraint expression.
// An empty string yields the match-all specifier.
func ParseSpecifier(raw string) (Specifier, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Specifier{}, nil
	}
	c, err := semver.NewConstraint(translateOperators(raw))
	if err != nil {
		return Specifier{}, zerr.With(zerr.Wrap(ErrSpecifierParse, err.Error()), "specifier", raw)
	}
	return Specifier{raw: canonicalSpecifier(raw), c: c}, nil
}

// translateOperators rewrites packaging operators into semver constraint
// syntax: `===` and `==` become `=`, the compatible-release operator `~=`
// becomes `~`.
func translateOperators(raw string) string {
	parts := strings.Split(raw, ",")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		switch {
		case strings.HasPrefix(p, "==="):
			p = "=" + strings.TrimSpace(p[3:])
		case strings.HasPrefix(p, "=="):
			p = "=" + strings.TrimSpace(p[2:])
		case strings.HasPrefix(p, "~="):
			p = "~" + strings.TrimSpace(p[2:])
		}
		parts[i] = p
	}
	return strings.Join(parts, ", ")
}

// canonicalSpecifier normalizes whitespace so equal specifiers have equal
// textual form. Clause order is preserved: it is part of the conflict trail.
func canonicalSpecifier(raw string) string {
	parts := strings.Split(raw, ",")
	for i, p := range parts {
		parts[i] = strings.Join(strings.Fields(p), "")
	}
	return strings.Join(parts, ",")
}

// IsEmpty reports whether the specifier matches every version.
func (s Specifier) IsEmpty() bool {
	return s.c == nil
}

// String returns the canonical textual form, empty for the match-all specifier.
func (s Specifier) String() string {
	return s.raw
}

// Check reports whether the version satisfies the specifier.
//
// Pre-release versions are rejected unless allowPrerelease is set or the
// specifier itself mentions a pre-release. When a pre-release is admitted,
// range clauses are checked against its release portion so that e.g.
// "2.0.0rc1" can satisfy ">=1.0,<=2.0".
func (s Specifier) Check(v *semver.Version, allowPrerelease bool) bool {
	if v.Prerelease() == "" {
		return s.c == nil || s.c.Check(v)
	}
	if !allowPrerelease && !s.MentionsPrerelease() {
		return false
	}
	if s.c == nil {
		return true
	}
	if s.c.Check(v) {
		return true
	}
	base, err := v.SetPrerelease("")
	if err != nil {
		return false
	}
	return s.c.Check(&base)
}

// MentionsPrerelease reports whether any clause of the specifier names a
// pre-release version, which opts the requirement into pre-release candidates.
func (s Specifier) MentionsPrerelease() bool {
	// A `-` in a clause can only introduce a pre-release suffix.
	return strings.Contains(s.raw, "-")
}

// Intersect combines two specifiers into one that admits only versions
// satisfying both. Constraint texts are AND-joined and re-parsed; semver
// constraints have no direct intersection API.
func (s Specifier) Intersect(other Specifier) (Specifier, error) {
	switch {
	case s.IsEmpty():
		return other, nil
	case other.IsEmpty():
		return s, nil
	}
	return ParseSpecifier(s.raw + "," + other.raw)
}

// MarshalText implements encoding.TextMarshaler.
func (s Specifier) MarshalText() ([]byte, error) {
	return []byte(s.raw), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Specifier) UnmarshalText(text []byte) error {
	parsed, err := ParseSpecifier(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseVersion parses a version string, tolerating a missing patch or minor
// component ("1.5" parses as "1.5.0").
func ParseVersion(raw string) (*semver.Version, error) {
	v, err := semver.NewVersion(strings.TrimSpace(raw))
	if err != nil {
		return nil, zerr.With(zerr.Wrap(ErrSpecifierParse, "invalid version"), "version", raw)
	}
	return v, nil
}
