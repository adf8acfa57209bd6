// Package domain contains the core value types for requirement resolution:
// identities, requirements, markers, specifiers, target environments,
// artifacts, the resolved graph, and the lock.
package domain

import "strings"

// Identity is the normalized, case-insensitive name of a package.
// Two spellings that differ only in case or in runs of `-`, `_` and `.`
// (e.g. "Foo_Bar" and "foo-bar") normalize to the same Identity.
type Identity struct {
	is InternedString
}

// NewIdentity normalizes a raw package name into an Identity.
// Normalization is idempotent: NewIdentity(id.String()) == id.
func NewIdentity(raw string) Identity {
	return Identity{is: NewInternedString(NormalizeName(raw))}
}

// String returns the normalized name.
func (id Identity) String() string {
	return id.is.String()
}

// IsZero reports whether the identity is the zero value.
func (id Identity) IsZero() bool {
	return id.is.String() == ""
}

// MarshalText implements encoding.TextMarshaler.
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.is.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. The text is re-normalized
// so hand-edited files cannot introduce a denormalized identity.
func (id *Identity) UnmarshalText(text []byte) error {
	*id = NewIdentity(string(text))
	return nil
}

// NormalizeName lowercases a package name and collapses every run of `-`, `_`
// and `.` separators into a single `-`.
func NormalizeName(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	inSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		if r == '-' || r == '_' || r == '.' {
			inSep = true
			continue
		}
		if inSep && b.Len() > 0 {
			b.WriteByte('-')
		}
		inSep = false
		b.WriteRune(r)
	}
	return b.String()
}
