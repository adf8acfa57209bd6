package domain_test

import (
	"errors"
	"testing"

	"github.com/Masterminds/semver/v3"

	"go.trai.ch/pakt/internal/core/domain"
)

func mustVersion(t *testing.T, raw string) *semver.Version {
	t.Helper()
	v, err := domain.ParseVersion(raw)
	if err != nil {
		t.Fatalf("ParseVersion(%q): %v", raw, err)
	}
	return v
}

func TestParseSpecifier_Check(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		version string
		expect  bool
	}{
		{"exact match", "==1.2.3", "1.2.3", true},
		{"exact mismatch", "==1.2.3", "1.2.4", false},
		{"arbitrary equality", "===2.0.0", "2.0.0", true},
		{"range inside", ">=1.0,<2.0", "1.5.0", true},
		{"range lower bound", ">=1.0,<2.0", "1.0.0", true},
		{"range upper bound excluded", ">=1.0,<2.0", "2.0.0", false},
		{"not equal", "!=1.4.0", "1.4.0", false},
		{"not equal passes", "!=1.4.0", "1.4.1", true},
		{"compatible release", "~=1.4.2", "1.4.9", true},
		{"compatible release minor bump", "~=1.4.2", "1.5.0", false},
		{"short version tolerated", ">=1.5", "1.5", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := domain.ParseSpecifier(tt.spec)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			v := mustVersion(t, tt.version)
			if got := s.Check(v, false); got != tt.expect {
				t.Errorf("Check(%q against %q) = %v, want %v", tt.version, tt.spec, got, tt.expect)
			}
		})
	}
}

func TestParseSpecifier_Empty(t *testing.T) {
	s, err := domain.ParseSpecifier("   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.IsEmpty() {
		t.Error("blank expression must yield the match-all specifier")
	}
	if !s.Check(mustVersion(t, "0.0.1"), false) {
		t.Error("match-all specifier must admit any release version")
	}
	if s.String() != "" {
		t.Errorf("expected empty text, got %q", s.String())
	}
}

func TestParseSpecifier_Invalid(t *testing.T) {
	for _, raw := range []string{"not a specifier", ">=x.y.z", "==???"} {
		if _, err := domain.ParseSpecifier(raw); !errors.Is(err, domain.ErrSpecifierParse) {
			t.Errorf("ParseSpecifier(%q) error = %v, want ErrSpecifierParse", raw, err)
		}
	}
}

func TestSpecifier_PrereleaseGating(t *testing.T) {
	s, err := domain.ParseSpecifier(">=1.0,<=2.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pre := mustVersion(t, "2.0.0-rc1")

	if s.Check(pre, false) {
		t.Error("pre-release must be rejected unless opted in")
	}
	if !s.Check(pre, true) {
		t.Error("allowPrerelease must admit a pre-release inside the range")
	}

	mentions, err := domain.ParseSpecifier(">=2.0.0-rc1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mentions.MentionsPrerelease() {
		t.Error("a clause naming a pre-release must report MentionsPrerelease")
	}
	if !mentions.Check(pre, false) {
		t.Error("a specifier mentioning a pre-release opts its candidates in")
	}
}

func TestSpecifier_Intersect(t *testing.T) {
	lower, err := domain.ParseSpecifier(">=1.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	upper, err := domain.ParseSpecifier("<2.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	both, err := lower.Intersect(upper)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !both.Check(mustVersion(t, "1.5.0"), false) {
		t.Error("intersection must admit versions satisfying both sides")
	}
	if both.Check(mustVersion(t, "2.1.0"), false) {
		t.Error("intersection must reject versions failing either side")
	}

	var empty domain.Specifier
	if got, err := empty.Intersect(lower); err != nil || got.String() != lower.String() {
		t.Errorf("intersecting with match-all must return the other side, got %q, %v", got.String(), err)
	}
	if got, err := lower.Intersect(empty); err != nil || got.String() != lower.String() {
		t.Errorf("intersecting with match-all must return the receiver, got %q, %v", got.String(), err)
	}
}

func TestSpecifier_CanonicalText(t *testing.T) {
	s, err := domain.ParseSpecifier(" >= 1.0 , < 2.0 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.String() != ">=1.0,<2.0" {
		t.Errorf("expected whitespace-normalized form, got %q", s.String())
	}

	var parsed domain.Specifier
	if err := parsed.UnmarshalText([]byte(s.String())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.String() != s.String() {
		t.Errorf("round trip changed the text: %q vs %q", parsed.String(), s.String())
	}
}
