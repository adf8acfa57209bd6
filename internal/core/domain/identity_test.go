package domain_test

import (
	"testing"

	"go.trai.ch/pakt/internal/core/domain"
)

func TestNewIdentity_Normalization(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"requests", "requests"},
		{"Foo_Bar", "foo-bar"},
		{"foo-bar", "foo-bar"},
		{"foo.bar", "foo-bar"},
		{"FOO---BAR", "foo-bar"},
		{"foo_.-bar", "foo-bar"},
		{"  spaced  ", "spaced"},
		{"ruamel.yaml.clib", "ruamel-yaml-clib"},
	}
	for _, tt := range tests {
		if got := domain.NewIdentity(tt.raw).String(); got != tt.want {
			t.Errorf("NewIdentity(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNewIdentity_Idempotent(t *testing.T) {
	id := domain.NewIdentity("Foo_Bar.baz")
	again := domain.NewIdentity(id.String())
	if id != again {
		t.Errorf("re-normalizing %q changed the identity to %q", id, again)
	}
}

func TestIdentity_EqualAcrossSpellings(t *testing.T) {
	if domain.NewIdentity("Foo_Bar") != domain.NewIdentity("foo-bar") {
		t.Error("expected spellings differing only in separators and case to compare equal")
	}
	if domain.NewIdentity("foo-bar") == domain.NewIdentity("foobar") {
		t.Error("separator runs collapse but never vanish between letters")
	}
}

func TestIdentity_IsZero(t *testing.T) {
	var zero domain.Identity
	if !zero.IsZero() {
		t.Error("zero value must report IsZero")
	}
	if domain.NewIdentity("x").IsZero() {
		t.Error("non-empty identity must not report IsZero")
	}
}

func TestIdentity_TextRoundTrip(t *testing.T) {
	var id domain.Identity
	if err := id.UnmarshalText([]byte("Foo_Bar")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.String() != "foo-bar" {
		t.Errorf("unmarshal must re-normalize, got %q", id.String())
	}
	text, err := id.MarshalText()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(text) != "foo-bar" {
		t.Errorf("expected normalized text, got %q", text)
	}
}
