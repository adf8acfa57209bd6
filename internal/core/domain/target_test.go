package domain_test

import (
	"testing"

	"go.trai.ch/pakt/internal/core/domain"
)

func TestParseTag(t *testing.T) {
	tag, err := domain.ParseTag("cp311-cp311-manylinux-x86-64")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tag.Interpreter != "cp311" || tag.ABI != "cp311" || tag.Platform != "manylinux-x86-64" {
		t.Errorf("dashes beyond the second belong to the platform, got %+v", tag)
	}
	if tag.String() != "cp311-cp311-manylinux-x86-64" {
		t.Errorf("String() round trip mismatch: %q", tag.String())
	}

	for _, raw := range []string{"", "cp311", "cp311-cp311", "-none-any", "py3--any"} {
		if _, err := domain.ParseTag(raw); err == nil {
			t.Errorf("ParseTag(%q) succeeded, want error", raw)
		}
	}
}

func TestTag_AbstractAndFamily(t *testing.T) {
	abstract, err := domain.ParseTag("py3-none-any")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !abstract.IsAbstract() {
		t.Error("py3-none-any must be abstract")
	}
	if abstract.Family() != "py" {
		t.Errorf("Family() = %q, want py", abstract.Family())
	}

	concrete, err := domain.ParseTag("cp311-cp311-linux-x86_64")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if concrete.IsAbstract() {
		t.Error("a platform-specific tag is not abstract")
	}
	if concrete.Family() != "cp" {
		t.Errorf("Family() = %q, want cp", concrete.Family())
	}
}

func TestNewTargetEnvironment(t *testing.T) {
	target, err := domain.NewTargetEnvironment("cp", "3.11", "linux-x86_64", "cp311")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if target.Name != "cp311-linux-x86_64" {
		t.Errorf("unexpected name %q", target.Name)
	}
	if target.Version != "3.11.0" {
		t.Errorf("expected normalized version, got %q", target.Version)
	}

	wantTags := []string{
		"cp311-cp311-linux-x86_64",
		"cp311-abi3-linux-x86_64",
		"cp311-none-linux-x86_64",
		"py3-none-linux-x86_64",
		"py3-none-any",
	}
	if len(target.Tags) != len(wantTags) {
		t.Fatalf("expected %d tags, got %d", len(wantTags), len(target.Tags))
	}
	for i, want := range wantTags {
		if got := target.Tags[i].String(); got != want {
			t.Errorf("tag %d = %q, want %q", i, got, want)
		}
	}

	bindings := target.MarkerBindings
	if bindings["interpreter_version"] != "3.11" {
		t.Errorf("interpreter_version = %q", bindings["interpreter_version"])
	}
	if bindings["full_version"] != "3.11.0" {
		t.Errorf("full_version = %q", bindings["full_version"])
	}
	if bindings["implementation_name"] != "cp" || bindings["platform"] != "linux-x86_64" {
		t.Errorf("unexpected bindings %v", bindings)
	}

	if _, err := domain.NewTargetEnvironment("cp", "three.eleven", "linux", "cp311"); err == nil {
		t.Error("expected error for unparseable version")
	}
}

func TestTargetEnvironment_WithBindings(t *testing.T) {
	target, err := domain.NewTargetEnvironment("cp", "3.11", "linux-x86_64", "cp311")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	custom := target.WithBindings(map[string]string{
		"platform": "musllinux",
		"machine":  "aarch64",
	})

	if custom.MarkerBindings["platform"] != "musllinux" {
		t.Error("extra bindings must override derived defaults")
	}
	if custom.MarkerBindings["machine"] != "aarch64" {
		t.Error("extra bindings must be added")
	}
	if custom.MarkerBindings["implementation_name"] != "cp" {
		t.Error("unrelated defaults must survive")
	}
	if target.MarkerBindings["platform"] != "linux-x86_64" {
		t.Error("the receiver must not be modified")
	}
}

func TestTargetEnvironment_TagRank(t *testing.T) {
	target, err := domain.NewTargetEnvironment("cp", "3.11", "linux-x86_64", "cp311")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rank := func(raw string) int {
		t.Helper()
		tag, err := domain.ParseTag(raw)
		if err != nil {
			t.Fatalf("ParseTag(%q): %v", raw, err)
		}
		return target.TagRank(tag)
	}

	if got := rank("cp311-cp311-linux-x86_64"); got != 0 {
		t.Errorf("native tag rank = %d, want 0", got)
	}
	if got := rank("cp311-abi3-linux-x86_64"); got != 1 {
		t.Errorf("abi3 tag rank = %d, want 1", got)
	}
	if got := rank("py3-none-any"); got != 4 {
		t.Errorf("abstract tag rank = %d, want 4", got)
	}
	// Same family, different major: abstract matching is by family only.
	if got := rank("py2-none-any"); got != 4 {
		t.Errorf("family-matched abstract tag rank = %d, want 4", got)
	}
	if got := rank("cp310-cp310-linux-x86_64"); got != -1 {
		t.Errorf("foreign tag rank = %d, want -1", got)
	}
	if got := rank("cp311-cp311-win-amd64"); got != -1 {
		t.Errorf("wrong platform rank = %d, want -1", got)
	}
}
