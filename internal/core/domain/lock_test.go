package domain_test

import (
	"testing"

	"go.trai.ch/pakt/internal/core/domain"
)

func lockFixture(t *testing.T, perEnvironment bool) *domain.Lock {
	t.Helper()

	linux, err := domain.NewTargetEnvironment("cp", "3.11", "linux-x86_64", "cp311")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mac, err := domain.NewTargetEnvironment("cp", "3.11", "macosx-arm64", "cp311")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	shared := domain.Artifact{
		Identity: domain.NewIdentity("demo"),
		Version:  "1.0.0",
		Kind:     domain.KindBinary,
		SHA256:   "aaaa",
	}
	demo := &domain.Node{
		Identity: shared.Identity,
		Version:  shared.Version,
		Artifacts: map[string]domain.Artifact{
			linux.Name: shared,
			mac.Name:   shared,
		},
	}

	linuxOnly := shared
	linuxOnly.Identity = domain.NewIdentity("native")
	linuxOnly.SHA256 = "bbbb"
	macOnly := linuxOnly
	macOnly.SHA256 = "cccc"
	native := &domain.Node{
		Identity: linuxOnly.Identity,
		Version:  "2.0.0",
		Artifacts: map[string]domain.Artifact{
			linux.Name: linuxOnly,
			mac.Name:   macOnly,
		},
	}

	g := domain.NewGraph()
	if err := g.AddNode(demo); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if perEnvironment {
		if err := g.AddNode(native); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	lock := &domain.Lock{Targets: []domain.TargetEnvironment{*linux, *mac}, Graph: g}
	lock.Style = lock.DetectStyle()
	return lock
}

func TestLock_DetectStyle(t *testing.T) {
	if got := lockFixture(t, false).Style; got != domain.StyleUniversal {
		t.Errorf("identical hashes across targets must be universal, got %q", got)
	}
	if got := lockFixture(t, true).Style; got != domain.StylePerEnvironment {
		t.Errorf("diverging hashes must be per-environment, got %q", got)
	}
}

func TestLock_DetectStyle_MarkerScopedNode(t *testing.T) {
	// A node deselected on one target by a marker has no artifact entry
	// there. That alone is not per-environment; the present entries still
	// agree on one hash.
	lock := lockFixture(t, false)
	node := lock.Graph.Node(domain.NewIdentity("demo"))
	delete(node.Artifacts, lock.Targets[1].Name)

	if got := lock.DetectStyle(); got != domain.StyleUniversal {
		t.Errorf("a marker-scoped node with one hash must stay universal, got %q", got)
	}
}

func TestLock_DetectStyle_MarkerScopedDivergence(t *testing.T) {
	lock := lockFixture(t, true)
	node := lock.Graph.Node(domain.NewIdentity("native"))
	delete(node.Artifacts, lock.Targets[1].Name)

	// With only one target left in scope the node no longer diverges.
	if got := lock.DetectStyle(); got != domain.StyleUniversal {
		t.Errorf("a single in-scope entry cannot diverge, got %q", got)
	}
}

func TestLock_Subset(t *testing.T) {
	lock := lockFixture(t, true)

	req, err := domain.ParseRequirement("demo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sub := lock.Subset([]domain.Requirement{req})

	if sub.Graph.Len() != 1 {
		t.Fatalf("expected the unreferenced node pruned, got %d nodes", sub.Graph.Len())
	}
	node := sub.Graph.Node(domain.NewIdentity("demo"))
	if node == nil {
		t.Fatal("expected the requested node kept")
	}
	if node.Version != "1.0.0" {
		t.Errorf("subsetting must preserve exact pins, got %q", node.Version)
	}
	if len(sub.Targets) != 2 {
		t.Errorf("targets must be preserved, got %d", len(sub.Targets))
	}

	// Pruning the only per-environment node turns the subset universal.
	if sub.Style != domain.StyleUniversal {
		t.Errorf("style must be recomputed after pruning, got %q", sub.Style)
	}
	if lock.Style != domain.StylePerEnvironment {
		t.Error("the original lock must be untouched")
	}
}

func TestLock_Subset_FollowsDependencies(t *testing.T) {
	lock := lockFixture(t, true)
	lock.Graph.Node(domain.NewIdentity("demo")).AddDependency(domain.NewIdentity("native"))

	req, err := domain.ParseRequirement("demo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sub := lock.Subset([]domain.Requirement{req})

	if sub.Graph.Len() != 2 {
		t.Fatalf("expected dependencies retained, got %d nodes", sub.Graph.Len())
	}
	if sub.Style != domain.StylePerEnvironment {
		t.Errorf("a retained per-environment node keeps the style, got %q", sub.Style)
	}
}

func TestLock_Subset_UnknownRoot(t *testing.T) {
	lock := lockFixture(t, false)

	req, err := domain.ParseRequirement("absent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sub := lock.Subset([]domain.Requirement{req})
	if sub.Graph.Len() != 0 {
		t.Errorf("an unknown root selects nothing, got %d nodes", sub.Graph.Len())
	}
}
