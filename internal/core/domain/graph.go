package domain

import (
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Node is one resolved package in the graph: an exact version pin, the
// artifact selected per target environment, the requirement edges that led to
// it, and its outgoing dependency edges.
//
// Edges are identity references into the owning Graph's arena, never pointers
// to other nodes, so cyclic graphs need no special ownership handling.
type Node struct {
	Identity Identity `json:"identity"`
	Version  string   `json:"version"`
	// Artifacts maps a target environment name to the artifact selected for
	// it. Every in-scope target must have an entry.
	Artifacts map[string]Artifact `json:"artifacts"`
	// Requirements are the requirement edges pointing at this node.
	Requirements []Requirement `json:"-"`
	// Dependencies are the identities this node depends on, sorted.
	Dependencies []Identity `json:"dependencies,omitzero"`
	// Extras is the union of extras requested across all requirement edges.
	Extras []string `json:"extras,omitzero"`
	// Origin records where the pinned artifacts come from.
	Origin Origin `json:"origin"`
}

// AddDependency records an outgoing edge, keeping the edge list sorted and
// free of duplicates.
func (n *Node) AddDependency(dep Identity) {
	i, found := slices.BinarySearchFunc(n.Dependencies, dep, func(a, b Identity) int {
		return strings.Compare(a.String(), b.String())
	})
	if found {
		return
	}
	n.Dependencies = slices.Insert(n.Dependencies, i, dep)
}

// Graph is an arena of resolved nodes addressed by identity.
type Graph struct {
	nodes map[Identity]*Node
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[Identity]*Node)}
}

// AddNode adds a node to the arena. Adding a second node for the same
// identity is an error: extras and requirement edges merge into one node.
func (g *Graph) AddNode(n *Node) error {
	if _, exists := g.nodes[n.Identity]; exists {
		return zerr.With(ErrDuplicateNode, "package", n.Identity.String())
	}
	g.nodes[n.Identity] = n
	return nil
}

// RemoveNode removes the node for the identity, if present.
func (g *Graph) RemoveNode(id Identity) {
	delete(g.nodes, id)
}

// Node returns the node for the identity, or nil.
func (g *Graph) Node(id Identity) *Node {
	return g.nodes[id]
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Identities returns every node identity in sorted order. Sorted iteration is
// what keeps serialization and conflict reports deterministic.
func (g *Graph) Identities() []Identity {
	ids := make([]Identity, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b Identity) int {
		return strings.Compare(a.String(), b.String())
	})
	return ids
}

// Reachable returns the set of identities reachable from the roots by
// following dependency edges. Traversal is an iterative worklist, so cycles
// terminate and recursion depth is never a concern.
func (g *Graph) Reachable(roots []Identity) map[Identity]bool {
	seen := make(map[Identity]bool, len(g.nodes))
	work := slices.Clone(roots)
	for len(work) > 0 {
		id := work[len(work)-1]
		work = work[:len(work)-1]
		if seen[id] {
			continue
		}
		node, ok := g.nodes[id]
		if !ok {
			continue
		}
		seen[id] = true
		work = append(work, node.Dependencies...)
	}
	return seen
}
