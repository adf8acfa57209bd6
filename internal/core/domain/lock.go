package domain

// LockStyle declares how a lock's node set relates to its target environments.
type LockStyle string

const (
	// StylePerEnvironment marks a lock whose selected artifacts differ across
	// target environments.
	StylePerEnvironment LockStyle = "per-environment"
	// StyleUniversal marks a lock whose selected artifacts are identical for
	// every package across all target environments. This is verified at lock
	// build time, never assumed.
	StyleUniversal LockStyle = "universal"
)

// Lock is the fully pinned output of a resolution: the target environments in
// scope and the resolved node graph.
type Lock struct {
	Targets []TargetEnvironment
	Graph   *Graph
	Style   LockStyle
}

// DetectStyle computes the lock's style: universal iff every node selected an
// artifact with the same content hash for every target environment it is in
// scope for. A node absent from a target, because a marker deselected it
// there, does not make the lock per-environment; only diverging artifact
// hashes do.
func (l *Lock) DetectStyle() LockStyle {
	for _, id := range l.Graph.Identities() {
		node := l.Graph.Node(id)
		var hash string
		seen := false
		for _, target := range l.Targets {
			art, ok := node.Artifacts[target.Name]
			if !ok {
				continue
			}
			if !seen {
				hash = art.SHA256
				seen = true
				continue
			}
			if art.SHA256 != hash {
				return StylePerEnvironment
			}
		}
	}
	return StyleUniversal
}

// Subset prunes the lock to the nodes reachable from the given requirements,
// preserving exact pins. It never re-resolves versions. The style flag is
// recomputed: removing the only nodes that differed across environments can
// turn a per-environment lock universal.
func (l *Lock) Subset(requirements []Requirement) *Lock {
	roots := make([]Identity, 0, len(requirements))
	for _, req := range requirements {
		roots = append(roots, req.Identity)
	}
	keep := l.Graph.Reachable(roots)

	pruned := NewGraph()
	for _, id := range l.Graph.Identities() {
		if keep[id] {
			// Reachability never visits the same identity twice, so AddNode
			// cannot fail here.
			_ = pruned.AddNode(l.Graph.Node(id))
		}
	}

	sub := &Lock{Targets: l.Targets, Graph: pruned}
	sub.Style = sub.DetectStyle()
	return sub
}
