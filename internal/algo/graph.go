// Package algo provides a small dependency graph + topological sort,
// adapted directly from the teacher's algo/topo.go (itself used there to
// order mod installs by their declared dependencies). Here it orders
// ResolvedProject entries so a required dependency installs before the
// project that needs it (internal/resolver reverses Sorted's order for this).
package algo

// Key identifies a node; callers use whatever value distinguishes their
// domain objects (a project ID, a build target name).
type Key interface{}

// Graph is a set of nodes keyed by Key, exactly the teacher's Graph type.
type Graph map[Key]*Node

// Node tracks one item's dependency edges. Optionals are edges that
// influence ordering when present but whose absence is not an error —
// the teacher uses this for mods that merely "soft-depend" on another.
type Node struct {
	Key   Key
	graph Graph

	Dependents   map[*Node]struct{}
	Dependencies map[*Node]struct{}
	Optionals    map[*Node]struct{}
}

func New() Graph {
	return make(Graph)
}

// Add registers (or returns the existing) node for key.
func (g Graph) Add(key Key) *Node {
	if g[key] == nil {
		g[key] = &Node{
			Key:          key,
			graph:        g,
			Dependents:   make(map[*Node]struct{}),
			Dependencies: make(map[*Node]struct{}),
			Optionals:    make(map[*Node]struct{}),
		}
	}
	return g[key]
}

// Remove deletes key and severs every edge pointing at it.
func (g Graph) Remove(key Key) {
	n, ok := g[key]
	if !ok {
		return
	}
	for _, other := range g {
		delete(other.Dependencies, n)
		delete(other.Dependents, n)
		delete(other.Optionals, n)
	}
	delete(g, key)
}

// DependsOn records that n requires each of keys to be installed first.
func (n *Node) DependsOn(keys ...Key) {
	for _, key := range keys {
		dep := n.graph.Add(key)
		n.Dependencies[dep] = struct{}{}
		dep.Dependents[n] = struct{}{}
	}
}

// SoftDependsOn records an optional ordering hint that never blocks
// resolution if the referenced key is never declared.
func (n *Node) SoftDependsOn(keys ...Key) {
	for _, key := range keys {
		n.Optionals[n.graph.Add(key)] = struct{}{}
	}
}

func (n *Node) IsRoot() bool { return len(n.Dependents) == 0 }
func (n *Node) IsLeaf() bool { return len(n.Dependencies) == 0 }

// Sorted returns every node in an order where each node appears after all
// of its Dependents (i.e., dependents come before their dependencies;
// reverse the result for dependency-first order), via
// Kahn's algorithm starting from root nodes. A cycle leaves the cyclic
// nodes out of the result; callers that must detect cycles should compare
// len(Sorted()) against len(g).
func (g Graph) Sorted() []*Node {
	sorted := make([]*Node, 0, len(g))
	remaining := make(map[*Node]int, len(g))

	var frontier []*Node
	for _, n := range g {
		if n.IsRoot() {
			frontier = append(frontier, n)
		} else {
			remaining[n] = len(n.Dependents)
		}
	}

	for len(frontier) > 0 {
		n := frontier[0]
		frontier = frontier[1:]
		sorted = append(sorted, n)

		for dep := range n.Dependencies {
			remaining[dep]--
			if remaining[dep] == 0 {
				frontier = append(frontier, dep)
			}
		}
	}

	return sorted
}
