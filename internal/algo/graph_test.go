package algo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func indexOf(nodes []*Node, key Key) int {
	for i, n := range nodes {
		if n.Key == key {
			return i
		}
	}
	return -1
}

func TestSortedOrdersDependenciesAfterDependents(t *testing.T) {
	g := New()
	cit := g.Add("citadel")
	fae := g.Add("fresh-animations")
	fae.DependsOn("citadel")

	sorted := g.Sorted()
	assert.True(t, indexOf(sorted, "fresh-animations") < indexOf(sorted, "citadel"))
	_ = cit
}

func TestIsRootAndIsLeaf(t *testing.T) {
	g := New()
	a := g.Add("a")
	b := g.Add("b")
	a.DependsOn("b")

	assert.True(t, a.IsRoot())
	assert.False(t, a.IsLeaf())
	assert.True(t, b.IsLeaf())
	assert.False(t, b.IsRoot())
}

func TestRemoveSeversEdges(t *testing.T) {
	g := New()
	a := g.Add("a")
	a.DependsOn("b")
	g.Remove("b")

	assert.Empty(t, a.Dependencies)
	assert.Len(t, g, 1)
}

func TestSoftDependsOnDoesNotBlockOrdering(t *testing.T) {
	g := New()
	a := g.Add("a")
	a.SoftDependsOn("optional-thing")

	sorted := g.Sorted()
	assert.Len(t, sorted, 2)
}
