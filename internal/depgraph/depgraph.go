// Package depgraph tracks which cells refer to which: the single
// source of truth the engine consults for cycle detection and cache
// invalidation.
package depgraph

import "github.com/sheetkit/engine/position"

// Graph stores refsFrom[q], the set of cells whose formula currently
// mentions q. Equivalently: p is a member of refsFrom[q] iff the cell
// at p is a formula that references q. Empty sets are never stored;
// the key is erased the instant its set becomes empty, so Size()
// reflects only cells that actually have at least one referrer.
type Graph struct {
	refsFrom map[position.Position]map[position.Position]struct{}
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{refsFrom: make(map[position.Position]map[position.Position]struct{})}
}

// EdgesInto returns the referrers of q: cells whose formula mentions
// q. The returned slice is a fresh copy and safe to mutate.
func (g *Graph) EdgesInto(q position.Position) []position.Position {
	set := g.refsFrom[q]
	result := make([]position.Position, 0, len(set))
	for p := range set {
		result = append(result, p)
	}
	return result
}

// AddEdge records that p's formula references q.
func (g *Graph) AddEdge(q, p position.Position) {
	set, ok := g.refsFrom[q]
	if !ok {
		set = make(map[position.Position]struct{})
		g.refsFrom[q] = set
	}
	set[p] = struct{}{}
}

// RemoveEdge erases the fact that p's formula references q. If that
// was the last referrer of q, the key itself is erased.
func (g *Graph) RemoveEdge(q, p position.Position) {
	set, ok := g.refsFrom[q]
	if !ok {
		return
	}
	delete(set, p)
	if len(set) == 0 {
		delete(g.refsFrom, q)
	}
}

// Size returns the number of positions that currently have at least
// one referrer.
func (g *Graph) Size() int {
	return len(g.refsFrom)
}
