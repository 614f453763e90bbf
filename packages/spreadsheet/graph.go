package spreadsheet

import (
	"maps"
	"slices"
)

// DependencyGraph records ordered pairs (s, t) meaning "t depends on s":
// s has to be evaluated before t. the pairs are kept twice, once keyed by
// dependee and once keyed by dependent, and both maps change together.
// a key is never kept with an empty set.
//
// For example, with pairs {(a,b), (a,c), (b,d), (d,d)}:
//
//	Dependents("a") = [b c]    Dependees("a") = []
//	Dependents("b") = [d]      Dependees("b") = [a]
//	Dependents("d") = [d]      Dependees("d") = [b d]
type DependencyGraph struct {
	dependents map[string]map[string]struct{} // s -> cells that depend on s
	dependees  map[string]map[string]struct{} // t -> cells t depends on
	size       int                            // number of distinct pairs
}

// NewDependencyGraph creates an empty dependency graph
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		dependents: make(map[string]map[string]struct{}),
		dependees:  make(map[string]map[string]struct{}),
	}
}

// Size returns the number of ordered pairs in the graph
func (dg *DependencyGraph) Size() int {
	return dg.size
}

// DependeeCount returns the number of cells s depends on
func (dg *DependencyGraph) DependeeCount(s string) int {
	return len(dg.dependees[s])
}

// HasDependents reports whether anything depends on s
func (dg *DependencyGraph) HasDependents(s string) bool {
	_, exists := dg.dependents[s]
	return exists
}

// HasDependees reports whether s depends on anything
func (dg *DependencyGraph) HasDependees(s string) bool {
	_, exists := dg.dependees[s]
	return exists
}

// Dependents returns the cells that depend on s, sorted
func (dg *DependencyGraph) Dependents(s string) []string {
	return sortedKeys(dg.dependents[s])
}

// Dependees returns the cells s depends on, sorted
func (dg *DependencyGraph) Dependees(s string) []string {
	return sortedKeys(dg.dependees[s])
}

// AddDependency adds the pair (s, t). adding an existing pair is a no-op.
func (dg *DependencyGraph) AddDependency(s, t string) {
	if _, exists := dg.dependents[s][t]; exists {
		return
	}

	link(dg.dependents, s, t)
	link(dg.dependees, t, s)
	dg.size++
}

// RemoveDependency removes the pair (s, t) if present
func (dg *DependencyGraph) RemoveDependency(s, t string) {
	if _, exists := dg.dependents[s][t]; !exists {
		return
	}

	unlink(dg.dependents, s, t)
	unlink(dg.dependees, t, s)
	dg.size--
}

// ReplaceDependents removes every (s, r) and adds (s, t) for each t in
// newDependents
func (dg *DependencyGraph) ReplaceDependents(s string, newDependents []string) {
	for _, r := range dg.Dependents(s) {
		dg.RemoveDependency(s, r)
	}
	for _, t := range newDependents {
		dg.AddDependency(s, t)
	}
}

// ReplaceDependees removes every (r, t) and adds (s, t) for each s in
// newDependees. the dependents of t are left alone.
func (dg *DependencyGraph) ReplaceDependees(t string, newDependees []string) {
	for _, r := range dg.Dependees(t) {
		dg.RemoveDependency(r, t)
	}
	for _, s := range newDependees {
		dg.AddDependency(s, t)
	}
}

// Clear removes all pairs from the graph
func (dg *DependencyGraph) Clear() {
	dg.dependents = make(map[string]map[string]struct{})
	dg.dependees = make(map[string]map[string]struct{})
	dg.size = 0
}

// link adds to into the set under from, creating the set if needed
func link(m map[string]map[string]struct{}, from, to string) {
	set, exists := m[from]
	if !exists {
		set = make(map[string]struct{})
		m[from] = set
	}
	set[to] = struct{}{}
}

// unlink removes to from the set under from and prunes an emptied set
func unlink(m map[string]map[string]struct{}, from, to string) {
	set, exists := m[from]
	if !exists {
		return
	}
	delete(set, to)
	if len(set) == 0 {
		delete(m, from)
	}
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return []string{}
	}
	return slices.Sorted(maps.Keys(set))
}
