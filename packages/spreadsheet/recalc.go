package spreadsheet

import (
	"errors"
	"fmt"
	"slices"
)

// ErrCircularDependency is returned when an edit would make a cell depend on
// itself, directly or through other cells
var ErrCircularDependency = errors.New("circular dependency")

// visitState tracks a cell during the depth first walk
type visitState uint8

const (
	white visitState = iota // not reached yet
	gray                    // on the current path
	black                   // finished, all dependents placed
)

// calculationFrame is a cell on the walk path plus the dependents it still
// has to visit
type calculationFrame struct {
	name    string
	pending []string
}

// calculationStack manages the stack-based calculation order. it replaces
// recursion so long dependency chains cannot exhaust the goroutine stack.
type calculationStack struct {
	items []calculationFrame
	state map[string]visitState
	order []string // post-order, reversed at the end
}

func newCalculationStack() *calculationStack {
	return &calculationStack{
		items: make([]calculationFrame, 0),
		state: make(map[string]visitState),
	}
}

// push marks the cell as on the path and queues its dependents
func (cs *calculationStack) push(name string, dependents []string) {
	cs.items = append(cs.items, calculationFrame{name: name, pending: dependents})
	cs.state[name] = gray
}

// pop finishes the top cell
func (cs *calculationStack) pop() {
	top := cs.items[len(cs.items)-1]
	cs.items = cs.items[:len(cs.items)-1]
	cs.state[top.name] = black
	cs.order = append(cs.order, top.name)
}

// TopologicalOrderFrom returns name followed by every cell that directly or
// indirectly depends on it, ordered so that each cell comes after all of its
// dependees in the list. dependents are visited in sorted order so the
// result is deterministic. if name can reach itself the walk stops and an
// error wrapping ErrCircularDependency is returned.
func (dg *DependencyGraph) TopologicalOrderFrom(name string) ([]string, error) {
	cs := newCalculationStack()
	cs.push(name, dg.Dependents(name))

	for len(cs.items) > 0 {
		top := &cs.items[len(cs.items)-1]
		if len(top.pending) == 0 {
			cs.pop()
			continue
		}

		next := top.pending[0]
		top.pending = top.pending[1:]

		switch cs.state[next] {
		case gray:
			return nil, fmt.Errorf("%w: %s depends on itself through %s", ErrCircularDependency, next, top.name)
		case black:
			continue
		}
		cs.push(next, dg.Dependents(next))
	}

	slices.Reverse(cs.order)
	return cs.order, nil
}
