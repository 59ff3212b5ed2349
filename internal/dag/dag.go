package dag

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

var (
	// ErrUnknownNode is returned when an edge or query names a node that was
	// never added.
	ErrUnknownNode = errors.New("unknown node")
	// ErrSelfEdge is returned when a node is made to depend on itself.
	ErrSelfEdge = errors.New("node cannot depend on itself")
)

// CycleError reports a dependency cycle. Path starts and ends with the same
// node.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "dependency cycle: " + strings.Join(e.Path, " -> ")
}

// Graph holds string IDs and the "runs before" edges between them. It is
// safe for concurrent use.
type Graph struct {
	mu     sync.RWMutex
	before map[string]map[string]struct{} // id -> ids that must finish first
	after  map[string]map[string]struct{} // id -> ids waiting on it
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		before: make(map[string]map[string]struct{}),
		after:  make(map[string]map[string]struct{}),
	}
}

// AddNode adds id. Adding an existing id is a no-op.
func (g *Graph) AddNode(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.before[id]; exists {
		return
	}
	g.before[id] = make(map[string]struct{})
	g.after[id] = make(map[string]struct{})
}

// AddEdge records that to cannot start before from has finished.
func (g *Graph) AddEdge(from, to string) error {
	if from == to {
		return fmt.Errorf("%w: %s", ErrSelfEdge, from)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, id := range []string{from, to} {
		if _, exists := g.before[id]; !exists {
			return fmt.Errorf("%w: %s", ErrUnknownNode, id)
		}
	}
	g.before[to][from] = struct{}{}
	g.after[from][to] = struct{}{}
	return nil
}

// Dependencies returns the sorted IDs that id waits on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	return g.neighbours(g.before, id)
}

// Dependents returns the sorted IDs that wait on id.
func (g *Graph) Dependents(id string) ([]string, error) {
	return g.neighbours(g.after, id)
}

func (g *Graph) neighbours(edges map[string]map[string]struct{}, id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	set, exists := edges[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	return slices.Sorted(maps.Keys(set)), nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.before)
}

// DetectCycles returns a *CycleError describing the first cycle found when
// walking the nodes in ID order, or nil.
func (g *Graph) DetectCycles() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.findCycle()
}

func (g *Graph) findCycle() error {
	const (
		unseen = iota
		onPath
		done
	)
	state := make(map[string]int, len(g.before))
	var path []string

	var walk func(id string) error
	walk = func(id string) error {
		switch state[id] {
		case done:
			return nil
		case onPath:
			start := slices.Index(path, id)
			cycle := append(slices.Clone(path[start:]), id)
			return &CycleError{Path: cycle}
		}
		state[id] = onPath
		path = append(path, id)
		for _, next := range slices.Sorted(maps.Keys(g.after[id])) {
			if err := walk(next); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[id] = done
		return nil
	}

	for _, id := range slices.Sorted(maps.Keys(g.before)) {
		if err := walk(id); err != nil {
			return err
		}
	}
	return nil
}

// Levels partitions the nodes so that every node sits one level after the
// deepest of its dependencies. Level 0 holds the nodes with no dependencies.
// IDs within a level are sorted. A cycle yields a *CycleError.
func (g *Graph) Levels() ([][]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if err := g.findCycle(); err != nil {
		return nil, err
	}

	pending := make(map[string]int, len(g.before))
	var ready []string
	for id, deps := range g.before {
		pending[id] = len(deps)
		if len(deps) == 0 {
			ready = append(ready, id)
		}
	}

	var levels [][]string
	for len(ready) > 0 {
		slices.Sort(ready)
		levels = append(levels, ready)

		var unlocked []string
		for _, id := range ready {
			for waiter := range g.after[id] {
				if pending[waiter]--; pending[waiter] == 0 {
					unlocked = append(unlocked, waiter)
				}
			}
		}
		ready = unlocked
	}
	return levels, nil
}
