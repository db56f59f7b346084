// Package reactive provides the dependency-aware caching substrate for the
// entity store: versioned cells for mutable state and memos that recompute
// only when something they read has changed.
//
// A Graph is not safe for concurrent use. The store serializes all access to
// its graph behind its own mutex.
package reactive

// dependency is anything a memo can record a read of: a Cell or another Memo.
type dependency interface {
	// refresh revalidates the dependency so its version reflects current
	// state. Cells are always current; memos recompute if stale.
	refresh()
	depVersion() uint64
}

// tracking collects the dependencies read during one memo computation.
type tracking struct {
	versions map[dependency]uint64
	order    []dependency
}

// Graph owns the dependency-tracking runtime: a stack of in-flight
// computations. Reads of cells and memos are recorded into the innermost
// computation only; nesting is handled by memos recording themselves into
// their enclosing computation, which is what lets an unchanged inner result
// stop invalidation from propagating outward.
type Graph struct {
	stack []*tracking
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{}
}

func (g *Graph) begin() *tracking {
	t := &tracking{versions: make(map[dependency]uint64)}
	g.stack = append(g.stack, t)
	return t
}

func (g *Graph) end() {
	g.stack = g.stack[:len(g.stack)-1]
}

// record notes a dependency read in the innermost active computation.
// The version recorded is the one seen at first read.
func (g *Graph) record(d dependency, version uint64) {
	if len(g.stack) == 0 {
		return
	}
	t := g.stack[len(g.stack)-1]
	if _, seen := t.versions[d]; seen {
		return
	}
	t.versions[d] = version
	t.order = append(t.order, d)
}

// Cell is a named, versioned unit of mutable state. State owners call Bump
// after mutating; derivations call Observe while reading.
type Cell struct {
	graph   *Graph
	name    string
	version uint64
}

// NewCell creates a cell registered on the graph.
func (g *Graph) NewCell(name string) *Cell {
	return &Cell{graph: g, name: name}
}

// Bump marks the state behind the cell as changed.
func (c *Cell) Bump() {
	c.version++
}

// Observe records a read of the cell in the current computation, if any.
func (c *Cell) Observe() {
	c.graph.record(c, c.version)
}

// Version returns the cell's current version.
func (c *Cell) Version() uint64 {
	return c.version
}

func (c *Cell) refresh()           {}
func (c *Cell) depVersion() uint64 { return c.version }
