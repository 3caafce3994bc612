package bptree

import (
	"github.com/cockroachdb/errors"
)

// Stats describes the shape of a tree.
type Stats struct {
	Height    int
	Nodes     int
	Leaves    int
	Internal  int
	Keys      int
	Capacity  int
	KeyWidth  int
	Occupancy float64 // percent of leaf key slots in use
}

// Stats walks the tree and returns its statistics.
func (t *Tree) Stats() Stats {
	s := Stats{
		Nodes:    len(t.nodes),
		Keys:     t.size,
		Capacity: t.capacity,
		KeyWidth: t.keyWidth,
	}
	for id := t.root; id != InvalidNode; {
		s.Height++
		if t.nodes[id].leaf {
			break
		}
		id = t.nodes[id].children[0]
	}
	for i := range t.nodes {
		if t.nodes[i].leaf {
			s.Leaves++
		} else {
			s.Internal++
		}
	}
	if s.Leaves > 0 {
		s.Occupancy = 100.0 * float64(s.Keys) / float64(s.Leaves*(t.capacity-1))
	}
	return s
}

// Check verifies the structural invariants: sorted unique keys within their
// separator bounds, k+1 children per internal node, consistent parent links,
// a leaf chain in key order, no node at capacity and no unreachable node.
func (t *Tree) Check() error {
	if t.root == InvalidNode {
		if len(t.nodes) != 0 || t.size != 0 {
			return errors.Newf("bptree: empty root with %d nodes, %d keys", len(t.nodes), t.size)
		}
		return nil
	}
	if int(t.root) >= len(t.nodes) {
		return errors.Newf("bptree: root %d out of range", t.root)
	}
	if p := t.nodes[t.root].parent; p != InvalidNode {
		return errors.Newf("bptree: root %d has parent %d", t.root, p)
	}

	c := checker{tree: t, seen: make([]bool, len(t.nodes))}
	if err := c.walk(t.root, InvalidNode, "", "", 0); err != nil {
		return err
	}
	if c.visited != len(t.nodes) {
		return errors.Newf("bptree: %d of %d nodes reachable", c.visited, len(t.nodes))
	}
	if c.keys != t.size {
		return errors.Newf("bptree: %d keys in leaves, size %d", c.keys, t.size)
	}
	return c.checkChain()
}

type checker struct {
	tree    *Tree
	seen    []bool
	leaves  []NodeID
	visited int
	keys    int
	depth   int
}

// walk checks the subtree at id; keys must lie in [lo, hi), empty bounds are open.
func (c *checker) walk(id, parent NodeID, lo, hi string, depth int) error {
	t := c.tree
	if int(id) >= len(t.nodes) {
		return errors.Newf("bptree: child handle %d out of range", id)
	}
	if c.seen[id] {
		return errors.Newf("bptree: node %d reached twice", id)
	}
	c.seen[id] = true
	c.visited++

	n := &t.nodes[id]
	if n.parent != parent {
		return errors.Newf("bptree: node %d has parent %d, want %d", id, n.parent, parent)
	}
	if len(n.keys) == 0 {
		return errors.Newf("bptree: node %d has no keys", id)
	}
	if len(n.keys) >= t.capacity {
		return errors.Newf("bptree: node %d holds %d keys, capacity %d", id, len(n.keys), t.capacity)
	}
	for i, k := range n.keys {
		if len(k) != t.keyWidth {
			return errors.Newf("bptree: node %d key %q has width %d", id, k, len(k))
		}
		if i > 0 && n.keys[i-1] >= k {
			return errors.Newf("bptree: node %d keys out of order at %d", id, i)
		}
		if (lo != "" && k < lo) || (hi != "" && k >= hi) {
			return errors.Newf("bptree: node %d key %q outside [%q, %q)", id, k, lo, hi)
		}
	}

	if n.leaf {
		if c.depth == 0 {
			c.depth = depth
		} else if c.depth != depth {
			return errors.Newf("bptree: leaf %d at depth %d, want %d", id, depth, c.depth)
		}
		if len(n.slots) != len(n.keys) {
			return errors.Newf("bptree: leaf %d has %d slots for %d keys", id, len(n.slots), len(n.keys))
		}
		c.leaves = append(c.leaves, id)
		c.keys += len(n.keys)
		return nil
	}

	if len(n.children) != len(n.keys)+1 {
		return errors.Newf("bptree: node %d has %d children for %d keys", id, len(n.children), len(n.keys))
	}
	for i, child := range n.children {
		clo, chi := lo, hi
		if i > 0 {
			clo = n.keys[i-1]
		}
		if i < len(n.keys) {
			chi = n.keys[i]
		}
		if err := c.walk(child, id, clo, chi, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (c *checker) checkChain() error {
	nodes := c.tree.nodes
	prev := InvalidNode
	for i, id := range c.leaves {
		if nodes[id].prev != prev {
			return errors.Newf("bptree: leaf %d prev is %d, want %d", id, nodes[id].prev, prev)
		}
		want := InvalidNode
		if i+1 < len(c.leaves) {
			want = c.leaves[i+1]
		}
		if nodes[id].next != want {
			return errors.Newf("bptree: leaf %d next is %d, want %d", id, nodes[id].next, want)
		}
		prev = id
	}
	return nil
}
