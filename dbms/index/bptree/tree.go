// Package bptree implements the in-memory B+ tree behind a line index.
//
// Nodes live in an arena and refer to each other by NodeID handles:
//
//	internal node: keys[0..k), children[0..k]
//	               children[i] holds keys in [keys[i-1], keys[i])
//	leaf node:     keys[0..k), slots[0..k) (offset, length of each record)
//	               prev/next link every leaf in ascending key order
//
// A node splits as soon as it holds Capacity keys. Leaf splits copy the first
// key of the right half up to the parent, internal splits move the middle key
// up. Keys are never removed.
package bptree

import (
	"slices"

	"github.com/btree-query-bench/lineindex/dbms/index"
	"github.com/btree-query-bench/lineindex/dbms/index/keycodec"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

var _ index.Index = (*Tree)(nil)

// NodeID is the arena handle of a node.
type NodeID uint32

// InvalidNode marks a missing parent, child or sibling.
const InvalidNode = ^NodeID(0)

const minCapacity = 3

type slot struct {
	offset uint64
	length uint32
}

type node struct {
	leaf     bool
	keys     []string
	slots    []slot   // leaf only
	children []NodeID // internal only
	parent   NodeID
	prev     NodeID // leaf only
	next     NodeID // leaf only
}

func newNode(leaf bool) node {
	return node{leaf: leaf, parent: InvalidNode, prev: InvalidNode, next: InvalidNode}
}

// search returns the position of the first key >= key and whether it is equal.
func (n *node) search(key string) (int, bool) {
	return slices.BinarySearch(n.keys, key)
}

// route returns the child to descend into. A key equal to a separator
// belongs to the subtree right of it.
func (n *node) route(key string) NodeID {
	i, found := n.search(key)
	if found {
		i++
	}
	return n.children[i]
}

func (n *node) entry(i int) index.Entry {
	return index.Entry{Key: n.keys[i], Offset: n.slots[i].offset, Length: n.slots[i].length}
}

// Tree is a B+ tree over fixed-width keys. It is not safe for concurrent
// mutation; concurrent readers are fine once mutation has stopped.
type Tree struct {
	keyWidth int
	capacity int
	root     NodeID
	nodes    []node
	size     int
	log      *zap.Logger
}

// Option configures a Tree.
type Option func(*Tree)

// WithCapacity overrides the split threshold derived from the key width.
func WithCapacity(n int) Option {
	return func(t *Tree) {
		if n < minCapacity {
			n = minCapacity
		}
		t.capacity = n
	}
}

// WithLogger sets the logger used for structural events.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tree) {
		if l != nil {
			t.log = l
		}
	}
}

// New returns an empty tree for keys of the given width.
func New(keyWidth int, opts ...Option) *Tree {
	t := &Tree{
		keyWidth: keyWidth,
		capacity: keycodec.Capacity(keyWidth),
		root:     InvalidNode,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// KeyWidth returns the fixed key width.
func (t *Tree) KeyWidth() int { return t.keyWidth }

// Capacity returns the key count at which a node splits.
func (t *Tree) Capacity() int { return t.capacity }

// Len returns the number of indexed entries.
func (t *Tree) Len() int { return t.size }

// Root returns the root handle, InvalidNode for an empty tree.
func (t *Tree) Root() NodeID { return t.root }

// Close is a no-op; the tree holds no external resources.
func (t *Tree) Close() error { return nil }

// RootHint returns the informational root string kept in the index header.
func (t *Tree) RootHint() string {
	if t.root == InvalidNode {
		return ""
	}
	return " " + t.nodes[t.root].keys[0]
}

func (t *Tree) alloc(n node) NodeID {
	t.nodes = append(t.nodes, n)
	return NodeID(len(t.nodes) - 1)
}

func (t *Tree) normalize(key string) string {
	return keycodec.Normalize(key, t.keyWidth)
}

// ─── Get ──────────────────────────────────────────────────────────────────────

// Get returns the entry stored under key after normalizing it to the tree's
// width.
func (t *Tree) Get(key string) (index.Entry, error) {
	key = t.normalize(key)
	id := t.findLeaf(key)
	if id == InvalidNode {
		return index.Entry{}, errors.Wrapf(index.ErrKeyNotFound, "key %q", key)
	}
	n := &t.nodes[id]
	i, found := n.search(key)
	if !found {
		return index.Entry{}, errors.Wrapf(index.ErrKeyNotFound, "key %q", key)
	}
	return n.entry(i), nil
}

func (t *Tree) findLeaf(key string) NodeID {
	id := t.root
	for id != InvalidNode && !t.nodes[id].leaf {
		id = t.nodes[id].route(key)
	}
	return id
}

func (t *Tree) firstLeaf() NodeID {
	id := t.root
	for id != InvalidNode && !t.nodes[id].leaf {
		id = t.nodes[id].children[0]
	}
	return id
}

// ─── Insert ───────────────────────────────────────────────────────────────────

// Insert adds key with the location of its record. A key already present at
// any level of the descent is rejected with ErrDuplicateKey and the tree is
// left unchanged.
func (t *Tree) Insert(key string, offset uint64, length uint32) error {
	key = t.normalize(key)
	if t.root == InvalidNode {
		root := newNode(true)
		root.keys = []string{key}
		root.slots = []slot{{offset: offset, length: length}}
		t.root = t.alloc(root)
		t.size++
		return nil
	}

	id := t.root
	var pos int
	for {
		n := &t.nodes[id]
		i, found := n.search(key)
		if found {
			return errors.Wrapf(index.ErrDuplicateKey, "key %q", key)
		}
		if n.leaf {
			pos = i
			break
		}
		id = n.children[i]
	}

	leaf := &t.nodes[id]
	leaf.keys = slices.Insert(leaf.keys, pos, key)
	leaf.slots = slices.Insert(leaf.slots, pos, slot{offset: offset, length: length})
	t.size++

	if len(leaf.keys) == t.capacity {
		t.split(id)
	}
	return nil
}

// splitPoint is lower biased for even counts.
func splitPoint(n int) int {
	if n%2 == 0 {
		return n/2 - 1
	}
	return n / 2
}

// split divides a full node in two and hands the separator to the parent,
// splitting ancestors for as long as they fill up. The left half keeps the
// node's arena slot.
func (t *Tree) split(id NodeID) {
	for {
		rightID := t.alloc(newNode(t.nodes[id].leaf))
		left, right := &t.nodes[id], &t.nodes[rightID]
		mid := splitPoint(len(left.keys))

		var promoted string
		if left.leaf {
			right.keys = slices.Clone(left.keys[mid:])
			right.slots = slices.Clone(left.slots[mid:])
			left.keys = slices.Clip(left.keys[:mid])
			left.slots = slices.Clip(left.slots[:mid])

			right.prev, right.next = id, left.next
			if left.next != InvalidNode {
				t.nodes[left.next].prev = rightID
			}
			left.next = rightID
			promoted = right.keys[0]
		} else {
			promoted = left.keys[mid]
			right.keys = slices.Clone(left.keys[mid+1:])
			right.children = slices.Clone(left.children[mid+1:])
			left.keys = slices.Clip(left.keys[:mid])
			left.children = slices.Clip(left.children[:mid+1])
			for _, c := range right.children {
				t.nodes[c].parent = rightID
			}
		}

		t.log.Debug("node split",
			zap.Uint32("left", uint32(id)),
			zap.Uint32("right", uint32(rightID)),
			zap.Bool("leaf", left.leaf),
			zap.String("promoted", promoted))

		parentID := left.parent
		if parentID == InvalidNode {
			root := newNode(false)
			root.keys = []string{promoted}
			root.children = []NodeID{id, rightID}
			rootID := t.alloc(root)
			t.nodes[id].parent = rootID
			t.nodes[rightID].parent = rootID
			t.root = rootID
			t.log.Debug("root grown", zap.Uint32("root", uint32(rootID)))
			return
		}

		right.parent = parentID
		parent := &t.nodes[parentID]
		pos, _ := parent.search(promoted)
		parent.keys = slices.Insert(parent.keys, pos, promoted)
		parent.children = slices.Insert(parent.children, pos+1, rightID)
		if len(parent.keys) < t.capacity {
			return
		}
		id = parentID
	}
}
