package bptree

import "github.com/btree-query-bench/lineindex/dbms/index"

// ─── Range Iterator ───────────────────────────────────────────────────────────

// Iterator walks the leaf chain forward. It never wraps around.
type Iterator struct {
	tree *Tree
	leaf NodeID
	idx  int
	cur  index.Entry
}

// Seek positions an iterator on key, or on the smallest greater key when key
// is absent; the successor may live in a later leaf. The bool reports an
// exact hit.
func (t *Tree) Seek(key string) (index.Iterator, bool, error) {
	it, found := t.seek(key)
	return it, found, nil
}

func (t *Tree) seek(key string) (*Iterator, bool) {
	key = t.normalize(key)
	id := t.findLeaf(key)
	if id == InvalidNode {
		return &Iterator{tree: t, leaf: InvalidNode}, false
	}
	i, found := t.nodes[id].search(key)
	return &Iterator{tree: t, leaf: id, idx: i}, found
}

// Next advances to the next entry.
func (it *Iterator) Next() bool {
	for it.leaf != InvalidNode {
		n := &it.tree.nodes[it.leaf]
		if it.idx < len(n.keys) {
			it.cur = n.entry(it.idx)
			it.idx++
			return true
		}
		it.leaf = n.next
		it.idx = 0
	}
	return false
}

func (it *Iterator) Entry() index.Entry { return it.cur }
func (it *Iterator) Error() error       { return nil }
func (it *Iterator) Close() error       { it.leaf = InvalidNode; return nil }

// List returns up to count entries starting at key, or at its successor when
// key is absent. The bool reports whether key itself was found.
func (t *Tree) List(key string, count int) ([]index.Entry, bool) {
	it, found := t.seek(key)
	if count <= 0 {
		return nil, found
	}
	out := make([]index.Entry, 0, min(count, t.size))
	for len(out) < count && it.Next() {
		out = append(out, it.Entry())
	}
	return out, found
}

// Scan calls fn for every entry in key order until fn returns false.
func (t *Tree) Scan(fn func(index.Entry) bool) {
	it := &Iterator{tree: t, leaf: t.firstLeaf()}
	for it.Next() {
		if !fn(it.Entry()) {
			return
		}
	}
}

// Leaves returns the leaf handles in chain order.
func (t *Tree) Leaves() []NodeID {
	var out []NodeID
	for id := t.firstLeaf(); id != InvalidNode; id = t.nodes[id].next {
		out = append(out, id)
	}
	return out
}
