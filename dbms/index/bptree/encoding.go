package bptree

import (
	"encoding/binary"

	"github.com/btree-query-bench/lineindex/dbms/index"
	"github.com/cockroachdb/errors"
)

// Body layout, all integers uvarint:
//
//	version | capacity | node count | root+1 (0 = empty tree)
//	node:   kind (0 internal, 1 leaf) | key count | keys (key width bytes each)
//	leaf:     offset | length            (per key)
//	internal: child handle               (key count + 1)
//
// Parent links and the leaf chain are not stored; they are rebuilt from the
// child handles on decode.
const bodyVersion = 1

const (
	kindInternal = byte(0)
	kindLeaf     = byte(1)
)

// MarshalBinary encodes the tree structure.
func (t *Tree) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 64+t.size*(t.keyWidth+8))
	buf = binary.AppendUvarint(buf, bodyVersion)
	buf = binary.AppendUvarint(buf, uint64(t.capacity))
	buf = binary.AppendUvarint(buf, uint64(len(t.nodes)))
	var root uint64
	if t.root != InvalidNode {
		root = uint64(t.root) + 1
	}
	buf = binary.AppendUvarint(buf, root)

	for i := range t.nodes {
		n := &t.nodes[i]
		kind := kindInternal
		if n.leaf {
			kind = kindLeaf
		}
		buf = append(buf, kind)
		buf = binary.AppendUvarint(buf, uint64(len(n.keys)))
		for _, k := range n.keys {
			if len(k) != t.keyWidth {
				return nil, errors.Newf("bptree: key %q does not have width %d", k, t.keyWidth)
			}
			buf = append(buf, k...)
		}
		if n.leaf {
			for _, s := range n.slots {
				buf = binary.AppendUvarint(buf, s.offset)
				buf = binary.AppendUvarint(buf, uint64(s.length))
			}
			continue
		}
		for _, c := range n.children {
			buf = binary.AppendUvarint(buf, uint64(c))
		}
	}
	return buf, nil
}

// Unmarshal decodes a body written by MarshalBinary for the given key width.
// Every structural problem is reported as index.ErrMalformedIndex.
func Unmarshal(data []byte, keyWidth int, opts ...Option) (*Tree, error) {
	d := decoder{buf: data}
	if v := d.uvarint(); d.err == nil && v != bodyVersion {
		return nil, index.Malformed("bptree: unsupported body version %d", v)
	}
	capacity := d.uvarint()
	count := d.uvarint()
	root := d.uvarint()
	if d.err != nil {
		return nil, d.err
	}
	if capacity < minCapacity || capacity > 1<<20 {
		return nil, index.Malformed("bptree: bad capacity %d", capacity)
	}
	// every node needs at least a kind and a key count byte
	if count > uint64(len(d.buf)) || root > count {
		return nil, index.Malformed("bptree: %d nodes, root %d in %d bytes", count, root, len(data))
	}

	t := New(keyWidth, append([]Option{WithCapacity(int(capacity))}, opts...)...)
	if root > 0 {
		t.root = NodeID(root - 1)
	}
	t.nodes = make([]node, count)

	for i := range t.nodes {
		kind := d.readByte()
		nkeys := d.uvarint()
		if d.err != nil {
			return nil, d.err
		}
		if kind != kindLeaf && kind != kindInternal {
			return nil, index.Malformed("bptree: node %d has kind %d", i, kind)
		}
		if nkeys == 0 || nkeys >= capacity {
			return nil, index.Malformed("bptree: node %d has %d keys", i, nkeys)
		}
		n := newNode(kind == kindLeaf)
		n.keys = make([]string, nkeys)
		for j := range n.keys {
			n.keys[j] = string(d.bytes(keyWidth))
		}
		if n.leaf {
			n.slots = make([]slot, nkeys)
			for j := range n.slots {
				n.slots[j].offset = d.uvarint()
				length := d.uvarint()
				if length > uint64(^uint32(0)) {
					return nil, index.Malformed("bptree: node %d record length %d", i, length)
				}
				n.slots[j].length = uint32(length)
			}
			t.size += int(nkeys)
		} else {
			n.children = make([]NodeID, nkeys+1)
			for j := range n.children {
				c := d.uvarint()
				if c >= count {
					return nil, index.Malformed("bptree: node %d child %d out of range", i, c)
				}
				n.children[j] = NodeID(c)
			}
		}
		if d.err != nil {
			return nil, d.err
		}
		t.nodes[i] = n
	}
	if len(d.buf) != 0 {
		return nil, index.Malformed("bptree: %d trailing bytes after body", len(d.buf))
	}
	if count > 0 && t.root == InvalidNode {
		return nil, index.Malformed("bptree: %d nodes without a root", count)
	}

	if err := t.relink(); err != nil {
		return nil, err
	}
	if err := t.Check(); err != nil {
		return nil, errors.Mark(err, index.ErrMalformedIndex)
	}
	return t, nil
}

// relink rebuilds parent handles and the leaf chain by walking the tree in
// key order.
func (t *Tree) relink() error {
	if t.root == InvalidNode {
		return nil
	}
	prevLeaf := InvalidNode
	visited := 0
	stack := []NodeID{t.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited++; visited > len(t.nodes) {
			return index.Malformed("bptree: cycle through node %d", id)
		}
		n := &t.nodes[id]
		if n.leaf {
			n.prev = prevLeaf
			if prevLeaf != InvalidNode {
				t.nodes[prevLeaf].next = id
			}
			prevLeaf = id
			continue
		}
		for i := len(n.children) - 1; i >= 0; i-- {
			c := n.children[i]
			if c == id || c == t.root {
				return index.Malformed("bptree: node %d points back to %d", id, c)
			}
			t.nodes[c].parent = id
			stack = append(stack, c)
		}
	}
	return nil
}

type decoder struct {
	buf []byte
	err error
}

func (d *decoder) uvarint() uint64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.buf)
	if n <= 0 {
		d.err = index.Malformed("bptree: truncated varint")
		return 0
	}
	d.buf = d.buf[n:]
	return v
}

func (d *decoder) readByte() byte {
	if d.err != nil {
		return 0
	}
	if len(d.buf) < 1 {
		d.err = index.Malformed("bptree: truncated node")
		return 0
	}
	b := d.buf[0]
	d.buf = d.buf[1:]
	return b
}

func (d *decoder) bytes(n int) []byte {
	if d.err != nil {
		return nil
	}
	if len(d.buf) < n {
		d.err = index.Malformed("bptree: truncated key")
		return nil
	}
	b := d.buf[:n]
	d.buf = d.buf[n:]
	return b
}
