// Package listindex is a sorted slice behind the common Index interface. It
// answers every query with a binary search and serves as the simplest
// possible model of a line index.
package listindex

import (
	"slices"

	"github.com/btree-query-bench/lineindex/dbms/index"
	"github.com/btree-query-bench/lineindex/dbms/index/keycodec"
	"github.com/cockroachdb/errors"
)

var _ index.Index = (*ListIndex)(nil)

type ListIndex struct {
	keyWidth int
	Data     []index.Entry
}

func NewListIndex(keyWidth int) *ListIndex {
	return &ListIndex{
		keyWidth: keyWidth,
		Data:     make([]index.Entry, 0),
	}
}

func (l *ListIndex) search(key string) (int, bool) {
	return slices.BinarySearchFunc(l.Data, key, func(e index.Entry, k string) int {
		return keycodec.Compare(e.Key, k)
	})
}

func (l *ListIndex) Insert(key string, offset uint64, length uint32) error {
	key = keycodec.Normalize(key, l.keyWidth)
	i, found := l.search(key)
	if found {
		return errors.Wrapf(index.ErrDuplicateKey, "listindex: %q", key)
	}
	l.Data = slices.Insert(l.Data, i, index.Entry{Key: key, Offset: offset, Length: length})
	return nil
}

func (l *ListIndex) Get(key string) (index.Entry, error) {
	key = keycodec.Normalize(key, l.keyWidth)
	if i, found := l.search(key); found {
		return l.Data[i], nil
	}
	return index.Entry{}, errors.Wrapf(index.ErrKeyNotFound, "listindex: %q", key)
}

func (l *ListIndex) Seek(key string) (index.Iterator, bool, error) {
	i, found := l.search(keycodec.Normalize(key, l.keyWidth))
	return &ListIterator{data: l.Data, cur: i - 1}, found, nil
}

func (l *ListIndex) Len() int     { return len(l.Data) }
func (l *ListIndex) Close() error { return nil }

type ListIterator struct {
	data []index.Entry
	cur  int
}

func (it *ListIterator) Next() bool {
	if it.cur >= len(it.data) {
		return false
	}
	it.cur++
	return it.cur < len(it.data)
}

func (it *ListIterator) Entry() index.Entry { return it.data[it.cur] }
func (it *ListIterator) Error() error       { return nil }
func (it *ListIterator) Close() error       { return nil }
