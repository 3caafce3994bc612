// Package lsm wraps Pebble (CockroachDB's LSM storage engine) behind the
// common Index interface. It holds the same entries as a line index and is
// used as a reference when benchmarking and verifying the B+ tree.
package lsm

import (
	"bytes"
	"encoding/binary"

	"github.com/btree-query-bench/lineindex/dbms/index"
	"github.com/btree-query-bench/lineindex/dbms/index/keycodec"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"go.uber.org/zap"
)

var _ index.Index = (*LSM)(nil)

// valueLen is the size of an encoded (offset, length) pair.
const valueLen = 8 + 4

type LSM struct {
	db       *pebble.DB
	keyWidth int
}

type config struct {
	inMemory bool
	log      *zap.Logger
}

// Option configures Open.
type Option func(*config)

// InMemory keeps the whole database in memory; dir is then only a name.
func InMemory() Option {
	return func(c *config) { c.inMemory = true }
}

// WithLogger routes Pebble's own log output to l.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.log = l }
}

// Open opens (or creates) a Pebble database at the given directory path for
// keys of the given width.
func Open(dir string, keyWidth int, opts ...Option) (*LSM, error) {
	if !keycodec.ValidWidth(keyWidth) {
		return nil, errors.Newf("lsm: key width %d outside 1..%d", keyWidth, keycodec.MaxWidth)
	}
	var c config
	for _, opt := range opts {
		opt(&c)
	}

	popts := &pebble.Options{
		// Use a 16 MB memtable
		MemTableSize: 16 << 20,
		// Keep up to 4 memtables so one can be flushed while the others are active.
		MemTableStopWritesThreshold: 4,
		// L0 compaction trigger.
		L0CompactionThreshold: 4,
		L0StopWritesThreshold: 12,
	}
	if c.inMemory {
		popts.FS = vfs.NewMem()
	}
	if c.log != nil {
		popts.Logger = c.log.Named("pebble").Sugar()
	}

	db, err := pebble.Open(dir, popts)
	if err != nil {
		return nil, index.IOError(err, "lsm: open")
	}
	return &LSM{db: db, keyWidth: keyWidth}, nil
}

// Close cleanly shuts down Pebble, flushing any in-memory state.
func (l *LSM) Close() error {
	return index.IOError(l.db.Close(), "lsm: close")
}

// KeyWidth returns the fixed key width.
func (l *LSM) KeyWidth() int { return l.keyWidth }

// Insert adds key unless its normalized form is already present.
func (l *LSM) Insert(key string, offset uint64, length uint32) error {
	k := []byte(keycodec.Normalize(key, l.keyWidth))
	_, closer, err := l.db.Get(k)
	switch {
	case err == nil:
		closer.Close()
		return errors.Wrapf(index.ErrDuplicateKey, "lsm: %q", k)
	case !errors.Is(err, pebble.ErrNotFound):
		return index.IOError(err, "lsm: get")
	}
	return index.IOError(l.db.Set(k, encodeValue(offset, length), pebble.NoSync), "lsm: set")
}

// Get retrieves the entry stored for key.
func (l *LSM) Get(key string) (index.Entry, error) {
	k := keycodec.Normalize(key, l.keyWidth)
	val, closer, err := l.db.Get([]byte(k))
	if errors.Is(err, pebble.ErrNotFound) {
		return index.Entry{}, errors.Wrapf(index.ErrKeyNotFound, "lsm: %q", k)
	}
	if err != nil {
		return index.Entry{}, index.IOError(err, "lsm: get")
	}
	defer closer.Close()
	return decodeEntry(k, val)
}

// Load writes entries in one batch. Existing keys are overwritten.
func (l *LSM) Load(entries []index.Entry) error {
	b := l.db.NewBatch()
	defer b.Close()
	for _, e := range entries {
		k := keycodec.Normalize(e.Key, l.keyWidth)
		if err := b.Set([]byte(k), encodeValue(e.Offset, e.Length), nil); err != nil {
			return index.IOError(err, "lsm: batch set")
		}
	}
	return index.IOError(b.Commit(pebble.NoSync), "lsm: commit")
}

// DiskUsage returns the bytes used by the database's files.
func (l *LSM) DiskUsage() uint64 {
	return l.db.Metrics().DiskSpaceUsage()
}

// Seek returns an iterator positioned on key or its successor. The bool
// reports an exact hit.
func (l *LSM) Seek(key string) (index.Iterator, bool, error) {
	k := []byte(keycodec.Normalize(key, l.keyWidth))
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: k})
	if err != nil {
		return nil, false, index.IOError(err, "lsm: seek")
	}
	valid := iter.First()
	found := valid && bytes.Equal(iter.Key(), k)
	return &rangeIterator{iter: iter, first: true}, found, nil
}

// ─── Value encoding ───────────────────────────────────────────────────────────

func encodeValue(offset uint64, length uint32) []byte {
	b := make([]byte, valueLen)
	binary.BigEndian.PutUint64(b, offset)
	binary.BigEndian.PutUint32(b[8:], length)
	return b
}

func decodeEntry(key string, v []byte) (index.Entry, error) {
	if len(v) != valueLen {
		return index.Entry{}, errors.Newf("lsm: unexpected value length %d", len(v))
	}
	return index.Entry{
		Key:    key,
		Offset: binary.BigEndian.Uint64(v),
		Length: binary.BigEndian.Uint32(v[8:]),
	}, nil
}

// ─── Range Iterator ───────────────────────────────────────────────────────────

type rangeIterator struct {
	iter  *pebble.Iterator
	first bool
	cur   index.Entry
	err   error
}

func (it *rangeIterator) Next() bool {
	if it.err != nil {
		return false
	}
	var valid bool
	if it.first {
		// iter.First() was already called in Seek(); just check validity.
		it.first = false
		valid = it.iter.Valid()
	} else {
		valid = it.iter.Next()
	}
	if !valid {
		return false
	}
	// decodeEntry copies out of Pebble's buffers, which are reused on Next().
	it.cur, it.err = decodeEntry(string(it.iter.Key()), it.iter.Value())
	return it.err == nil
}

func (it *rangeIterator) Entry() index.Entry { return it.cur }

func (it *rangeIterator) Error() error {
	if it.err != nil {
		return it.err
	}
	return it.iter.Error()
}

func (it *rangeIterator) Close() error { return it.iter.Close() }
