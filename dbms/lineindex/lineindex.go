// Package lineindex implements the index operations offered on the command
// line. Every operation loads the index file, runs against the in-memory
// tree and, if it mutated the tree, rewrites the whole file. No tree outlives
// an operation.
//
// Concurrent operations on the same index file are not coordinated; the
// last writer wins.
package lineindex

import (
	"io"
	"os"

	"github.com/btree-query-bench/lineindex/dbms/index"
	"github.com/btree-query-bench/lineindex/dbms/index/bptree"
	"github.com/btree-query-bench/lineindex/dbms/index/builder"
	"github.com/btree-query-bench/lineindex/dbms/index/indexfile"
	"github.com/btree-query-bench/lineindex/dbms/index/keycodec"
	"github.com/btree-query-bench/lineindex/dbms/recordstore"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Record is an index entry together with the text it points to.
type Record struct {
	index.Entry
	Text string
}

// Options configure an Engine.
type Options struct {
	Logger      *zap.Logger
	Compression indexfile.Compression
	// Capacity overrides the node capacity of newly created indexes.
	Capacity int
	// OnDuplicate is called for every data file line skipped by Create.
	OnDuplicate func(line int, key string)
}

// Engine runs index operations.
type Engine struct {
	log  *zap.Logger
	opts Options
}

func New(o Options) *Engine {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{log: log, opts: o}
}

// WithDuplicateHandler returns a copy of e that reports lines skipped by
// Create to fn.
func (e *Engine) WithDuplicateHandler(fn func(line int, key string)) *Engine {
	o := e.opts
	o.Logger = e.log
	o.OnDuplicate = fn
	return New(o)
}

// ─── Operations ───────────────────────────────────────────────────────────────

// Create builds an index over dataPath and writes it to indexPath.
func (e *Engine) Create(dataPath, indexPath string, keyWidth int) (builder.Report, error) {
	h := indexfile.Header{DataPath: dataPath, KeyWidth: keyWidth}
	if _, err := h.Encode(); err != nil {
		return builder.Report{}, err
	}

	t, rep, err := builder.Build(dataPath, keyWidth, &builder.Options{
		Capacity:    e.opts.Capacity,
		Logger:      e.log,
		OnDuplicate: e.opts.OnDuplicate,
	})
	if err != nil {
		return builder.Report{}, err
	}
	e.checkReplaced(indexPath, dataPath)
	if err := e.store(indexPath, h, t); err != nil {
		return builder.Report{}, err
	}
	e.log.Info("index created",
		zap.String("data", dataPath),
		zap.String("index", indexPath),
		zap.Int("key_width", keyWidth),
		zap.Int("entries", rep.Indexed),
		zap.Int("duplicates", rep.Duplicates))
	return rep, nil
}

// Find looks key up and reads its record.
func (e *Engine) Find(indexPath, key string) (Record, error) {
	t, h, err := e.load(indexPath)
	if err != nil {
		return Record{}, err
	}
	ent, err := t.Get(key)
	if err != nil {
		return Record{}, err
	}
	return readRecord(h.DataPath, ent)
}

// Insert appends record to the data file and indexes it under its first
// key-width characters. A duplicate key is rejected before the data file is
// touched.
func (e *Engine) Insert(indexPath, record string) (Record, error) {
	t, h, err := e.load(indexPath)
	if err != nil {
		return Record{}, err
	}
	key := keycodec.Normalize(record, t.KeyWidth())
	if _, err := t.Get(key); err == nil {
		return Record{}, errors.Wrapf(index.ErrDuplicateKey, "lineindex: %q", key)
	} else if !errors.Is(err, index.ErrKeyNotFound) {
		return Record{}, err
	}

	offset, length, err := recordstore.Append(h.DataPath, record)
	if err != nil {
		return Record{}, err
	}
	if err := t.Insert(key, offset, length); err != nil {
		return Record{}, err
	}
	if err := e.store(indexPath, h, t); err != nil {
		return Record{}, err
	}
	e.log.Info("record inserted", zap.String("key", key), zap.Uint64("offset", offset))
	return Record{Entry: index.Entry{Key: key, Offset: offset, Length: length}, Text: record}, nil
}

// List returns up to count records starting at key, or at the next greater
// key when key is absent. The bool reports whether key itself was found.
func (e *Engine) List(indexPath, key string, count int) ([]Record, bool, error) {
	t, h, err := e.load(indexPath)
	if err != nil {
		return nil, false, err
	}
	entries, found := t.List(key, count)
	if len(entries) == 0 {
		return nil, found, nil
	}
	data, err := recordstore.OpenReadOnly(h.DataPath)
	if err != nil {
		return nil, false, err
	}
	defer data.Close()

	out := make([]Record, 0, len(entries))
	for _, ent := range entries {
		text, err := data.Read(ent.Offset, ent.Length)
		if err != nil {
			return nil, false, err
		}
		out = append(out, Record{Entry: ent, Text: text})
	}
	return out, found, nil
}

// Stats describes the tree stored in indexPath.
func (e *Engine) Stats(indexPath string) (bptree.Stats, indexfile.Header, error) {
	t, h, err := e.load(indexPath)
	if err != nil {
		return bptree.Stats{}, indexfile.Header{}, err
	}
	return t.Stats(), h, nil
}

// Dot writes the tree in indexPath as a Graphviz digraph.
func (e *Engine) Dot(indexPath string, w io.Writer) error {
	t, _, err := e.load(indexPath)
	if err != nil {
		return err
	}
	return t.WriteDOT(w)
}

// Load returns the tree stored in indexPath.
func (e *Engine) Load(indexPath string) (*bptree.Tree, indexfile.Header, error) {
	return e.load(indexPath)
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func (e *Engine) load(path string) (*bptree.Tree, indexfile.Header, error) {
	t, h, err := indexfile.Load(path, bptree.WithLogger(e.log))
	if err != nil {
		return nil, indexfile.Header{}, err
	}
	e.log.Debug("index loaded", zap.String("path", path), zap.Int("entries", t.Len()))
	return t, h, nil
}

func (e *Engine) store(path string, h indexfile.Header, t *bptree.Tree) error {
	if err := indexfile.Store(path, h, t, &indexfile.Options{Compression: e.opts.Compression}); err != nil {
		return err
	}
	e.log.Debug("index stored", zap.String("path", path), zap.Int("entries", t.Len()))
	return nil
}

// checkReplaced logs when Create is about to overwrite an index that
// belongs to another data file or cannot be read as an index at all.
func (e *Engine) checkReplaced(indexPath, dataPath string) {
	prev, err := indexfile.ReadHeader(indexPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		e.log.Warn("overwriting unreadable index file", zap.String("index", indexPath), zap.Error(err))
	case prev.DataPath != dataPath:
		e.log.Warn("overwriting index of another data file",
			zap.String("index", indexPath),
			zap.String("previous", prev.DataPath),
			zap.String("data", dataPath))
	}
}

func readRecord(dataPath string, ent index.Entry) (Record, error) {
	text, err := recordstore.Read(dataPath, ent.Offset, ent.Length)
	if err != nil {
		return Record{}, err
	}
	return Record{Entry: ent, Text: text}, nil
}
