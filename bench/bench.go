// Package bench replays a random read workload against a loaded line index,
// a Pebble reference and a sorted list holding the same entries. Every answer
// of the B+ tree is checked against both, and the latency of all three is
// recorded.
package bench

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/btree-query-bench/lineindex/dbms/index"
	"github.com/btree-query-bench/lineindex/dbms/index/bptree"
	"github.com/btree-query-bench/lineindex/dbms/index/listindex"
	"github.com/btree-query-bench/lineindex/dbms/index/lsm"
	"github.com/btree-query-bench/lineindex/settings"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// ErrMismatch is returned when the two indexes answer a query differently.
var ErrMismatch = errors.New("bench: indexes disagree")

const (
	TreeIndex      = "bptree"
	ReferenceIndex = "pebble"
	ListIndex      = "listindex"

	loadBatch = 10000
)

// Result is one measured phase.
type Result struct {
	Index     string
	Config    string
	Operation Operation
	Ops       int
	LatencyNs int64
	MemMB     uint64
	Objects   uint64
}

type Report struct {
	Entries    int
	KeyWidth   int
	Results    []Result
	Mismatches int
}

// Run mirrors tree into Pebble and a sorted list and runs the configured
// workload against all three.
// The tree must not be mutated while Run is in progress.
func Run(ctx context.Context, tree *bptree.Tree, cfg settings.Bench, log *zap.Logger) (Report, error) {
	if log == nil {
		log = zap.NewNop()
	}
	rep := Report{Entries: tree.Len(), KeyWidth: tree.KeyWidth()}
	treeConf := "capacity=" + itoa(tree.Capacity())

	dir := cfg.Dir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "lineindex-bench")
		if err != nil {
			return rep, index.IOError(err, "bench: temp dir")
		}
		defer os.RemoveAll(tmp)
		dir = tmp
	}
	ref, err := lsm.Open(filepath.Join(dir, "reference"), tree.KeyWidth(), lsm.WithLogger(log))
	if err != nil {
		return rep, err
	}
	defer ref.Close()

	entries := make([]index.Entry, 0, tree.Len())
	tree.Scan(func(e index.Entry) bool {
		entries = append(entries, e)
		return true
	})
	start := time.Now()
	for chunk := range slices.Chunk(entries, loadBatch) {
		if err := ref.Load(chunk); err != nil {
			return rep, err
		}
	}
	rep.add(ReferenceIndex, "", OpLoad, len(entries), time.Since(start))
	log.Info("reference index loaded", zap.Int("entries", len(entries)), zap.Uint64("disk_bytes", ref.DiskUsage()))

	list := listindex.NewListIndex(tree.KeyWidth())
	start = time.Now()
	for _, e := range entries {
		if err := list.Insert(e.Key, e.Offset, e.Length); err != nil {
			return rep, errors.Wrap(err, "bench: list load")
		}
	}
	rep.add(ListIndex, "", OpLoad, len(entries), time.Since(start))

	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	w := newWorkload(keys, tree.KeyWidth(), cfg)

	targets := []struct {
		name string
		conf string
		idx  index.Index
	}{
		{TreeIndex, treeConf, tree},
		{ReferenceIndex, "", ref},
		{ListIndex, "", list},
	}
	gets := make([][]getResult, len(targets))
	seeks := make([][]seekResult, len(targets))
	for i, tgt := range targets {
		var elapsed time.Duration
		gets[i], elapsed, err = w.runGets(ctx, tgt.idx, cfg.Workers)
		if err != nil {
			return rep, errors.Wrapf(err, "bench: %s get", tgt.name)
		}
		rep.add(tgt.name, tgt.conf, OpGet, len(w.gets), elapsed)

		seeks[i], elapsed, err = w.runSeeks(ctx, tgt.idx, cfg.Workers)
		if err != nil {
			return rep, errors.Wrapf(err, "bench: %s seek", tgt.name)
		}
		rep.add(tgt.name, tgt.conf, OpSeek, len(w.seeks), elapsed)
		log.Info("workload finished", zap.String("index", tgt.name))
	}

	for j := 1; j < len(targets); j++ {
		other := targets[j].name
		for i := range w.gets {
			if gets[0][i] != gets[j][i] {
				rep.Mismatches++
				log.Warn("get mismatch", zap.String("key", w.gets[i]), zap.String("against", other),
					zap.Any(TreeIndex, gets[0][i].entry), zap.Any(other, gets[j][i].entry))
			}
		}
		for i := range w.seeks {
			a, b := seeks[0][i], seeks[j][i]
			if a.found != b.found || !slices.Equal(a.entries, b.entries) {
				rep.Mismatches++
				log.Warn("seek mismatch", zap.String("key", w.seeks[i]), zap.String("against", other),
					zap.Int(TreeIndex, len(a.entries)), zap.Int(other, len(b.entries)))
			}
		}
	}
	if rep.Mismatches > 0 {
		return rep, errors.Wrapf(ErrMismatch, "%d of %d comparisons", rep.Mismatches, (len(targets)-1)*(len(w.gets)+len(w.seeks)))
	}
	return rep, nil
}

func (r *Report) add(name, conf string, op Operation, n int, elapsed time.Duration) {
	mem := DetailedMem()
	r.Results = append(r.Results, Result{
		Index:     name,
		Config:    conf,
		Operation: op,
		Ops:       n,
		LatencyNs: perOp(elapsed, n),
		MemMB:     mem.AllocMB,
		Objects:   mem.HeapObjects,
	})
}

func perOp(elapsed time.Duration, n int) int64 {
	if n == 0 {
		return 0
	}
	return elapsed.Nanoseconds() / int64(n)
}
