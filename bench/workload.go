package bench

import (
	"context"
	"math/rand"
	"time"

	"github.com/btree-query-bench/lineindex/dbms/index"
	"github.com/btree-query-bench/lineindex/settings"
	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

type Operation string

const (
	OpLoad Operation = "load"
	OpGet  Operation = "get"
	OpSeek Operation = "seek"
)

// workload is the fixed sequence of keys every index is queried with.
type workload struct {
	gets      []string
	seeks     []string
	seekCount int
}

// newWorkload draws lookup keys from the indexed keys. MissRatio percent of
// them are random strings that are most likely absent.
func newWorkload(keys []string, keyWidth int, cfg settings.Bench) *workload {
	rng := rand.New(rand.NewSource(cfg.Seed))
	pick := func() string {
		if len(keys) == 0 || rng.Intn(100) < cfg.MissRatio {
			return randomKey(rng, keyWidth)
		}
		return keys[rng.Intn(len(keys))]
	}

	w := &workload{
		gets:      make([]string, cfg.Ops),
		seeks:     make([]string, cfg.Seeks),
		seekCount: cfg.SeekCount,
	}
	for i := range w.gets {
		w.gets[i] = pick()
	}
	for i := range w.seeks {
		w.seeks[i] = pick()
	}
	return w
}

func randomKey(rng *rand.Rand, width int) string {
	b := make([]byte, width)
	for i := range b {
		b[i] = byte('a' + rng.Intn(26))
	}
	return string(b)
}

type getResult struct {
	entry index.Entry
	found bool
}

type seekResult struct {
	entries []index.Entry
	found   bool
}

func (w *workload) runGets(ctx context.Context, idx index.Index, workers int) ([]getResult, time.Duration, error) {
	out := make([]getResult, len(w.gets))
	elapsed, err := parallel(ctx, workers, len(w.gets), func(i int) error {
		e, err := idx.Get(w.gets[i])
		switch {
		case err == nil:
			out[i] = getResult{entry: e, found: true}
		case errors.Is(err, index.ErrKeyNotFound):
		default:
			return err
		}
		return nil
	})
	return out, elapsed, err
}

func (w *workload) runSeeks(ctx context.Context, idx index.Index, workers int) ([]seekResult, time.Duration, error) {
	out := make([]seekResult, len(w.seeks))
	elapsed, err := parallel(ctx, workers, len(w.seeks), func(i int) error {
		it, found, err := idx.Seek(w.seeks[i])
		if err != nil {
			return err
		}
		res := seekResult{found: found, entries: make([]index.Entry, 0, w.seekCount)}
		for len(res.entries) < w.seekCount && it.Next() {
			res.entries = append(res.entries, it.Entry())
		}
		if err := it.Error(); err != nil {
			it.Close()
			return err
		}
		out[i] = res
		return it.Close()
	})
	return out, elapsed, err
}

// parallel runs fn for 0..n-1 spread over workers goroutines and returns the
// wall time taken.
func parallel(ctx context.Context, workers, n int, fn func(i int) error) (time.Duration, error) {
	if workers < 1 {
		workers = 1
	}
	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for j, i := 0, w; i < n; j, i = j+1, i+workers {
				if j%256 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				if err := fn(i); err != nil {
					return err
				}
			}
			return nil
		})
	}
	err := g.Wait()
	return time.Since(start), err
}
