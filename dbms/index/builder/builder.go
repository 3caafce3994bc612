// Package builder creates a line index from an existing data file.
package builder

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/btree-query-bench/lineindex/dbms/index"
	"github.com/btree-query-bench/lineindex/dbms/index/bptree"
	"github.com/btree-query-bench/lineindex/dbms/index/keycodec"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// lineTerminator is the width every line is assumed to be followed by.
const lineTerminator = 2

// Options configure Build.
type Options struct {
	// Capacity overrides the node capacity derived from the key width.
	Capacity int
	Logger   *zap.Logger
	// OnDuplicate, if set, is called for every skipped line.
	OnDuplicate func(line int, key string)
}

// Report summarizes a build.
type Report struct {
	Lines      int
	Indexed    int
	Duplicates int
	Bytes      uint64
}

// Build reads path line by line and indexes the first keyWidth characters
// of every line. Lines whose key is already indexed are skipped.
func Build(path string, keyWidth int, o *Options) (*bptree.Tree, Report, error) {
	if !keycodec.ValidWidth(keyWidth) {
		return nil, Report{}, errors.Newf("builder: key width %d outside 1..%d", keyWidth, keycodec.MaxWidth)
	}
	if o == nil {
		o = &Options{}
	}
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, Report{}, index.IOError(err, "builder: open")
	}
	defer f.Close()

	opts := []bptree.Option{bptree.WithLogger(log)}
	if o.Capacity > 0 {
		opts = append(opts, bptree.WithCapacity(o.Capacity))
	}
	t := bptree.New(keyWidth, opts...)

	var (
		rep    Report
		offset uint64
		r      = bufio.NewReaderSize(f, 64<<10)
	)
	for {
		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, Report{}, index.IOError(err, "builder: read")
		}
		eof := err != nil
		if eof && line == "" {
			break
		}
		line = strings.TrimRight(line, "\r\n")
		rep.Lines++

		key := keycodec.Normalize(line, keyWidth)
		switch ierr := t.Insert(key, offset, uint32(len(line))); {
		case ierr == nil:
			rep.Indexed++
		case errors.Is(ierr, index.ErrDuplicateKey):
			rep.Duplicates++
			log.Warn("duplicate key skipped", zap.Int("line", rep.Lines), zap.String("key", key))
			if o.OnDuplicate != nil {
				o.OnDuplicate(rep.Lines, key)
			}
		default:
			return nil, Report{}, ierr
		}
		offset += uint64(len(line)) + lineTerminator
		if eof {
			break
		}
	}
	rep.Bytes = offset

	log.Debug("index built",
		zap.String("path", path),
		zap.Int("lines", rep.Lines),
		zap.Int("duplicates", rep.Duplicates),
		zap.Int("height", t.Stats().Height))
	return t, rep, nil
}
