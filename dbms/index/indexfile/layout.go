// Package indexfile reads and writes line index files.
//
// File layout:
//
//	[0-256]     257 bytes  data file path, space padded
//	[257-259]     3 bytes  key width as decimal text, space padded
//	[260-1023]  764 bytes  root hint, informational only, space padded
//	[1024-EOF)             body: tree | compression (1 byte) | xxhash64 (8 bytes) | magic (8 bytes)
//
// The checksum covers the stored tree bytes and the compression byte.
package indexfile

import (
	"strconv"
	"strings"

	"github.com/btree-query-bench/lineindex/dbms/index"
	"github.com/btree-query-bench/lineindex/dbms/index/keycodec"
	"github.com/cockroachdb/errors"
)

const (
	OffPath     = 0
	PathSize    = 257
	OffKeyWidth = 257
	KeyWidthLen = 3
	OffRootHint = 260
	RootHintLen = BodyOffset - OffRootHint

	// BodyOffset is where the serialized tree starts.
	BodyOffset = 1024
)

// Block is the fixed-size header region of an index file.
type Block [BodyOffset]byte

// Header holds the metadata fields of an index file.
type Header struct {
	DataPath string
	KeyWidth int
	RootHint string
}

func InitBlock(b *Block) {
	for i := range b {
		b[i] = ' '
	}
}

func field(b *Block, off, n int) string {
	return strings.Trim(string(b[off:off+n]), " \x00")
}

func setField(b *Block, off, n int, s string) {
	dst := b[off : off+n]
	for i := range dst {
		dst[i] = ' '
	}
	copy(dst, s)
}

func DataPath(b *Block) string {
	return field(b, OffPath, PathSize)
}

func SetDataPath(b *Block, path string) error {
	if len(path) > PathSize {
		return errors.Newf("indexfile: data file path is %d bytes, at most %d fit", len(path), PathSize)
	}
	setField(b, OffPath, PathSize, path)
	return nil
}

func KeyWidth(b *Block) (int, error) {
	text := field(b, OffKeyWidth, KeyWidthLen)
	w, err := strconv.Atoi(text)
	if err != nil || !keycodec.ValidWidth(w) {
		return 0, index.Malformed("indexfile: bad key width %q", text)
	}
	return w, nil
}

func SetKeyWidth(b *Block, w int) error {
	if !keycodec.ValidWidth(w) {
		return errors.Newf("indexfile: key width %d outside 1..%d", w, keycodec.MaxWidth)
	}
	setField(b, OffKeyWidth, KeyWidthLen, strconv.Itoa(w))
	return nil
}

func RootHint(b *Block) string {
	return field(b, OffRootHint, RootHintLen)
}

// SetRootHint stores hint, truncated to the space available.
func SetRootHint(b *Block, hint string) {
	if len(hint) > RootHintLen {
		hint = hint[:RootHintLen]
	}
	setField(b, OffRootHint, RootHintLen, hint)
}

// Encode fills a block from h.
func (h Header) Encode() (*Block, error) {
	b := new(Block)
	InitBlock(b)
	if err := SetDataPath(b, h.DataPath); err != nil {
		return nil, err
	}
	if err := SetKeyWidth(b, h.KeyWidth); err != nil {
		return nil, err
	}
	SetRootHint(b, h.RootHint)
	return b, nil
}

// DecodeHeader parses a header block.
func DecodeHeader(b *Block) (Header, error) {
	w, err := KeyWidth(b)
	if err != nil {
		return Header{}, err
	}
	h := Header{DataPath: DataPath(b), KeyWidth: w, RootHint: RootHint(b)}
	if h.DataPath == "" {
		return Header{}, index.Malformed("indexfile: empty data file path")
	}
	return h, nil
}
