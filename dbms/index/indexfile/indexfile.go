package indexfile

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/btree-query-bench/lineindex/dbms/index"
	"github.com/btree-query-bench/lineindex/dbms/index/bptree"
	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/golang/snappy"
)

var magic = []byte{0x4c, 0x49, 0x44, 0x58, 0x9a, 0x17, 0x2e, 0xc5}

const (
	blockNoCompression     = 0
	blockSnappyCompression = 1

	trailerLen = 1 + 8 + 8
)

// Compression is the codec applied to the tree body.
type Compression byte

const (
	SnappyCompression Compression = iota
	NoCompression
)

// ParseCompression maps a config name to a codec.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "snappy":
		return SnappyCompression, nil
	case "none":
		return NoCompression, nil
	}
	return SnappyCompression, errors.Newf("indexfile: unknown compression %q", name)
}

// Options configure Store. A nil *Options or an unknown codec means snappy.
type Options struct {
	Compression Compression
}

func (o *Options) compression() Compression {
	if o == nil || o.Compression != NoCompression {
		return SnappyCompression
	}
	return NoCompression
}

// ─── Read ─────────────────────────────────────────────────────────────────────

// ReadHeader reads only the metadata header of an index file.
func ReadHeader(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, index.IOError(err, "indexfile: open")
	}
	defer f.Close()

	b := new(Block)
	if _, err := io.ReadFull(f, b[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Header{}, index.Malformed("indexfile: %s is shorter than its header", path)
		}
		return Header{}, index.IOError(err, "indexfile: read header")
	}
	return DecodeHeader(b)
}

// Load reads an index file and rebuilds its tree.
func Load(path string, opts ...bptree.Option) (*bptree.Tree, Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Header{}, index.IOError(err, "indexfile: read")
	}
	if len(data) < BodyOffset {
		return nil, Header{}, index.Malformed("indexfile: %s is shorter than its header", path)
	}

	h, err := DecodeHeader((*Block)(data[:BodyOffset]))
	if err != nil {
		return nil, Header{}, err
	}
	payload, err := decodeBody(data[BodyOffset:])
	if err != nil {
		return nil, Header{}, err
	}
	t, err := bptree.Unmarshal(payload, h.KeyWidth, opts...)
	if err != nil {
		return nil, Header{}, err
	}
	return t, h, nil
}

// ─── Write ────────────────────────────────────────────────────────────────────

// Store truncates path and writes the header followed by the whole tree.
// The root hint and key width are taken from the tree.
func Store(path string, h Header, t *bptree.Tree, o *Options) error {
	h.KeyWidth = t.KeyWidth()
	h.RootHint = t.RootHint()
	b, err := h.Encode()
	if err != nil {
		return err
	}
	payload, err := t.MarshalBinary()
	if err != nil {
		return err
	}
	body := encodeBody(payload, o.compression())

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return index.IOError(err, "indexfile: create")
	}
	if _, err := f.Write(b[:]); err != nil {
		f.Close()
		return index.IOError(err, "indexfile: write header")
	}
	if _, err := f.Write(body); err != nil {
		f.Close()
		return index.IOError(err, "indexfile: write body")
	}
	return index.IOError(f.Close(), "indexfile: close")
}

// ─── Body framing ─────────────────────────────────────────────────────────────

func encodeBody(payload []byte, c Compression) []byte {
	var block []byte
	if c == SnappyCompression {
		if snp := snappy.Encode(nil, payload); len(snp) < len(payload)-len(payload)/4 {
			block = append(snp, blockSnappyCompression)
		}
	}
	if block == nil {
		block = append(append(make([]byte, 0, len(payload)+trailerLen), payload...), blockNoCompression)
	}
	block = binary.LittleEndian.AppendUint64(block, xxhash.Sum64(block))
	return append(block, magic...)
}

func decodeBody(body []byte) ([]byte, error) {
	if len(body) < trailerLen {
		return nil, index.Malformed("indexfile: body of %d bytes has no trailer", len(body))
	}
	n := len(body)
	if string(body[n-8:]) != string(magic) {
		return nil, index.Malformed("indexfile: bad magic byte sequence")
	}
	block := body[:n-16]
	if sum := binary.LittleEndian.Uint64(body[n-16 : n-8]); sum != xxhash.Sum64(block) {
		return nil, index.Malformed("indexfile: body checksum mismatch")
	}

	stored := block[:len(block)-1]
	switch block[len(block)-1] {
	case blockNoCompression:
		return stored, nil
	case blockSnappyCompression:
		payload, err := snappy.Decode(nil, stored)
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "indexfile: snappy"), index.ErrMalformedIndex)
		}
		return payload, nil
	}
	return nil, index.Malformed("indexfile: bad compression codec %d", block[len(block)-1])
}
