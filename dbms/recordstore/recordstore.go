// Package recordstore reads and appends records of a line-oriented data file.
//
// Records are separated by "\r\n". An index entry addresses a record by the
// byte offset of its first character and its length without the terminator.
package recordstore

import (
	"io"
	"math"
	"os"
	"strings"

	"github.com/btree-query-bench/lineindex/dbms/index"
	"github.com/cockroachdb/errors"
)

// Separator precedes every appended record except the first one in a file.
const Separator = "\r\n"

// File is an open data file. Reads go through a small page cache.
type File struct {
	file  *os.File
	size  int64
	cache *lruCache
}

// Open opens (or creates) the data file at path for reading and appending.
func Open(path string) (*File, error) {
	return open(path, os.O_RDWR|os.O_CREATE)
}

// OpenReadOnly opens an existing data file for reading.
func OpenReadOnly(path string) (*File, error) {
	return open(path, os.O_RDONLY)
}

func open(path string, flag int) (*File, error) {
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return nil, index.IOError(err, "recordstore: open")
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, index.IOError(err, "recordstore: stat")
	}
	return &File{file: f, size: info.Size(), cache: newLRUCache(DefaultCachePages)}, nil
}

// Close closes the underlying file.
func (f *File) Close() error {
	return index.IOError(f.file.Close(), "recordstore: close")
}

// Size returns the current length of the file in bytes.
func (f *File) Size() int64 {
	return f.size
}

// Append writes record at the end of the file and returns where it starts.
func (f *File) Append(record string) (uint64, uint32, error) {
	if strings.ContainsAny(record, "\r\n") {
		return 0, 0, errors.Newf("recordstore: record %q contains a line break", record)
	}
	if uint64(len(record)) > math.MaxUint32 {
		return 0, 0, errors.Newf("recordstore: record of %d bytes is too long", len(record))
	}

	buf := make([]byte, 0, len(Separator)+len(record))
	if f.size > 0 {
		buf = append(buf, Separator...)
	}
	buf = append(buf, record...)

	if _, err := f.file.WriteAt(buf, f.size); err != nil {
		return 0, 0, index.IOError(err, "recordstore: append")
	}
	for id := uint64(f.size) / PageSize; id <= uint64(f.size+int64(len(buf)))/PageSize; id++ {
		f.cache.drop(id)
	}
	offset := uint64(f.size) + uint64(len(buf)-len(record))
	f.size += int64(len(buf))
	return offset, uint32(len(record)), nil
}

// Read returns the record of the given length starting at offset. One byte
// past the record is read along with it and any trailing line terminator is
// dropped. A record running past end of file is an I/O error.
func (f *File) Read(offset uint64, length uint32) (string, error) {
	if offset > math.MaxInt64 {
		return "", index.IOError(io.ErrUnexpectedEOF, "recordstore: offset out of range")
	}
	buf := make([]byte, int(length)+1)
	n, err := f.readAt(buf, int64(offset))
	if err != nil {
		return "", err
	}
	if n < int(length) {
		return "", index.IOError(errors.Wrapf(io.ErrUnexpectedEOF, "%d of %d bytes at %d", n, length, offset), "recordstore: read")
	}
	rec := strings.TrimRight(string(buf[:n]), "\r\n")
	if len(rec) > int(length) {
		rec = rec[:length]
	}
	return rec, nil
}

// ─── One-shot helpers ─────────────────────────────────────────────────────────

// Append opens path, appends record and closes it again.
func Append(path, record string) (uint64, uint32, error) {
	f, err := Open(path)
	if err != nil {
		return 0, 0, err
	}
	offset, length, err := f.Append(record)
	if err != nil {
		f.Close()
		return 0, 0, err
	}
	return offset, length, f.Close()
}

// Read opens path read-only and returns one record.
func Read(path string, offset uint64, length uint32) (string, error) {
	f, err := OpenReadOnly(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return f.Read(offset, length)
}
