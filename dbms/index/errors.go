package index

import "github.com/cockroachdb/errors"

var (
	// ErrDuplicateKey is returned when the normalized key is already indexed.
	// The index is left untouched.
	ErrDuplicateKey = errors.New("index: duplicate key")

	// ErrKeyNotFound is returned by point lookups that miss.
	ErrKeyNotFound = errors.New("index: key not found")

	// ErrMalformedIndex is returned when an index file header or body
	// cannot be parsed.
	ErrMalformedIndex = errors.New("index: malformed index file")

	// ErrIO marks failures of the underlying file primitives.
	ErrIO = errors.New("index: i/o error")
)

// IOError wraps err with msg and marks it as ErrIO. A nil err stays nil.
func IOError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrap(err, msg), ErrIO)
}

// Malformed builds an ErrMalformedIndex error with a formatted reason.
func Malformed(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrMalformedIndex)
}
