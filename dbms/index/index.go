package index

// Entry locates one record of the data file. Key is the record's fixed-width
// key prefix, Offset its first byte and Length its length without terminator.
type Entry struct {
	Key    string
	Offset uint64
	Length uint32
}

// Index is the common interface for the B+ tree and the reference index.
type Index interface {
	Insert(key string, offset uint64, length uint32) error
	Get(key string) (Entry, error)
	// Seek positions an iterator on key, or on the first greater key when key
	// is absent. The bool reports whether key itself was found.
	Seek(key string) (Iterator, bool, error)
	Close() error
}

// Iterator walks entries in ascending key order.
type Iterator interface {
	Next() bool
	Entry() Entry
	Error() error
	Close() error
}
