package recordstore

import (
	"io"
	"os"

	"github.com/btree-query-bench/lineindex/dbms/index"
	"github.com/cockroachdb/errors"
)

const (
	PageSize = 4096 // 4 KB, matches OS page size

	// DefaultCachePages is the number of pages a File keeps cached.
	DefaultCachePages = 64
)

// page is a block of the data file. The last page of a file may be short.
type page []byte

// readAt fills p from the file through the page cache and returns the number
// of bytes read; fewer than len(p) means end of file.
func (f *File) readAt(p []byte, off int64) (int, error) {
	n := 0
	for n < len(p) {
		id := uint64(off+int64(n)) / PageSize
		pg, err := f.page(id)
		if err != nil {
			return n, err
		}
		start := int(uint64(off+int64(n)) - id*PageSize)
		if start >= len(pg) {
			return n, nil
		}
		n += copy(p[n:], pg[start:])
		if len(pg) < PageSize {
			return n, nil
		}
	}
	return n, nil
}

func (f *File) page(id uint64) (page, error) {
	if pg := f.cache.get(id); pg != nil {
		return pg, nil
	}
	pg, err := readPageFromDisk(f.file, id)
	if err != nil {
		return nil, err
	}
	f.cache.put(id, pg)
	return pg, nil
}

func readPageFromDisk(file *os.File, id uint64) (page, error) {
	pg := make(page, PageSize)
	n, err := file.ReadAt(pg, int64(id*PageSize))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, index.IOError(err, "recordstore: read page")
	}
	return pg[:n], nil
}

// ─── LRU Cache ────────────────────────────────────────────────────────────────

type lruEntry struct {
	id   uint64
	page page
	prev *lruEntry
	next *lruEntry
}

type lruCache struct {
	cap   int
	items map[uint64]*lruEntry
	head  *lruEntry // most recent
	tail  *lruEntry // least recent
}

func newLRUCache(cap int) *lruCache {
	if cap < 1 {
		cap = 1
	}
	return &lruCache{
		cap:   cap,
		items: make(map[uint64]*lruEntry, cap),
	}
}

func (c *lruCache) get(id uint64) page {
	e, ok := c.items[id]
	if !ok {
		return nil
	}
	c.moveToFront(e)
	return e.page
}

func (c *lruCache) put(id uint64, pg page) {
	if e, ok := c.items[id]; ok {
		e.page = pg
		c.moveToFront(e)
		return
	}
	e := &lruEntry{id: id, page: pg}
	c.items[id] = e
	c.pushFront(e)
	if len(c.items) > c.cap {
		c.remove(c.tail)
	}
}

// drop forgets page id, if cached.
func (c *lruCache) drop(id uint64) {
	if e, ok := c.items[id]; ok {
		c.remove(e)
	}
}

func (c *lruCache) len() int { return len(c.items) }

func (c *lruCache) pushFront(e *lruEntry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) unlink(e *lruEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (c *lruCache) moveToFront(e *lruEntry) {
	if c.head == e {
		return
	}
	c.unlink(e)
	c.pushFront(e)
}

func (c *lruCache) remove(e *lruEntry) {
	if e == nil {
		return
	}
	c.unlink(e)
	delete(c.items, e.id)
}
