package indexfile_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/btree-query-bench/lineindex/dbms/index"
	"github.com/btree-query-bench/lineindex/dbms/index/bptree"
	"github.com/btree-query-bench/lineindex/dbms/index/indexfile"
	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func seedTree(n int) *bptree.Tree {
	t := bptree.New(8, bptree.WithCapacity(6))
	for i := 0; i < n; i++ {
		Expect(t.Insert(fmt.Sprintf("key%05d", i*3), uint64(i*12), 10)).To(Succeed())
	}
	return t
}

var _ = Describe("Store/Load", func() {
	var dir, path string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "indexfile")
		Expect(err).NotTo(HaveOccurred())
		path = filepath.Join(dir, "people.idx")
	})

	AfterEach(func() {
		Expect(os.RemoveAll(dir)).To(Succeed())
	})

	for _, c := range []indexfile.Compression{indexfile.SnappyCompression, indexfile.NoCompression} {
		c := c
		It(fmt.Sprintf("should round-trip a tree (compression %d)", c), func() {
			tree := seedTree(500)
			Expect(indexfile.Store(path, indexfile.Header{DataPath: "people.txt"}, tree, &indexfile.Options{Compression: c})).To(Succeed())

			got, h, err := indexfile.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(h.DataPath).To(Equal("people.txt"))
			Expect(h.KeyWidth).To(Equal(8))
			Expect(h.RootHint).To(Equal(strings.TrimSpace(tree.RootHint())))
			Expect(got.Len()).To(Equal(500))
			Expect(got.Capacity()).To(Equal(6))
			Expect(got.Check()).To(Succeed())

			e, err := got.Get("key00300")
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Offset).To(Equal(uint64(1200)))
		})
	}

	It("should start the body at byte 1024", func() {
		Expect(indexfile.Store(path, indexfile.Header{DataPath: "d"}, seedTree(3), &indexfile.Options{Compression: indexfile.NoCompression})).To(Succeed())
		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(len(data)).To(BeNumerically(">", indexfile.BodyOffset))
		// body version 1, capacity 6
		Expect(data[indexfile.BodyOffset : indexfile.BodyOffset+2]).To(Equal([]byte{1, 6}))
	})

	It("should compress compressible bodies", func() {
		tree := bptree.New(64)
		for i := 0; i < 2000; i++ {
			Expect(tree.Insert(fmt.Sprintf("k%04d", i), uint64(i), 1)).To(Succeed())
		}
		Expect(indexfile.Store(path, indexfile.Header{DataPath: "d"}, tree, nil)).To(Succeed())
		snappySize := fileSize(path)

		Expect(indexfile.Store(path, indexfile.Header{DataPath: "d"}, tree, &indexfile.Options{Compression: indexfile.NoCompression})).To(Succeed())
		Expect(fileSize(path)).To(BeNumerically(">", snappySize))

		Expect(indexfile.Store(path, indexfile.Header{DataPath: "d"}, tree, &indexfile.Options{Compression: 7})).To(Succeed())
		Expect(fileSize(path)).To(Equal(snappySize))
	})

	It("should parse compression names", func() {
		for name, want := range map[string]indexfile.Compression{
			"":       indexfile.SnappyCompression,
			"snappy": indexfile.SnappyCompression,
			"none":   indexfile.NoCompression,
		} {
			Expect(indexfile.ParseCompression(name)).To(Equal(want))
		}
		_, err := indexfile.ParseCompression("zstd")
		Expect(err).To(MatchError(`indexfile: unknown compression "zstd"`))
	})

	It("should truncate previous content", func() {
		Expect(indexfile.Store(path, indexfile.Header{DataPath: "d"}, seedTree(1000), nil)).To(Succeed())
		big := fileSize(path)
		Expect(indexfile.Store(path, indexfile.Header{DataPath: "d"}, seedTree(2), nil)).To(Succeed())
		Expect(fileSize(path)).To(BeNumerically("<", big))

		got, _, err := indexfile.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Len()).To(Equal(2))
	})

	It("should store and load an empty tree", func() {
		Expect(indexfile.Store(path, indexfile.Header{DataPath: "d"}, bptree.New(4), nil)).To(Succeed())
		got, h, err := indexfile.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Len()).To(Equal(0))
		Expect(h.RootHint).To(BeEmpty())
	})

	It("should read the header alone", func() {
		tree := seedTree(10)
		Expect(indexfile.Store(path, indexfile.Header{DataPath: "people.txt"}, tree, nil)).To(Succeed())
		h, err := indexfile.ReadHeader(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(h.KeyWidth).To(Equal(8))
		Expect(h.RootHint).To(Equal(strings.TrimSpace(tree.RootHint())))
	})

	Describe("failures", func() {
		BeforeEach(func() {
			Expect(indexfile.Store(path, indexfile.Header{DataPath: "d"}, seedTree(50), nil)).To(Succeed())
		})

		corrupt := func(fn func([]byte) []byte) {
			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(os.WriteFile(path, fn(data), 0644)).To(Succeed())
		}

		expectMalformed := func() {
			_, _, err := indexfile.Load(path)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, index.ErrMalformedIndex)).To(BeTrue(), "got %v", err)
			Expect(errors.Is(err, index.ErrIO)).To(BeFalse())
		}

		It("should report missing files as I/O errors", func() {
			_, _, err := indexfile.Load(filepath.Join(dir, "missing.idx"))
			Expect(errors.Is(err, index.ErrIO)).To(BeTrue())
			Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())

			_, err = indexfile.ReadHeader(filepath.Join(dir, "missing.idx"))
			Expect(errors.Is(err, index.ErrIO)).To(BeTrue())
		})

		It("should reject short files", func() {
			corrupt(func(b []byte) []byte { return b[:500] })
			expectMalformed()
			_, err := indexfile.ReadHeader(path)
			Expect(errors.Is(err, index.ErrMalformedIndex)).To(BeTrue())
		})

		It("should reject a missing trailer", func() {
			corrupt(func(b []byte) []byte { return b[:indexfile.BodyOffset+4] })
			expectMalformed()
		})

		It("should reject bad magic", func() {
			corrupt(func(b []byte) []byte { b[len(b)-1] ^= 0xff; return b })
			expectMalformed()
		})

		It("should reject checksum mismatches", func() {
			corrupt(func(b []byte) []byte { b[indexfile.BodyOffset+3] ^= 0x01; return b })
			expectMalformed()
		})

		It("should reject a bad key width", func() {
			corrupt(func(b []byte) []byte { copy(b[257:], "abc"); return b })
			expectMalformed()
		})
	})
})

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	Expect(err).NotTo(HaveOccurred())
	return fi.Size()
}
