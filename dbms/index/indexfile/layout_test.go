package indexfile_test

import (
	"strings"

	"github.com/btree-query-bench/lineindex/dbms/index"
	"github.com/btree-query-bench/lineindex/dbms/index/indexfile"
	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Header", func() {
	It("should place fields at fixed offsets", func() {
		b, err := indexfile.Header{DataPath: "data/people.txt", KeyWidth: 15, RootHint: " alice"}.Encode()
		Expect(err).NotTo(HaveOccurred())

		Expect(string(b[0:15])).To(Equal("data/people.txt"))
		Expect(b[15]).To(Equal(byte(' ')))
		Expect(string(b[257:260])).To(Equal("15 "))
		Expect(string(b[260:266])).To(Equal(" alice"))
		Expect(b[1023]).To(Equal(byte(' ')))
	})

	It("should decode what it encodes", func() {
		h := indexfile.Header{DataPath: "/tmp/x.txt", KeyWidth: 999, RootHint: " zzz"}
		b, err := h.Encode()
		Expect(err).NotTo(HaveOccurred())
		Expect(indexfile.DecodeHeader(b)).To(Equal(indexfile.Header{DataPath: "/tmp/x.txt", KeyWidth: 999, RootHint: "zzz"}))
	})

	It("should accept NUL padded fields", func() {
		b := new(indexfile.Block)
		copy(b[0:], "in.txt")
		copy(b[257:], "7")
		h, err := indexfile.DecodeHeader(b)
		Expect(err).NotTo(HaveOccurred())
		Expect(h.DataPath).To(Equal("in.txt"))
		Expect(h.KeyWidth).To(Equal(7))
	})

	It("should reject paths that do not fit", func() {
		_, err := indexfile.Header{DataPath: strings.Repeat("p", 258), KeyWidth: 5}.Encode()
		Expect(err).To(MatchError(`indexfile: data file path is 258 bytes, at most 257 fit`))

		_, err = indexfile.Header{DataPath: strings.Repeat("p", 257), KeyWidth: 5}.Encode()
		Expect(err).NotTo(HaveOccurred())
	})

	It("should reject widths outside the three digit field", func() {
		_, err := indexfile.Header{DataPath: "a", KeyWidth: 0}.Encode()
		Expect(err).To(HaveOccurred())
		_, err = indexfile.Header{DataPath: "a", KeyWidth: 1000}.Encode()
		Expect(err).To(HaveOccurred())
	})

	It("should truncate long root hints", func() {
		b, err := indexfile.Header{DataPath: "a", KeyWidth: 5, RootHint: strings.Repeat("h", 2000)}.Encode()
		Expect(err).NotTo(HaveOccurred())
		Expect(indexfile.RootHint(b)).To(HaveLen(indexfile.RootHintLen))
	})

	It("should report malformed width text", func() {
		b, err := indexfile.Header{DataPath: "a", KeyWidth: 5}.Encode()
		Expect(err).NotTo(HaveOccurred())
		copy(b[257:], "x5 ")
		_, err = indexfile.DecodeHeader(b)
		Expect(errors.Is(err, index.ErrMalformedIndex)).To(BeTrue())
	})
})
