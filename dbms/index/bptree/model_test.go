package bptree

import (
	"testing"

	"github.com/btree-query-bench/lineindex/dbms/index"
	"github.com/btree-query-bench/lineindex/dbms/index/listindex"
	"github.com/cockroachdb/errors"
	"github.com/go-faker/faker/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drain reads up to n entries and closes the iterator.
func drain(t *testing.T, it index.Iterator, n int) []index.Entry {
	t.Helper()
	defer it.Close()
	var out []index.Entry
	for len(out) < n && it.Next() {
		out = append(out, it.Entry())
	}
	require.NoError(t, it.Error())
	return out
}

func TestTree_MatchesSortedList(t *testing.T) {
	const width = 4
	tree := New(width, WithCapacity(5))
	model := listindex.NewListIndex(width)

	for i := 0; i < 2000; i++ {
		word := faker.Word() + faker.Word()
		errTree := tree.Insert(word, uint64(i), uint32(len(word)))
		errModel := model.Insert(word, uint64(i), uint32(len(word)))
		require.Equal(t, errModel == nil, errTree == nil, "insert %q", word)
		if errTree != nil {
			require.True(t, errors.Is(errTree, index.ErrDuplicateKey))
		}
	}
	require.NoError(t, tree.Check())
	require.Equal(t, model.Len(), tree.Len())
	assert.Equal(t, model.Data, collectAll(tree))

	for i := 0; i < 500; i++ {
		target := faker.Word()

		want, errModel := model.Get(target)
		got, errTree := tree.Get(target)
		assert.Equal(t, errModel == nil, errTree == nil, "get %q", target)
		assert.Equal(t, want, got)

		mit, mfound, err := model.Seek(target)
		require.NoError(t, err)
		tit, tfound, err := tree.Seek(target)
		require.NoError(t, err)
		assert.Equal(t, mfound, tfound, "seek %q", target)
		assert.Equal(t, drain(t, mit, 7), drain(t, tit, 7), "seek %q", target)
	}
}

func collectAll(t *Tree) []index.Entry {
	out := make([]index.Entry, 0, t.Len())
	t.Scan(func(e index.Entry) bool {
		out = append(out, e)
		return true
	})
	return out
}
