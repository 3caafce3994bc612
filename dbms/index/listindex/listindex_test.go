package listindex

import (
	"testing"

	"github.com/btree-query-bench/lineindex/dbms/index"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListIndex(t *testing.T) {
	l := NewListIndex(3)
	for i, k := range []string{"dog", "cat", "emu", "ant"} {
		require.NoError(t, l.Insert(k, uint64(i), 3))
	}
	assert.True(t, errors.Is(l.Insert("catfish", 9, 7), index.ErrDuplicateKey))
	assert.Equal(t, 4, l.Len())

	e, err := l.Get("emu")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), e.Offset)

	_, err = l.Get("bee")
	assert.True(t, errors.Is(err, index.ErrKeyNotFound))

	it, found, err := l.Seek("bee")
	require.NoError(t, err)
	assert.False(t, found)
	var keys []string
	for it.Next() {
		keys = append(keys, it.Entry().Key)
	}
	assert.Equal(t, []string{"cat", "dog", "emu"}, keys)
	assert.False(t, it.Next())

	it, found, _ = l.Seek("zzz")
	assert.False(t, found)
	assert.False(t, it.Next())
}
