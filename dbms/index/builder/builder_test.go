package builder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/btree-query-bench/lineindex/dbms/index"
	"github.com/btree-query-bench/lineindex/dbms/recordstore"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func writeLines(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\r\n")), 0644))
	return path
}

func TestBuild_Offsets(t *testing.T) {
	path := writeLines(t, "alice 30", "bob   4", "carol 777")

	tree, rep, err := Build(path, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, Report{Lines: 3, Indexed: 3, Bytes: 8 + 2 + 7 + 2 + 9 + 2}, rep)

	tests := []struct {
		key    string
		offset uint64
		length uint32
		record string
	}{
		{"alice", 0, 8, "alice 30"},
		{"bob", 10, 7, "bob   4"},
		{"carol", 19, 9, "carol 777"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			e, err := tree.Get(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.offset, e.Offset)
			assert.Equal(t, tt.length, e.Length)

			rec, err := recordstore.Read(path, e.Offset, e.Length)
			require.NoError(t, err)
			assert.Equal(t, tt.record, rec)
		})
	}
}

func TestBuild_Duplicates(t *testing.T) {
	path := writeLines(t, "abc one", "abd two", "abc three", "ab")

	logCore, logs := observer.New(zap.WarnLevel)
	var skipped []int
	tree, rep, err := Build(path, 3, &Options{
		Logger:      zap.New(logCore),
		OnDuplicate: func(line int, _ string) { skipped = append(skipped, line) },
	})
	require.NoError(t, err)

	assert.Equal(t, 4, rep.Lines)
	assert.Equal(t, 3, rep.Indexed)
	assert.Equal(t, 1, rep.Duplicates)
	assert.Equal(t, []int{3}, skipped)
	assert.Equal(t, 1, logs.FilterMessage("duplicate key skipped").Len())

	e, err := tree.Get("abc")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), e.Offset, "first occurrence wins")

	e, err = tree.Get("ab")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), e.Length)
}

func TestBuild_TrailingTerminator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("k1\r\nk2\r\n"), 0644))

	tree, rep, err := Build(path, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Lines)
	assert.Equal(t, 2, tree.Len())
}

func TestBuild_ManyLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	var want []uint64
	for i := 0; i < 3000; i++ {
		off, _, err := recordstore.Append(path, fmt.Sprintf("%06d payload %d", (i*7)%3001, i))
		require.NoError(t, err)
		want = append(want, off)
	}

	tree, rep, err := Build(path, 6, &Options{Capacity: 5})
	require.NoError(t, err)
	require.NoError(t, tree.Check())
	assert.Equal(t, 3000, rep.Indexed)

	for i, off := range want {
		e, err := tree.Get(fmt.Sprintf("%06d", (i*7)%3001))
		require.NoError(t, err)
		assert.Equal(t, off, e.Offset)
	}
}

func TestBuild_Errors(t *testing.T) {
	_, _, err := Build(filepath.Join(t.TempDir(), "missing"), 4, nil)
	assert.True(t, errors.Is(err, index.ErrIO))

	path := writeLines(t, "x")
	_, _, err = Build(path, 0, nil)
	assert.Error(t, err)
	_, _, err = Build(path, 1000, nil)
	assert.Error(t, err)
}

func TestBuild_EmptyFile(t *testing.T) {
	path := writeLines(t)
	tree, rep, err := Build(path, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, tree.Len())
	assert.Equal(t, Report{}, rep)
}
