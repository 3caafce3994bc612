package bench

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"

	"github.com/btree-query-bench/lineindex/dbms/index"
	"github.com/btree-query-bench/lineindex/dbms/recordstore"
	"github.com/cockroachdb/errors"
	"github.com/go-faker/faker/v4"
)

// Seed writes n fake records to path, replacing its content. Each record
// starts with a zero-padded key of keyWidth digits; keys are unique as long
// as n fits into keyWidth digits.
func Seed(path string, n, keyWidth int, seed int64) error {
	if n < 0 || keyWidth < 1 {
		return errors.Newf("bench: cannot seed %d records with key width %d", n, keyWidth)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return index.IOError(err, "bench: create seed file")
	}
	w := bufio.NewWriter(f)

	rng := rand.New(rand.NewSource(seed))
	for i, k := range rng.Perm(n) {
		if i > 0 {
			w.WriteString(recordstore.Separator)
		}
		key := fmt.Sprintf("%0*d", keyWidth, k)
		key = key[len(key)-keyWidth:]
		fmt.Fprintf(w, "%s %s <%s>", key, faker.Name(), faker.Email())
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return index.IOError(err, "bench: write seed file")
	}
	return index.IOError(f.Close(), "bench: close seed file")
}
