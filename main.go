package main

import (
	"os"

	"github.com/btree-query-bench/lineindex/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
