package main

import (
	"os"

	"github.com/lhotari/nosqlbench/cmd/seqbench/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
