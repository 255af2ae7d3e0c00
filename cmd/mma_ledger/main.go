package main

import (
	"os"

	"github.com/SscSPs/mma_ledger/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
