package main

import (
	"fmt"
	"os"

	"ContributionsETL/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "contribetl:", err)
		os.Exit(1)
	}
}
