package main

import (
	"fmt"
	"os"

	"github.com/jonesrussell/north-cloud/suggester/internal/bootstrap"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := bootstrap.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
