// Package main provides the entry point for rvsim, a cycle-level RV32I
// simulator with an uncached port and a split cache model.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/tebeka/atexit"
)

func main() {
	err := newRootCmd().Execute()

	var exit *exitError
	switch {
	case err == nil:
		atexit.Exit(0)
	case errors.As(err, &exit):
		atexit.Exit(exit.code)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		atexit.Exit(1)
	}
}

// exitError carries a non-zero program exit code out of a command.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("program exited with code %d", e.code)
}
