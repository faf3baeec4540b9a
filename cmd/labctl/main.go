// Command labctl recomputes modellab results locally and verifies a running
// server.
package main

import (
	"fmt"
	"os"

	"github.com/okian/modellab/internal/labctl"
)

// Exit codes.
const (
	ExitSuccess  = 0 // command succeeded
	ExitFailures = 1 // verify found broken invariants
	ExitError    = 2 // flag, configuration or runtime error
)

func main() {
	if err := labctl.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if labctl.IsVerifyFailure(err) {
			os.Exit(ExitFailures)
		}
		os.Exit(ExitError)
	}
	os.Exit(ExitSuccess)
}
