// Command barnd is the thin CLI wrapper around barn.Service: a process
// supervisor that queues, classifies, runs, and retries jobs under
// per-load-level concurrency limits.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
