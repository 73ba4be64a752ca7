// Command docsift is the batch CLI: extract a set of documents against a
// schema file, then export collected results to CSV, XLSX, PDF, or JSON.
package main

import (
	"fmt"
	"os"
)

const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitUserError)
	}
}
