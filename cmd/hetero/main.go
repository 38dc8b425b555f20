// Package main provides the hetero CLI, which resolves how tensors cross
// backend boundaries in a layer graph described by a manifest.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
