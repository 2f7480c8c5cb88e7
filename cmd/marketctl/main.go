// Command marketctl drives the marketplace client engine from a terminal:
// entitlement checks, feature gates, message bundles and directory lists.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
