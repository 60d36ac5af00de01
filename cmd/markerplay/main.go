// Command markerplay plays a marker file against a simulated player and draws
// the scrub bar in the terminal.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
