// Command adchubd is the ADC hub's server entrypoint, renamed from
// the teacher's cmd/go-hub (SPEC_FULL.md §4.M).
package main

import (
	"fmt"
	"os"

	"github.com/direct-connect/adchub/cmd/adchubd/cmd"
)

func main() {
	if err := cmd.Root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
