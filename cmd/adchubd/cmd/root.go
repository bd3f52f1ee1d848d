// Package cmd implements adchubd's cobra command tree: serve, init
// and certs, mirroring the teacher's cmd/go-hub/cmd layout
// (SPEC_FULL.md §4.M).
package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is the hub's release string. adchubd has no release
// process of its own yet, so this is a fixed placeholder rather than
// a build-time ldflags injection.
const Version = "0.1.0-dev"

// Root is the adchubd command tree's entrypoint.
var Root = &cobra.Command{
	Use: "adchubd <command>",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		fmt.Printf("adchubd %s (%s)\n\n", Version, runtime.Version())
	},
}
