// Command csvexplorer serves the CSV explorer web app and applies its
// filter and derive pipeline to files from the command line.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/JonMunkholm/csvexplorer/internal/core"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// reportError prints err, followed by the user-facing explanation when the
// error is one the app knows how to explain.
func reportError(w io.Writer, err error) {
	fmt.Fprintln(w, "error:", err)
	if core.IsUserFacing(err) {
		fmt.Fprintln(w, core.FormatUserError(err))
	}
}
