// Command apikw-sample writes the sample film workbooks used by the example
// suites.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/AbhinavRai30/api-framework/internal/exit"
	"github.com/AbhinavRai30/api-framework/internal/testdata"
)

const defaultDir = "test_data"

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func usage() string {
	return `apikw-sample - write sample film workbooks

Usage: apikw-sample [-dir DIR]

Options:
  -dir DIR    Output directory (default: test_data)
  -h, --help  Show this help message`
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("apikw-sample", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	dir := fs.String("dir", defaultDir, "Output directory")

	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stdout, usage())
			return exit.CodeOK
		}
		fmt.Fprintf(stderr, "Error: %v\n\n%s\n", err, usage())
		return exit.CodeUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "Error: unexpected arguments %v\n\n%s\n", fs.Args(), usage())
		return exit.CodeUsage
	}

	paths, err := testdata.WriteSamples(*dir)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exit.CodeFailure
	}

	for _, p := range paths {
		fmt.Fprintf(stdout, "Created %s\n", p)
	}
	return exit.CodeOK
}
