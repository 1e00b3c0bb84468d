// Command odataql compiles OData query expressions to SQL.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/odataql/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Commands report their own errors; bare errors come from cobra
		// (unknown flags, bad --format).
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
