// Command pipeq builds, compiles and runs query pipelines.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/pipeq/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
