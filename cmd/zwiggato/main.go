// Command zwiggato runs the food ordering API and its client commands.
package main

import (
	"os"

	"github.com/roach88/zwiggato/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	cli.ReportError(os.Stderr, err)
	os.Exit(cli.GetExitCode(err))
}
