// Command scripthost runs scripts and interactive sessions over a warm Go
// interpreter.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/scripthost/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
