// shardsim is a CLI for simulating CI test sharding over a package
// dependency graph.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/shardsim/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
