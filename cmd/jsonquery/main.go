// Command jsonquery translates JSON query documents into SQL and runs them.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/jsonquery/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "jsonquery:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
