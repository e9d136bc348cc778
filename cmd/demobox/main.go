// Command demobox renders and serves Markdown pages with live component demos.
package main

import (
	"fmt"
	"os"

	"github.com/livetemplate/demobox/cmd/demobox/commands"
)

var version = "0.1.0-dev"

func main() {
	if err := commands.NewRootCommand(version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
