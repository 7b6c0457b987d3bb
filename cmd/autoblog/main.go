package main

import (
	"fmt"
	"os"

	"github.com/yangwenmai/autoblog/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		fmt.Fprintf(os.Stderr, "autoblog: %v\n", err)
		os.Exit(1)
	}
}
