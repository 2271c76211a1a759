package main

import (
	"os"

	"privgate/internal/cli"
)

// version is set with -ldflags "-X main.version=...".
var version = "0.1.0-dev"

func main() {
	os.Exit(cli.Execute(version))
}
