package main

import (
	"os"

	"github.com/tphakala/bearwatch/cmd"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	os.Exit(cmd.Execute(version))
}
