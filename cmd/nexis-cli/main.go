package main

import (
	"os"

	"github.com/nexis-chat/nexis/gateway/internal/interfaces/cli"
)

var version = "0.1.0"

func main() {
	if err := cli.NewRootCommand(version).Execute(); err != nil {
		os.Exit(1)
	}
}
