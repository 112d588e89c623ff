// Command dbdeck is a multi-engine database client and HTTP API server.
package main

import (
	"context"
	"os"

	"github.com/koustreak/dbdeck/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := cli.Execute(context.Background(), version); err != nil {
		os.Exit(1)
	}
}
