// Command userstat reports disk usage per owning user, aggregated per directory.
package main

import (
	"context"
	"os"

	"github.com/idelchi/userstat/internal/cli"
)

// version is set at build time.
var version = "unknown - unofficial & generated by unknown"

func main() {
	if err := cli.New(version).Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
