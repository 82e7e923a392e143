// # cmd/xplore/main.go
package main

import (
	"os"

	"xplore/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
