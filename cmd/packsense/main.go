package main

import (
	"os"
	"packsense/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
