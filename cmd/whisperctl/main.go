package main

import (
	"os"

	"whisperctl/internal/cli"
)

func main() {
	os.Exit(cli.Main())
}
