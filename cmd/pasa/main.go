package main

import (
	"os"

	"github.com/pasalang/pasa/pkg/cli"
)

func main() {
	os.Exit(cli.Main(os.Args[1:]))
}
