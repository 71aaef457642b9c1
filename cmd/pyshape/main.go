// # cmd/pyshape/main.go
package main

import (
	"os"

	"pyshape/internal/ui/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:]))
}
