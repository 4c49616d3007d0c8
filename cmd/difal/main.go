// cmd/difal/main.go
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := root().cmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
