package main

import (
	"fmt"
	"os"

	"github.com/sokinpui/clsort"
)

func main() {
	if err := clsort.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
