package main

import (
	"fmt"
	"os"

	"github.com/patternlab/midiroll/pkg/app"
)

func main() {
	if err := app.New().Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
