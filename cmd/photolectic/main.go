package main

import (
	"fmt"
	"os"

	"github.com/iamserge/photolectic/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "photolectic: %v\n", err)
		os.Exit(1)
	}
}
