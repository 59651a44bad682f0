package main

import (
	"os"

	"github.com/abhisek/coursetrack/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
