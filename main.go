package main

import (
	"os"

	"github.com/ubi-africa/ride-core/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
