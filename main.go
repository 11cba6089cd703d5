package main

import (
	"os"

	"github.com/virtualzone/landroid-bridge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
