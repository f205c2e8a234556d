package main

import (
	"os"

	"github.com/smallbiznis/pulse/apps/repair/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
