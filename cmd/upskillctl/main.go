package main

import (
	"os"

	"github.com/okian/upskill/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Stderr.WriteString("upskillctl: " + err.Error() + "\n")
		os.Exit(1)
	}
}
