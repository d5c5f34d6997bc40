package main

import (
	"os"

	"prrebase.dev/prrebase/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(cli.Execute(version, commit, date, os.Args[1:]))
}
