package main

import (
	"os"

	"github.com/crfeliz/issue-trello-sync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
