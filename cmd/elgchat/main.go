package main

import (
	"os"

	"elgchat/cmd/elgchat/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
