package main

import (
	"github.com/opsdeck/opsdeck/cmd/opsdeck-cli/cmd"
)

func main() {
	cmd.Execute()
}
