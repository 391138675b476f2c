package main

import "github.com/autokuma/autokuma/cmd/autokuma-cli/cmd"

func main() {
	cmd.Execute()
}
