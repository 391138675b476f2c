package main

import "github.com/autokuma/autokuma/cmd/autokuma/cmd"

func main() {
	cmd.Execute()
}
