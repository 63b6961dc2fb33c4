package main

import "hexmap/cmd/hexmap-cli/cmd"

func main() {
	cmd.Execute()
}
