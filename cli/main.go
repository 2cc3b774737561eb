package main

import "southwinds.dev/maskpass/cli/cmd"

func main() {
	cmd.Execute()
}
