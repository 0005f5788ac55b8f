package main

import "southwinds.dev/cloak/cli/cmd"

func main() {
	cmd.Execute()
}
