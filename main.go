package main

import "github.com/KaramelBytes/fitcheck-cli/cmd"

func main() {
	cmd.Execute()
}
