package main

import "github.com/KaramelBytes/dataagent-cli/cmd"

func main() {
	cmd.Execute()
}
