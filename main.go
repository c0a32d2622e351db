package main

import "github.com/Noetix-AI-platform/GoldenDavid/cmd"

func main() {
	cmd.Execute()
}
