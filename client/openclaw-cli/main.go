package main

import "OpenClaw/client/openclaw-cli/cmd"

func main() {
	cmd.Execute()
}
