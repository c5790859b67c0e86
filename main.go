package main

import "VidTube/cmd"

func main() {
	cmd.Execute()
}
