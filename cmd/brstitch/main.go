package main

import "github.com/FrostyAceHook/stitch/cmd/brstitch/cmd"

func main() {
	cmd.Execute()
}
