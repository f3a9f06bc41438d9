package main

import "bcfetch/cmd/bcfetch/cmd"

func main() {
	cmd.Execute()
}
