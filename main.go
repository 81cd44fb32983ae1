package main

import "github.com/vivskv/vivs/cmd"

func main() {
	cmd.Execute()
}
