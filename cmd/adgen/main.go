package main

import "github.com/ballzy/adgen/cmd"

func main() {
	cmd.Execute()
}
