package main

import "github.com/icco/basstrainer/cmd"

func main() {
	cmd.Execute()
}
