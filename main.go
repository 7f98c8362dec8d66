package main

import "github.com/RyanBlaney/melodraw/cmd"

func main() {
	cmd.Execute()
}
