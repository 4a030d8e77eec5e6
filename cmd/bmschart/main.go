package main

import "github.com/Shimi9999/bmschart/cmd"

func main() {
	cmd.Execute()
}
