package main

import "github.com/hwalther/lightson/cmd/lightson/commands"

func main() {
	commands.Execute()
}
