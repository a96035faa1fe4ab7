package main

import "github.com/bryanchriswhite/vppstage/cmd/vppstage/commands"

func main() {
	commands.Execute()
}
