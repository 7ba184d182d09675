package main

import "github.com/spaghettifunk/framegraph/cmd/fgdump/internal/command"

func main() {
	command.Execute()
}
