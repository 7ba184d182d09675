//go:build mage

package main

import (
	"fmt"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// goCmd runs the go tool, echoing its output only with -v or when stream is set.
func goCmd(stream bool, args ...string) error {
	fmt.Printf("Executing: go %s\n", strings.Join(args, " "))
	if stream || mg.Verbose() {
		return sh.RunV(mg.GoCmd(), args...)
	}
	out, err := sh.Output(mg.GoCmd(), args...)
	if err != nil {
		fmt.Println("... failed command output:")
		fmt.Println(out)
		return fmt.Errorf("go %s: %w", args[0], err)
	}
	return nil
}

// raceEnv turns cgo on, the race detector and glfw both need it.
var raceEnv = map[string]string{"CGO_ENABLED": "1"}

func tidy() error {
	return goCmd(false, "mod", "tidy")
}
