//go:build mage

package main

import (
	"fmt"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

type Test mg.Namespace

// Runs every unit test with the race detector.
func (Test) All() error {
	mg.Deps(tidy)
	return raceTest("./...")
}

// Runs the frame graph compiler and allocator tests only.
func (Test) FrameGraph() error {
	return raceTest("./engine/framegraph/...", "./engine/systems/...")
}

func raceTest(pkgs ...string) error {
	args := append([]string{"test", "-race"}, pkgs...)
	fmt.Printf("Executing: go %s\n", strings.Join(args, " "))
	return sh.RunWithV(raceEnv, mg.GoCmd(), args...)
}
