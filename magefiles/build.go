//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Builds the testbed engine binary into bin/.
func (Build) Engine() error {
	return goCmd(true, "build", "-o", "bin/testbed", ".")
}

// Builds the fgdump inspection tool into bin/.
func (Build) Tools() error {
	return goCmd(true, "build", "-o", "bin/fgdump", "./cmd/fgdump")
}

// Builds everything.
func (Build) All() {
	mg.Deps(Build.Engine, Build.Tools)
}
