//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

type Run mg.Namespace

// Runs the testbed with framegraph.toml from the repository root.
func (Run) Engine() error {
	fmt.Println("Run engine...")
	return goCmd(true, "run", "main.go")
}

// Dumps the schedule of a pipeline description, deferred by default.
func (Run) Dump(pipeline string) error {
	if pipeline == "" {
		pipeline = "deferred"
	}
	mg.Deps(Build.Tools)
	return sh.RunV(filepath.Join("bin", "fgdump"), "dump", filepath.Join("assets", "pipelines", pipeline+".fg.toml"))
}

// Watches assets/pipelines and serves allocator metrics on :9090.
func (Run) Watch() error {
	mg.Deps(Build.Tools)
	return sh.RunV(filepath.Join("bin", "fgdump"), "watch", filepath.Join("assets", "pipelines"), "--metrics-addr", ":9090")
}
