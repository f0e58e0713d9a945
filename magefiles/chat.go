//go:build mage

package main

import (
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

// Chat starts an interactive session against the local corpus.
func Chat() error {
	mg.Deps(Build)
	cmd := exec.Command(binPath(), "chat")
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
