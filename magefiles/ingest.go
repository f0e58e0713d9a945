//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Ingest builds missing or stale corpus partitions.
func Ingest() error {
	mg.Deps(Init, Build)
	return sh.RunV(binPath(), "ingest")
}

// Refresh rebuilds the recent partition even when it is fresh.
func Refresh() error {
	mg.Deps(Init, Build)
	return sh.RunV(binPath(), "ingest", "--partition", "recent", "--force")
}

// Evict drops stored entries past the retention horizon.
func Evict() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "evict")
}
