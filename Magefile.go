//go:build mage
// +build mage

package main

import (
	"github.com/grafana/grafana-plugin-sdk-go/build"
)

// Default builds the backend plugin binaries for all platforms
func Default() error {
	return build.BuildAll()
}

// Coverage runs the Go tests with coverage
func Coverage() error {
	return build.Coverage()
}
