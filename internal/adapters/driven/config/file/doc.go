// Package file provides a TOML-backed configuration store with
// environment-variable overrides for credentials and filesystem
// watching so credential edits apply without a restart.
package file
