// Package awsx centralizes AWS SDK v2 wiring: config loading with
// functional overrides, per-service client constructors, and the narrow
// interfaces the rest of the engine consumes so tests can substitute fakes.
package awsx
