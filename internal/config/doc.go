// Package config loads, normalizes, and validates extractor configuration.
//
// The file is TOML, found through --config, $EXTRACTOR_CONFIG, the per-user
// default, or ./extractor.toml, in that order. Unknown keys are an error.
// Paths accept a leading ~ and are made absolute; EXTRACTOR_TOKEN supplies
// the bearer token when the file leaves it empty.
package config
