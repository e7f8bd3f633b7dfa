// Package config defines the settings of paper-fetch and provides helpers
// to load, validate and save them.
//
// Settings are read from YAML (the default paper-fetch.yaml) or TOML (any
// path ending in .toml), then overridden from the environment through a
// fixed table of variables, and finally validated as a whole.
package config
