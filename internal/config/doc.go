// Package config handles configuration loading, parsing, and validation
// from a config file, environment variables and defaults. It provides
// type-safe access to the settings of every component while keeping
// configuration details separate from the pipeline logic.
package config
