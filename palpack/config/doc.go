// Package config loads and validates palpack settings from TOML.
//
// Defaults match the command-line defaults, so a missing file is not an
// error. Flags given on the command line override whatever the file sets.
package config
