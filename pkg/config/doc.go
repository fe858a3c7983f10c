// Package config loads client configuration from YAML files.
//
// The core library takes plain Go structs; this package exists for the
// command-line tools and for applications that prefer file-based
// configuration.
package config
