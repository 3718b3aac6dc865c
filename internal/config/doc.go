// Package config loads, normalizes, and validates the TOML application
// configuration.
//
// Load resolves the config file (explicit path, then the default XDG location,
// then ./clipforge.toml), overlays it on Default(), expands ~ in path fields,
// and rejects unusable values before anything else starts. CreateSample writes
// the embedded annotated sample for first-run setup.
package config
