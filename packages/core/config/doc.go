// Package config handles configuration loading and management for hitgraph.
//
// It provides functionality for:
//   - Loading configuration from .hitgraph.yaml, .hitgraph.yml or JSON files
//   - Default configuration values
//   - Merging file values with command line overrides
package config
