// Package config loads and validates the YAML configuration for a
// depositwatch instance, with ${VAR} environment expansion and
// defaults for every optional field.
package config
