// Package config loads and validates Slate Core configuration.
//
// Configuration comes from three layers, later layers overriding earlier:
//
//  1. Hardcoded defaults (defaultConfig)
//  2. A YAML file (configs/config.yaml by default)
//  3. Environment variables with the SLATE_ prefix
//
// Call Load once at startup; the returned Config is read-only afterwards.
package config
