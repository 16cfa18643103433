// Package config provides configuration management for the stash CLI.
//
// The package uses a Provider interface to abstract configuration loading,
// with the primary implementation being filesystem-based configuration via
// YAML files.
//
// # Configuration Structure
//
// Configuration is structured as follows:
//
//	document:
//	  path: ~/.stash/stash.json    # Shared configuration document
//
// # Basic Usage
//
// Load configuration using the default path (~/.stash/config.yaml):
//
//	provider := config.New()
//	cfg, err := provider.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Configuration Validation
//
// The package performs validation of loaded configuration:
//   - Document path must not be empty
//   - Document path must point to a .json file
//
// # Default Configuration
//
// If no configuration file exists, the document path defaults to
// ~/.stash/stash.json.
//
// # Error Handling
//
// The package defines several error types:
//   - ErrInvalidConfig: Configuration validation failed
//   - ErrNoConfig: Configuration file not found (returns defaults)
//
// The package is designed to be extensible, allowing for additional
// configuration providers to be implemented (e.g., environment variables)
// by implementing the Provider interface.
package config
