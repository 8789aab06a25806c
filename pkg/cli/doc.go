// Package cli provides common CLI utilities for earshot command-line tools.
//
// This package includes:
//   - Configuration management (contexts, profiles)
//   - Output formatting (JSON, YAML, table)
//   - Request file loading (YAML/JSON)
//   - Common flags and options
//
// Configuration is stored in ~/.earshot/<app>/ directory, supporting
// multiple contexts similar to kubectl.
//
// Example usage:
//
//	// Initialize config for your app
//	cfg, err := cli.LoadConfig("earshot")
//
//	// Get current context
//	ctx, err := cfg.CurrentContext()
//
//	// Output result
//	cli.Output(result, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    File:   outputPath,
//	})
package cli
