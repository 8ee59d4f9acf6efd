// Package file provides file-backed implementations of driven ports.
//
// Adapters:
//   - ConfigStore: TOML configuration at <home>/config.toml
//   - PromptStore: user-editable prompt files at <home>/prompts
package file
