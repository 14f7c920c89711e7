// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data under ~/.aegis.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - PromptStore: user-editable agent and classifier prompts
package file
