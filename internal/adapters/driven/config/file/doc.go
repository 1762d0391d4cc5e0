// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML configuration, profiles and the raw editor view
//   - PreferencesStore: JSON browser preferences
//   - Watcher: reloads the configuration when the file changes on disk
package file
