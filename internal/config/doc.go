// Package config loads the hintprefs application configuration.
//
// Configuration is assembled in layers, higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  5. Command Line Flags      │  ← Highest priority (cmd/hintprefs)
//	├─────────────────────────────┤
//	│  4. HINTPREFS_* Variables   │
//	├─────────────────────────────┤
//	│  3. .env File               │  ← loaded into the environment
//	├─────────────────────────────┤
//	│  2. Config File             │  ← ~/.config/hintprefs/config.toml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// A config file looks like:
//
//	[storage]
//	backend = "postgres"
//	cacheSize = 512
//
//	[postgres]
//	dsn = "postgres://localhost/hintprefs"
//
//	[logging]
//	level = "info"
//	format = "json"
//
// # Sub-packages
//
//   - loader: TOML file and environment variable sources
//   - notify: change notification for exclusion list diffs
//   - watcher: reload of file-backed storage on external edits
//
// Postgres and s3 storage cannot be watched; with watch.enabled they are
// re-read every watch.pollSeconds instead.
package config
