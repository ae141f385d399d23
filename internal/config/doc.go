// Package config handles loading and parsing platen's configuration.
//
// # Overview
//
// Configuration comes from a YAML file merged over built-in defaults, with
// PLATEN_* environment variables taking precedence over both. The result
// names the ledger service, the accounting period, the channel set, and the
// file locations for logging and the offline cache.
//
// # Configuration Discovery
//
// Load follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, search ~/.config/platen/config.yaml, then ./config.yaml
//  3. If no config file exists, fall back to defaults
//  4. Environment variables (PLATEN_SERVER_URL and friends) override either
//
// Missing config files are NOT an error; platen works out of the box
// against a ledger service on localhost.
//
// # YAML Format
//
// Example config.yaml:
//
//	server:
//	  url: "http://127.0.0.1:8787"
//	  token_file: "~/.config/platen/token"
//	  timeout_seconds: 15
//	  poll_seconds: 5
//	period: "2026-03"
//	channels:
//	  - id: amazon
//	    label: Amazon
//	  - id: rakuten
//	    bulk_run: false
//	logging:
//	  file: "~/.local/share/platen/platen.log"
//	  level: INFO
//	cache:
//	  file: "~/.local/share/platen/cache.db"
//
// The channel list is closed: every operation validates its channel id
// against it, and FindChannel suggests the nearest configured id on a
// near-miss. Per-channel capabilities (bulk_run, completion) default to
// enabled when the key is absent.
//
// # Path Expansion
//
// Tilde paths are expanded to the home directory and relative paths are
// made absolute, for the config file itself and for every file-valued
// field.
package config
