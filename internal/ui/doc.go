// Package ui provides the terminal dashboard for platen.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. A single Model carries all view state;
// typed messages feed it from commands that wrap the controller, the
// reloader and the log reader. Rendering is pure: every frame is derived
// from the model, the selection store, the readiness set and the health
// store, so action results never patch the screen directly.
//
// # Package Structure
//
// The package is organized into focused modules:
//
//   - app.go: Options, the root Model, Update routing and the Run function
//   - orders.go: channel panes, row formatting, fuzzy filter, cursor movement
//   - actions.go: key-triggered commands wrapping the print controller
//   - header.go: status bar, connection indicator, status note, command bar
//   - logview.go: viewport over the dashboard's own structured log file
//   - theme.go: color themes and style construction
//   - keys.go: key bindings with short/full help sets
//
// # Views
//
//   - Orders View: one titled box per configured channel with exclusion
//     marks, readiness footer chips and a fuzzy filter
//   - Logs View: tail of the local log file with a level filter
//   - Help overlay: full key reference, any key closes
//
// # Event Flow
//
//  1. Run() builds the Model from Options and starts the program
//  2. Key handlers dispatch controller calls as commands; the BusyLock
//     serializes them and the header shows a spinner while one runs
//  3. Result messages update readiness-derived labels and post a status
//     note; gateway error text is shown unchanged
//  4. An explicit reload rehydrates rows, falling back to the offline
//     cache when the ledger service is unreachable
//
// # External Dependencies
//
//   - controller: print workflow orchestration and busy state
//   - selection: live exclusion flags and dirtiness
//   - health: reachability snapshots fed by the background poller
//   - logtail: structured log records for the log view
//   - export: xlsx workbook rendition of the current screen
package ui
