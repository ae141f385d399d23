// Package app is the composition root for the platen dashboard.
//
// Run wires the pieces together in a fixed order:
//
//  1. Load configuration (config.yaml plus PLATEN_* environment overrides)
//  2. Open the JSON file logger; the terminal belongs to the TUI
//  3. Build the ledger client, sending the stored API token when present
//  4. Open the bbolt cache and hydrate the period's rows, falling back to
//     the last cached snapshot when the service is unreachable
//  5. Rebuild the selection and readiness stores from the hydration
//  6. Start the background health poller
//  7. Hand everything to ui.Run, which blocks until the operator quits
//
// Startup fails only when configuration is invalid or when neither the
// service nor the cache can produce rows for the period. Everything after
// that is recoverable: health-poll failures back off and flip the offline
// indicator, reloads retry the fetch, and gateway errors land on the
// status line without ending the process.
//
// The Session type carries the hydration lifecycle across reloads. Each
// hydration replaces the selection baselines and re-derives readiness from
// the server's batch hints, which is exactly what discards unsaved
// exclusion changes on an explicit reload.
package app
