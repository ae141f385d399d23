// Package controller orchestrates the print workflow against the ledger
// service.
//
// # Overview
//
// One Controller instance owns every configured channel. It is the only
// place that sequences gateway calls, and it funnels all state changes
// through the selection store and the readiness set; nothing else in the
// process mutates either. The four historical per-surface variants of this
// flow are collapsed into this single type, with Capabilities switching
// the optional paths per channel.
//
// # Sequences
//
// SaveAndPrepare is the long path: take the BusyLock, optimistically reset
// the channel to never-prepared, persist the full live exclusion set, then
// ask the service to build a batch. Only when both calls succeed does the
// channel come out PreparedClean with its baseline snapshotted. A failure
// at either step leaves never-prepared; the operator retries from scratch.
//
// RunBulkPrint reopens an existing batch and never touches readiness in
// either direction. CompletePrint records a physical print against an
// eligible batch and flips only the recorded flag.
//
// # Concurrency
//
// The BusyLock admits one sequence at a time across all channels. Presses
// while it is held return ErrBusy, which callers drop quietly. Toggles
// bypass the lock entirely: they are pure memory writes and are legal at
// any moment, including mid-sequence. A sequence that straddles a reload
// presents a fence when applying its outcome, so stale results are logged
// and dropped instead of overwriting freshly hydrated state.
//
// # Errors
//
// ErrBusy and ErrScopeMissing are quiet rejections: nothing was sent, so
// there is nothing to report beyond a log line. Gateway failures are
// returned unwrapped, preserving the service's own detail message for the
// status line. ErrNotEligible and ErrUnsupported mark presses that have no
// meaning for the channel's current state or configuration.
package controller
