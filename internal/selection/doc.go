// Package selection tracks which order rows are excluded from printing.
//
// The store keeps two flag sets per channel: the live flags the operator is
// editing and a baseline holding whatever the server last persisted.
// Dirtiness is the comparison of the two, recomputed on demand. The baseline
// only moves at two points: hydration, whose payload is by definition the
// server's stored state, and SnapshotBaseline after a successful persist.
// Nothing in this package performs I/O; the controller decides when flags
// are pushed to the ledger service.
package selection
