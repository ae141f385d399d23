// Package readiness models whether each channel's print batch can be
// trusted as-is.
//
// # States
//
// A channel is always in exactly one of three states:
//
//   - NeverPrepared: no batch matches any persisted state. The initial
//     state unless the server reports an existing batch, and the state any
//     failed prepare falls back to.
//   - PreparedClean: a batch exists and the screen still matches it. The
//     only state from which the primary trigger reopens the batch directly.
//   - PreparedDirty: a batch exists but selections changed since it was
//     built. The next press must save and prepare again.
//
// # Projections
//
// Decide and Label are pure functions over the state (plus the selection
// store's dirty flag for wording). Neither is cached anywhere; the
// dashboard recomputes them on every render, so the trigger can never
// disagree with the state that backs it.
//
// Transitions live on Set and are driven by the controller: the toggle
// event, the optimistic reset at sequence start, and the success or
// failure outcome. Set also carries a per-channel fence so outcomes of a
// sequence that straddled a reload are dropped rather than applied over
// freshly hydrated state.
package readiness
