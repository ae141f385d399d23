// Package ledger provides an HTTP client for the purchase-records API.
//
// # Overview
//
// This package defines the API client for communicating with the ledger
// service that stores purchase records, per-channel exclusion sets, and
// print batches. It handles HTTP communication, JSON serialization, and
// type-safe representation of orders, batch results, and error payloads.
//
// # Architecture
//
// The package is split into three files:
//
//   - client.go: HTTP client implementation and request/response handling
//   - types.go: Data structures mirroring the ledger API schema
//   - errors.go: Typed error for non-2xx responses
//
// # Endpoints
//
// Two read endpoints hydrate and monitor the dashboard:
//
//   - GET /api/orders?period=YYYY-MM: Every channel's rows for the period,
//     with stored exclusion flags and batch hints
//   - GET /api/health: Service reachability for the background poller
//
// Four write endpoints drive the print workflow. Each is idempotent on the
// server side and is never retried automatically by the client:
//
//   - POST /api/exclusions: Full replacement of a channel's exclusion set
//   - POST /api/print/prepare: Build a print batch from persisted exclusions
//   - POST /api/print/run: Send the prepared batch to the printer
//   - POST /api/print/complete: Mark the prepared batch as printed
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation and timeout control
//   - Set Accept: application/json and User-Agent: platen/0.1 headers
//   - Carry a fresh X-Request-ID UUID, which also appears in log records
//   - Send Authorization: Bearer when the client holds a token
//   - Have a 15-second timeout (configurable via http.Client)
//
// # Error Handling
//
// Any non-2xx status becomes an *APIError. When the response body carries a
// {"detail": "..."} message, Error returns that detail verbatim so operators
// see exactly what the service reported; otherwise it falls back to
// "api <path> returned status <code>". Network and decoding failures are
// returned as wrapped errors. The client never retries; retry policy belongs
// to the caller, and the print workflow treats every failure as terminal for
// the sequence that issued it.
package ledger
