// Package logtail reads the tail of the application log file for display
// in the dashboard's log view.
//
// # Reading
//
// Read extracts the last N lines with a single sequential pass over the
// file, holding only a ring buffer of N lines in memory:
//
//  1. Allocate ring buffer of size maxLines
//  2. For each line, store at the current index and advance, wrapping
//  3. On EOF, unwind the ring starting at the oldest entry
//
// A non-positive maxLines returns the whole file, and a missing file reads
// as empty so the log view degrades gracefully before the first write.
//
// # Parsing
//
// The application logs JSON records through log/slog. ParseLine decodes
// one record into an Entry with its timestamp, level, message, and any
// remaining fields collected into Attrs as strings. Lines that are not
// valid JSON are kept verbatim in Entry.Raw so a truncated or corrupted
// file still renders instead of disappearing.
//
// Tail combines the two steps and is what the UI calls on each refresh.
//
// Filtering by level and styling are the log view's job. This package has
// no global state and never writes to the file it reads.
package logtail
