// Package pipeline runs the five sync stages for one issue in order:
// preflight, gather, format, post, update-state.
//
// Stages never share mutable state. Each receives the immutable Run value
// built after preflight plus the file paths the previous stage produced.
// The run's workspace is kept on disk afterwards. A per-issue advisory lock
// warns about overlapping runs without blocking them, and every run that
// resolved its issue lands in the history ledger.
package pipeline
