// Package services defines shared utilities consumed by the sync pipeline
// stages and the remote tracker integration.
//
// Key responsibilities:
//   - Context helpers that stamp issue identifiers, epic names, stage names,
//     and run identifiers for logging and history.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the user-facing taxonomy (not found, auth, post failed, ...).
//   - Remediation hints so every terminal failure can print concrete next
//     actions instead of a bare error string.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
