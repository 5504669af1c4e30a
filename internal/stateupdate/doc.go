// Package stateupdate records a successful sync in the Progress Record.
//
// The record is copied to a timestamped backup before anything changes. The
// new content is written atomically, read back, and validated. A record that
// fails validation is restored from the backup byte for byte and reported as
// corruption. After a good write the record's mtime is pinned to the
// last_sync instant it carries, so the write itself never looks like a local
// change to the next preflight.
package stateupdate
