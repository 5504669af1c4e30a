// Package gather builds the Consolidated Update Document for one issue.
//
// Every known fragment category is read from the issue's update directory,
// with headers stripped and a canned default standing in for anything missing
// or unreadable. The commits category falls back to recent history from the
// project's git repository. Fragments outside the known categories become
// their own sections, titled from the file name.
//
// The full current content of each fragment is used on every run. The
// document header records the since/until window it nominally covers; no
// per-line change tracking exists.
package gather
