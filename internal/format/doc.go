// Package format renders a Consolidated Update Document into the comment
// body posted to the remote issue.
//
// Progress mode lays out completed work, work in progress, notes, the
// acceptance-criteria checklist, next steps, blockers and recent commits.
// Completion mode reports every criterion as met along with deliverables,
// testing and documentation. Either way the result never exceeds the
// tracker's comment ceiling: oversized bodies are cut at a byte budget and
// closed with a trailer that points at the local files.
package format
