// Package main hosts the pmsync CLI entrypoint and command graph.
//
// The Cobra command tree runs the full sync pipeline for one issue, exposes
// each pipeline stage as its own command for debugging, and reports local
// tracking status and the sync history ledger. Configuration resolution,
// logger setup, and tracker client construction live in commandContext so
// subcommands stay declarative.
package main
