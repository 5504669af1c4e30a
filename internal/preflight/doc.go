// Package preflight decides whether a sync should run at all.
//
// Validator resolves which epic owns an issue, checks tracker authentication
// and the remote issue, then applies the staleness and change guards. Its
// Target is the only thing later stages learn about where the issue lives.
//
// RunAll and the individual Check functions report environment readiness for
// "pmsync status".
package preflight
