// Package tracker abstracts the remote issue tracker behind a narrow
// interface and provides a GitHub implementation that shells out to the gh
// command-line client.
//
// Callers only see issue states, comment URLs, and classified errors. Test
// code substitutes the in-memory fake from tracker/trackertest.
package tracker
