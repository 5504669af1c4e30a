// Package progress reads and writes Progress Records: markdown files that
// start with a YAML header block delimited by --- lines, followed by
// free-form prose.
//
// Header edits go through the yaml.v3 node tree so unknown fields keep their
// order and the prose after the header is carried through byte for byte.
package progress
