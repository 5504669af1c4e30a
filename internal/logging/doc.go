// Package logging builds the slog loggers pmsync writes to stderr and its log
// file.
//
// The console format puts the component and run subject ("auth-epic #42
// (post)") in the header and the remaining attributes on one indented
// key=value line. The JSON format is meant for the log file and external
// tooling. WithContext copies epic, issue, stage and run id from a context
// so stage code never threads them by hand.
package logging
