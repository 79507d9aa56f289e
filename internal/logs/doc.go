// Package logs reads back extractor.log for the `extractor logs` command.
//
// Last returns the final lines of the file with bounded memory, optionally
// keeping only lines that mention a job id. Follow then polls from the
// returned offset and emits new lines until its context ends, restarting from
// the top when the file is rotated underneath it.
package logs
