// Command extractor rebuilds EPUB containers, either by mirroring a remote
// book or by carving zip entries out of a local blob.
//
// Logs go to stderr and to extractor.log in the configured log directory;
// stdout carries only command output such as tables and JSON.
package main
