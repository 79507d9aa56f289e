// Package ocf writes EPUB Open Container Format archives.
//
// Every archive starts with a stored "mimetype" entry; all other entries are
// deflated. Output goes to a temporary file beside the destination and is
// renamed into place only when the archive is complete.
package ocf
