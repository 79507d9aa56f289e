// Package reconstruct drives the two book reconstruction strategies.
//
// Online mirrors a remote book into a locked staging area, declares a cover
// in the package document, writes META-INF/container.xml, and packages the
// area. Offline carves zip entries out of an opaque blob and repackages them.
// Both report a single monotonic percentage, record the run in the history
// ledger when one is configured, and tag their log lines with a job id and
// strategy name.
package reconstruct
