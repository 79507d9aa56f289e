// Package preflight provides readiness checks for the filesystem paths and
// remote endpoints the extractor depends on.
//
// The CLI "extractor check" command runs RunAll and prints each Result.
// Reconstruction runs call CheckDirectoryAccess on the staging directory
// before creating an area so a permissions problem fails fast instead of
// surfacing as a write error halfway through a mirror.
package preflight
