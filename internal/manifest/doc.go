// Package manifest models the asset list of one remote book.
//
// A Source is the catalog collaborator's description of a book: where its
// files live and which package document lists them. ParsePackageDocument reads
// that document and yields a Model whose AssetReferences the mirror fetches.
// Every href is validated while parsing so nothing downstream ever has to
// defend against absolute paths, foreign schemes, or traversal out of the
// container root.
package manifest
