// Package staging manages the scratch directories that hold a book while it
// is being reconstructed.
//
// Each reconstruction owns one Area: a uniquely named directory under the
// configured staging root plus a sibling lock file held for the lifetime of
// the run. Housekeeping (CleanStale, ListDirectories) consults the same lock
// so it never touches an area a live process is still writing.
package staging
