// Package textutil turns catalog titles and carved entry names into strings
// that are safe to use as file names.
package textutil
