package textutil

import (
	"strings"
	"unicode"
)

// SanitizeFileName makes a resource name safe as a single path element.
// Separators and colons become dashes, other reserved characters and control
// characters are dropped, and a leading dot is removed so the result is never
// hidden or a parent reference.
func SanitizeFileName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*':
			return '-'
		case strings.ContainsRune(`?"<>|`, r), unicode.IsControl(r):
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	return strings.TrimSpace(strings.TrimLeft(mapped, "."))
}

// SanitizeToken lowercases value and keeps ASCII letters, digits, dashes, and
// underscores. Everything else becomes an underscore. Empty results yield
// "unknown".
func SanitizeToken(value string) string {
	token := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z':
			return unicode.ToLower(r)
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, strings.TrimSpace(value))
	if token = strings.Trim(token, "_-"); token == "" {
		return "unknown"
	}
	return token
}

// SafeTitle keeps letters, digits, and spaces from a book title so it can name
// an output file on any filesystem. Runs of spaces collapse to one. Returns
// fallback when nothing survives.
func SafeTitle(title, fallback string) string {
	words := strings.FieldsFunc(title, func(r rune) bool { return r == ' ' || r == '\t' })
	kept := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, w)
		if w != "" {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		return fallback
	}
	return strings.Join(kept, " ")
}
