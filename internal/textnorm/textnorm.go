// Package textnorm canonicalizes whitespace in extracted document text.
package textnorm

import "strings"

// Normalize collapses every whitespace run to a single ASCII space, trims
// the ends and replaces invalid UTF-8 with U+FFFD. It is idempotent.
func Normalize(s string) string {
	return ValidUTF8(strings.Join(strings.Fields(s), " "))
}

// ValidUTF8 replaces each run of invalid UTF-8 bytes with U+FFFD.
func ValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// Truncate returns at most the first n characters of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// Words splits normalized text into its word sequence.
func Words(s string) []string {
	return strings.Fields(ValidUTF8(s))
}
