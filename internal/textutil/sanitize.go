package textutil

import (
	"strings"
	"unicode"
)

// SanitizeFileName turns a video stem into a directory or file name that is
// safe on common filesystems. Path separators, colons and asterisks become
// dashes; quotes, wildcards, redirection characters and control characters
// are dropped; whitespace runs collapse to one space. A result of "", "." or
// ".." becomes "untitled".
func SanitizeFileName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*':
			return '-'
		case strings.ContainsRune(`?"<>|`, r), unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, name)
	name = strings.Join(strings.Fields(mapped), " ")
	switch name {
	case "", ".", "..":
		return "untitled"
	}
	return name
}
