package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

var folder = cases.Fold()

// SanitizeFileName composes name to NFC and replaces filesystem-unsafe
// characters. Slashes, backslashes, colons, and asterisks become dashes; other
// unsafe characters are removed. The result is trimmed of surrounding
// whitespace.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(norm.NFC.String(name))
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

// FoldKey returns a case-folded, NFC-composed, trimmed form of value suitable
// as a map key for case-insensitive lookups.
func FoldKey(value string) string {
	return folder.String(norm.NFC.String(strings.TrimSpace(value)))
}
