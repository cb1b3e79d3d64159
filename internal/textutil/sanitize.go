// Package textutil provides small text helpers for note filenames and
// rendered output: Unicode-normalized filename sanitization and rune-aware
// truncation.
package textutil

import (
	"strings"

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
	"|", "-",
	"\x00", "",
)

// maxFileNameRunes caps sanitized filenames; episode titles can be arbitrarily long.
const maxFileNameRunes = 100

// SanitizeFileName converts an episode title into a safe filename segment.
// Input is NFC-normalized first so visually identical titles produce the same
// file name regardless of the source encoding.
func SanitizeFileName(name string) string {
	normalized := norm.NFC.String(strings.TrimSpace(name))
	cleaned := fileNameReplacer.Replace(normalized)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	cleaned = strings.Trim(cleaned, ". ")
	if cleaned == "" {
		return "untitled"
	}
	return Truncate(cleaned, maxFileNameRunes)
}

// Truncate shortens text to at most limit runes.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
