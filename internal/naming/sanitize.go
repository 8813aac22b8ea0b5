package naming

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	// MaxLabelLen bounds the label part of a filename, in runes.
	MaxLabelLen = 200

	// MaxLabelBytes bounds the label's UTF-8 encoding. With at most 21
	// bytes each for "_{confidence}" and "_{n}" plus ".pdf", the whole name
	// stays within a 255-byte path component.
	MaxLabelBytes = 200

	replacement   = "_"
	reservedMark  = "file_"
	fallbackBlank = "unknown"
	fallbackEmpty = "document"
)

var (
	invalidChars  = regexp.MustCompile(`[<>:"/\\|?*]`)
	trailingJunk  = regexp.MustCompile(`[.\s]+$`)
	reservedNames = map[string]bool{
		"CON": true, "PRN": true, "AUX": true, "NUL": true,
		"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
		"COM6": true, "COM7": true, "COM8": true, "COM9": true,
		"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
		"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
	}
)

// Sanitize turns a free-text label into a filename component that is legal
// on Windows, macOS and Linux.
func Sanitize(label string) string {
	s := strings.TrimSpace(label)
	if s == "" {
		return fallbackBlank
	}
	s = norm.NFC.String(s)

	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return '_'
		}
		return r
	}, s)
	s = invalidChars.ReplaceAllString(s, replacement)

	if isReserved(s) {
		s = reservedMark + s
	}

	if utf8.RuneCountInString(s) > MaxLabelLen {
		s = string([]rune(s)[:MaxLabelLen])
	}
	s = truncateBytes(s, MaxLabelBytes)

	s = trailingJunk.ReplaceAllString(s, "")
	if s == "" {
		return fallbackEmpty
	}
	return s
}

// isReserved matches Windows device names, bare or with an extension
// ("NUL", "nul.txt").
func isReserved(s string) bool {
	upper := strings.ToUpper(s)
	if reservedNames[upper] {
		return true
	}
	if i := strings.IndexByte(upper, '.'); i > 0 {
		return reservedNames[upper[:i]]
	}
	return false
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
