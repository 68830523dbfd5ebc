package util

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var controlRun = regexp.MustCompile(`[\x00-\x1F\x7F]+`)

// SanitizeForLog removes control characters and newlines from user content before logging.
func SanitizeForLog(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return controlRun.ReplaceAllString(s, " ")
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// LogSafe is SanitizeForLog followed by Truncate, for values echoed into
// logs or audit records.
func LogSafe(s string, n int) string {
	return Truncate(SanitizeForLog(s), n)
}
