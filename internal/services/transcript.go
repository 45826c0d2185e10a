package services

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// UnknownValue replaces answers that could not be transcribed.
const UnknownValue = "Unknown"

// ValidTranscript rejects empty and single-character transcripts.
func ValidTranscript(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) >= 2
}

// CleanTranscript trims, collapses internal whitespace and capitalizes the first letter.
func CleanTranscript(text string) string {
	cleaned := strings.Join(strings.Fields(text), " ")
	if cleaned == "" {
		return cleaned
	}
	r, size := utf8.DecodeRuneInString(cleaned)
	return string(unicode.ToUpper(r)) + cleaned[size:]
}
