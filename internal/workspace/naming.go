package workspace

import (
	"strings"
	"unicode"
)

const (
	maxNameWords = 6
	maxNameLen   = 48
	defaultName  = "api-scripts"
)

// FolderName derives a filesystem-safe slug from free-form goal text.
// Lowercased, non-alphanumerics collapsed to single dashes, bounded length.
// Empty or fully non-alphanumeric input yields a stable default.
func FolderName(goal string) string {
	words := strings.FieldsFunc(strings.ToLower(goal), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) > maxNameWords {
		words = words[:maxNameWords]
	}

	name := strings.Join(words, "-")
	if len(name) > maxNameLen {
		name = strings.TrimRight(name[:maxNameLen], "-")
	}
	if name == "" {
		return defaultName
	}
	return name
}
