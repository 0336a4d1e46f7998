package media

import (
	"path/filepath"
	"regexp"
	"strings"
)

var whitespace = regexp.MustCompile(`\s+`)

// CleanLabel derives a display label from a file path: the base name without its
// extension, with dots and underscores read as spaces.
func CleanLabel(fullPath string) string {
	base := filepath.Base(fullPath)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	cleaned := strings.ReplaceAll(name, ".", " ")
	cleaned = strings.ReplaceAll(cleaned, "_", " ")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = whitespace.ReplaceAllString(cleaned, " ")

	if cleaned == "" {
		return base
	}
	return cleaned
}
