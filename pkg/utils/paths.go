// pkg/utils/paths.go - path rendering for generated batch files.

package utils

import "strings"

// BatchPath renders a path the way cmd.exe expects it: backslash
// separators, no doubled separators, no trailing separator.
func BatchPath(path string) string {
	if path == "" {
		return ""
	}
	normalized := strings.ReplaceAll(path, "/", `\`)

	// Keep a leading UNC prefix, collapse everything else.
	prefix := ""
	if strings.HasPrefix(normalized, `\\`) {
		prefix = `\\`
		normalized = strings.TrimLeft(normalized, `\`)
	}
	for strings.Contains(normalized, `\\`) {
		normalized = strings.ReplaceAll(normalized, `\\`, `\`)
	}
	if len(normalized) > 1 && !(len(normalized) == 3 && normalized[1] == ':') {
		normalized = strings.TrimRight(normalized, `\`)
	}
	return prefix + normalized
}

// BatchJoin joins path elements with backslashes.
func BatchJoin(elem ...string) string {
	parts := make([]string, 0, len(elem))
	for _, e := range elem {
		if e != "" {
			parts = append(parts, e)
		}
	}
	return BatchPath(strings.Join(parts, `\`))
}

// DriveLetter returns the drive of a path such as "C:" or "" when the
// path has none. Only the path text is inspected.
func DriveLetter(path string) string {
	if len(path) >= 2 && path[1] == ':' {
		c := path[0]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			return strings.ToUpper(path[:1]) + ":"
		}
	}
	return ""
}
