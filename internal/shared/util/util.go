package util

import (
	"sort"
	"strings"
)

// NormalizeSlashes converts backslash separators into forward slashes.
func NormalizeSlashes(s string) string {
	return strings.ReplaceAll(s, "\\", "/")
}

// NormalizeWorkspacePath collapses "." and ".." segments and drops empty
// segments. The result never has a leading or trailing slash. A ".." that
// would climb above the workspace root is discarded.
func NormalizeWorkspacePath(p string) string {
	parts := strings.Split(NormalizeSlashes(p), "/")
	stack := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, part)
		}
	}
	return strings.Join(stack, "/")
}

// Dirname returns everything before the last slash, or "" for top-level paths.
func Dirname(p string) string {
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return ""
	}
	return p[:idx]
}

// Basename returns the final path segment.
func Basename(p string) string {
	return p[strings.LastIndex(p, "/")+1:]
}

// Ext returns the lower-cased extension of the final segment without the dot.
func Ext(p string) string {
	base := Basename(p)
	idx := strings.LastIndex(base, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(base[idx+1:])
}

// Stem returns the final segment with its last extension removed. Dotfiles
// such as ".bashrc" keep their full name.
func Stem(p string) string {
	base := Basename(p)
	if idx := strings.LastIndex(base, "."); idx > 0 {
		return base[:idx]
	}
	return base
}

// SortedStringKeys returns the map's keys in sorted order.
func SortedStringKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
