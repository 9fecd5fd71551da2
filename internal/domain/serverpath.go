package domain

import "strings"

// NormalizeServerPath trims trailing separators and unifies backslashes.
// "$/" itself is kept as is.
func NormalizeServerPath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), `\`, "/")
	for len(p) > len(ServerPathRoot) && strings.HasSuffix(p, "/") {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

// IsUnderServerPath reports whether path equals root or lies beneath it.
// Server paths compare case-insensitively.
func IsUnderServerPath(path, root string) bool {
	path = strings.ToLower(NormalizeServerPath(path))
	root = strings.ToLower(NormalizeServerPath(root))
	if root == "" {
		return false
	}
	if path == root {
		return true
	}
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}
	return strings.HasPrefix(path, root)
}

// RelativeServerPath returns path relative to root, or false when path is
// not under root.
func RelativeServerPath(path, root string) (string, bool) {
	if !IsUnderServerPath(path, root) {
		return "", false
	}
	path = NormalizeServerPath(path)
	root = NormalizeServerPath(root)
	rel := strings.TrimPrefix(path[len(root):], "/")
	return rel, true
}
