// Package pathsafe implements the path-traversal defense spec.md §4.5.1
// and §6 require: join the decoded request path onto the document
// root, canonicalize it, and require the result to still be beneath
// the root. No symlink resolution is performed beyond the one-time
// canonicalization of the document root itself at startup (spec §6).
package pathsafe

import (
	"path/filepath"
	"strings"
)

// Resolve joins decodedPath onto docRoot (which must already be an
// absolute, canonicalized directory — see settings.go) and reports
// whether the resulting path is still contained in docRoot. full is
// always returned (even when ok is false) so callers can log it.
func Resolve(docRoot, decodedPath string) (full string, ok bool) {
	joined := filepath.Join(docRoot, filepath.FromSlash(decodedPath))
	clean := filepath.Clean(joined)

	if clean == docRoot {
		return clean, true
	}
	if strings.HasPrefix(clean, docRoot+string(filepath.Separator)) {
		return clean, true
	}
	return clean, false
}
