// Package mimeguess resolves a MIME type for a response body. It is
// the default implementation of the "MIME guessing tables" collaborator
// spec.md §6 names as external to the core pipeline: the response
// builder consumes it through a narrow (path, leading content bytes) ->
// (mime string) function, never touching the table or the sniffer
// directly.
package mimeguess

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultContentType is used when neither the extension table nor
// content sniffing can identify a type, matching spec §4.3's
// "set_file_body" default.
const DefaultContentType = "application/octet-stream"

// table is the extension -> MIME static map, the same shape as the
// original Rust implementation's res_builder.rs table (see
// original_source/src/res_builder.rs referenced in SPEC_FULL.md). It
// is consulted before falling back to content sniffing.
var table = map[string]string{
	".html": "text/html; charset=utf-8",
	".htm":  "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "text/javascript; charset=utf-8",
	".mjs":  "text/javascript; charset=utf-8",
	".json": "application/json",
	".txt":  "text/plain; charset=utf-8",
	".xml":  "application/xml",
	".csv":  "text/csv; charset=utf-8",
	".md":   "text/markdown; charset=utf-8",

	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".ico":  "image/x-icon",

	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",

	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".gz":   "application/gzip",
	".wasm": "application/wasm",

	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",

	".php": "application/x-httpd-php",
}

// ForPath returns the content type for path's extension, consulting
// the extension table first, then the stdlib's registered types
// (covers anything the host's mime.types adds), and finally sniffing
// the first bytes of the file's content when content is non-empty.
// Returns DefaultContentType when nothing matches.
func ForPath(path string, content []byte) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := table[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	if len(content) > 0 {
		return mimetype.Detect(content).String()
	}
	return DefaultContentType
}
