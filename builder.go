package fileservd

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"os"
	"path"
	"sort"
	"time"

	"github.com/fileservd/fileservd/internal/bodycodec"
	"github.com/fileservd/fileservd/internal/cgi"
	"github.com/fileservd/fileservd/internal/mimeguess"
	"github.com/fileservd/fileservd/log"
	"github.com/goccy/go-json"
)

// maxInMemoryBody is the size cutoff spec §3 draws between Body.Bytes
// and Body.Stream.
const maxInMemoryBody = 1 << 20 // 1 MiB

const serverIdentity = "fileservd"

// ResponseBuilder accumulates a Response across chainable mutators,
// culminating in DoBuild (or BuildError, which calls DoBuild itself).
// This mirrors the teacher's Ctx header/body accumulation pattern in
// the removed context.go, narrowed to the operations spec §4.3 names.
type ResponseBuilder struct {
	resp *Response
	err  error
}

// NewResponseBuilder starts a builder for a response of the given
// HTTP version, defaulting to 200 with no body.
func NewResponseBuilder(version string) *ResponseBuilder {
	return &ResponseBuilder{
		resp: &Response{
			Version: version,
			Status:  StatusOK,
			Headers: make(Header, 4),
		},
	}
}

// Status sets the response status code.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.resp.Status = code
	return b
}

// SetHeader stores a rendered header value under name's canonical
// form.
func (b *ResponseBuilder) SetHeader(name HeaderName, value string) *ResponseBuilder {
	b.resp.Headers.Set(name, value)
	return b
}

func (b *ResponseBuilder) fail(err error) *ResponseBuilder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// dirEntry is one row of a directory listing.
type dirEntry struct {
	name  string
	isDir bool
}

// ListDirectory implements spec §4.3's list_directory: an HTML index
// of dirAbs, directories first then files, each group alphabetical,
// with a ".." parent link when relURL isn't the document root.
func (b *ResponseBuilder) ListDirectory(dirAbs, relURL string) *ResponseBuilder {
	if b.err != nil {
		return b
	}

	f, err := os.Open(dirAbs)
	if err != nil {
		return b.fail(err)
	}
	defer f.Close()

	names, err := f.Readdirnames(-1)
	if err != nil {
		return b.fail(err)
	}

	entries := make([]dirEntry, 0, len(names))
	for _, name := range names {
		info, err := os.Stat(path.Join(dirAbs, name))
		if err != nil {
			continue
		}
		entries = append(entries, dirEntry{name: name, isDir: info.IsDir()})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].isDir != entries[j].isDir {
			return entries[i].isDir // directories first
		}
		return entries[i].name < entries[j].name
	})

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<!DOCTYPE html>\n<html><head><title>Index of %s</title></head><body>\n", html.EscapeString(relURL))
	fmt.Fprintf(&buf, "<h1>Index of %s</h1>\n<ul>\n", html.EscapeString(relURL))

	if relURL != "/" {
		buf.WriteString(`<li><a href="../">..</a></li>` + "\n")
	}

	base := relURL
	if !hasTrailingSlash(base) {
		base += "/"
	}
	for _, e := range entries {
		display := e.name
		href := joinURL(base, e.name)
		if e.isDir {
			display += "/"
			href += "/"
		}
		fmt.Fprintf(&buf, "<li><a href=\"%s\">%s</a></li>\n", html.EscapeString(href), html.EscapeString(display))
	}
	buf.WriteString("</ul>\n</body></html>\n")

	b.resp.Headers.Set(HeaderContentType, "text/html; charset=utf-8")
	b.resp.Body = &Body{Kind: BodyBytes, Bytes: buf.Bytes()}
	return b
}

// jsonDirEntry is the wire shape of one row in the JSON alt-view of a
// directory listing, served when the client's Accept header excludes
// text/html but allows application/json.
type jsonDirEntry struct {
	Name string `json:"name"`
	Dir  bool   `json:"dir"`
	Href string `json:"href"`
}

// ListDirectoryJSON renders the same directory contents as
// ListDirectory, as a JSON array, for clients that negotiated
// application/json instead of text/html.
func (b *ResponseBuilder) ListDirectoryJSON(dirAbs, relURL string) *ResponseBuilder {
	if b.err != nil {
		return b
	}

	f, err := os.Open(dirAbs)
	if err != nil {
		return b.fail(err)
	}
	defer f.Close()

	names, err := f.Readdirnames(-1)
	if err != nil {
		return b.fail(err)
	}

	entries := make([]dirEntry, 0, len(names))
	for _, name := range names {
		info, err := os.Stat(path.Join(dirAbs, name))
		if err != nil {
			continue
		}
		entries = append(entries, dirEntry{name: name, isDir: info.IsDir()})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].isDir != entries[j].isDir {
			return entries[i].isDir
		}
		return entries[i].name < entries[j].name
	})

	base := relURL
	if !hasTrailingSlash(base) {
		base += "/"
	}

	rows := make([]jsonDirEntry, 0, len(entries))
	for _, e := range entries {
		href := joinURL(base, e.name)
		if e.isDir {
			href += "/"
		}
		rows = append(rows, jsonDirEntry{Name: e.name, Dir: e.isDir, Href: href})
	}

	data, err := json.Marshal(rows)
	if err != nil {
		return b.fail(err)
	}

	b.resp.Headers.Set(HeaderContentType, "application/json; charset=utf-8")
	b.resp.Body = &Body{Kind: BodyBytes, Bytes: data}
	return b
}

func hasTrailingSlash(s string) bool {
	return len(s) > 0 && s[len(s)-1] == '/'
}

// joinURL concatenates a directory URL and a name using exactly one
// slash, regardless of whether base already ends with one.
func joinURL(base, name string) string {
	if hasTrailingSlash(base) {
		return base + name
	}
	return base + "/" + name
}

// SetFileBody implements spec §4.3's set_file_body: resolves the MIME
// type from path's extension, optionally compresses the file into a
// temp file when encoding is requested and the type is textual, then
// chooses Body.Stream or Body.Bytes by the compressed (or original)
// file's size.
func (b *ResponseBuilder) SetFileBody(filePath string, encoding Encoding) *ResponseBuilder {
	if b.err != nil {
		return b
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return b.fail(err)
	}

	// Only sniff content for the mime table's fallback path when the
	// file is small enough to read cheaply; large files rely on the
	// extension table or the stdlib registry.
	var sniff []byte
	if info.Size() > 0 && info.Size() <= 512 {
		if f, err := os.Open(filePath); err == nil {
			sniff = make([]byte, info.Size())
			io.ReadFull(f, sniff)
			f.Close()
		}
	}
	contentType := mimeguess.ForPath(filePath, sniff)
	b.resp.Headers.Set(HeaderContentType, contentType)

	servePath := filePath
	var tempFile *os.File
	if encoding != EncodingNone && isTextualMime(contentType) {
		f, err := os.Open(filePath)
		if err != nil {
			return b.fail(err)
		}
		defer f.Close()

		compressed, err := bodycodec.CompressToTempFile(encoding.String(), f)
		if err != nil {
			return b.fail(err)
		}
		tempFile = compressed
		b.resp.Headers.Set(HeaderContentEncoding, encoding.String())

		stat, err := compressed.Stat()
		if err != nil {
			compressed.Close()
			os.Remove(compressed.Name())
			return b.fail(err)
		}
		info = stat
	}

	if info.Size() > maxInMemoryBody {
		var stream *os.File
		var tempPath string
		if tempFile != nil {
			stream = tempFile
			tempPath = tempFile.Name()
		} else {
			stream, err = os.Open(servePath)
			if err != nil {
				return b.fail(err)
			}
		}
		b.resp.Body = &Body{Kind: BodyStream, Stream: stream, Length: info.Size(), tempPath: tempPath}
		return b
	}

	var data []byte
	if tempFile != nil {
		data, err = io.ReadAll(tempFile)
		tempFile.Close()
		os.Remove(tempFile.Name())
	} else {
		data, err = os.ReadFile(servePath)
	}
	if err != nil {
		return b.fail(err)
	}
	b.resp.Body = &Body{Kind: BodyBytes, Bytes: data}
	return b
}

// isTextualMime reports whether contentType's top-level type is
// "text", the condition spec §4.3 requires before compressing a file
// body.
func isTextualMime(contentType string) bool {
	for i := 0; i < len(contentType); i++ {
		switch contentType[i] {
		case '/':
			return contentType[:i] == "text"
		case ';':
			return false
		}
	}
	return false
}

// CGIParams is the input to RunCGI, assembled by the connection
// handler from the resolved script path and request head.
type CGIParams = cgi.Params

// RunCGI implements spec §4.6: invokes the configured interpreter and
// splits its stdout into a raw header block and a body. A non-zero
// exit logs the subprocess's stderr through logger (which may be nil)
// before producing a 500.
func (b *ResponseBuilder) RunCGI(ctx context.Context, params CGIParams, logger log.ILogger) *ResponseBuilder {
	if b.err != nil {
		return b
	}

	result, err := cgi.Run(ctx, params)
	if err != nil {
		return b.fail(err)
	}
	if result.ExitCode != 0 {
		if logger != nil {
			if event := logger.Error(); event != nil {
				event.Msgf("cgi: %s exited %d: %s", params.ScriptPath, result.ExitCode, result.Stderr)
			}
		}
		return b.BuildError(StatusInternalServerError, true)
	}

	b.resp.RawHeaderBlock = result.HeaderBlock
	b.resp.Body = &Body{Kind: BodyBytes, Bytes: result.Body}
	return b
}

// BuildError implements spec §4.3's build_error: sets status, injects
// WWW-Authenticate on 401, and either writes a canned HTML body or an
// explicit Content-Length: 0. Always finalizes via DoBuild.
func (b *ResponseBuilder) BuildError(status int, withBody bool) *Response {
	b.resp.Status = status
	b.resp.Body = nil
	b.err = nil

	if status == StatusUnauthorized {
		b.resp.Headers.Set(HeaderWWWAuthenticate, `Basic realm="simple"`)
	}

	if withBody {
		b.resp.Headers.Set(HeaderContentType, "text/html; charset=utf-8")
		body := fmt.Sprintf("<h1>%d %s</h1>", status, StatusText(status))
		b.resp.Body = &Body{Kind: BodyBytes, Bytes: []byte(body)}
	} else {
		b.resp.Headers.Set(HeaderContentLength, "0")
	}

	return b.DoBuild()
}

// DoBuild implements spec §4.3's do_build: injects Date/Server when
// absent, and Content-Length when a non-empty body exists.
func (b *ResponseBuilder) DoBuild() *Response {
	if _, ok := b.resp.Headers.Get(HeaderDate); !ok {
		b.resp.Headers.Set(HeaderDate, time.Now().UTC().Format(time.RFC1123))
	}
	if _, ok := b.resp.Headers.Get(HeaderServer); !ok {
		b.resp.Headers.Set(HeaderServer, serverIdentity)
	}
	if b.resp.Body != nil && b.resp.Body.Len() > 0 {
		b.resp.Headers.Set(HeaderContentLength, fmt.Sprintf("%d", b.resp.Body.Len()))
	}
	return b.resp
}

// Err returns the first filesystem/subprocess error encountered by a
// mutator, or nil. The connection handler maps this to a status via
// mapFSError before falling back to BuildError(500, true).
func (b *ResponseBuilder) Err() error {
	return b.err
}
