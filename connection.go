package fileservd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/fileservd/fileservd/internal/cgi"
	"github.com/fileservd/fileservd/internal/pathsafe"
	"github.com/fileservd/fileservd/internal/pool"
	"github.com/fileservd/fileservd/log"
	"github.com/fileservd/fileservd/middleware/accesslog"
)

// maxLineLength is the hard per-line cap spec §5 requires as a
// bounded-memory guarantee against head flooding.
const maxLineLength = 8000

// errConnClosed signals a clean EOF at a line boundary: the peer
// closed the connection between requests, not mid-message.
var errConnClosed = errors.New("fileservd: connection closed")

var lineBufferPool = pool.NewBuffer(1024, func(size int) []byte {
	return make([]byte, 0, size)
})

// ServeConn drives one connection's request/response loop per spec
// §4.5's state machine (READ_HEAD -> PARSE -> DISPATCH ->
// WRITE_RESPONSE -> READ_HEAD or SHUTDOWN) until the peer closes, a
// fatal I/O error occurs, or Connection: close is requested. It owns
// conn exclusively — the parser and writer only ever borrow it (spec
// §9).
func ServeConn(ctx context.Context, conn net.Conn, settings Settings, logger log.ILogger) {
	defer conn.Close()

	reader := bufio.NewReaderSize(conn, 16*1024)
	writer := bufio.NewWriterSize(conn, 16*1024)
	parser := NewHeadParser()
	peer := conn.RemoteAddr().String()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		parser.Reset()
		readErr := readHead(reader, parser)

		var head *ReqHead
		var resp *Response

		switch {
		case readErr == errConnClosed:
			return
		case readErr != nil:
			if ferr, ok := readErr.(*Error); ok {
				resp = NewResponseBuilder("HTTP/1.1").BuildError(ferr.Kind.Status(), true)
			} else {
				logError(logger, readErr, "connection read error")
				return
			}
		default:
			var parseErr error
			head, parseErr = parser.DoParse()
			if parseErr != nil {
				if ferr, ok := parseErr.(*Error); ok {
					resp = NewResponseBuilder("HTTP/1.1").BuildError(ferr.Kind.Status(), true)
				} else {
					resp = NewResponseBuilder("HTTP/1.1").BuildError(StatusBadRequest, true)
				}
				head = nil
			}
		}

		var body *RequestBody
		if resp == nil && head != nil {
			var bodyErr error
			body, bodyErr = readRequestBody(reader, head)
			if bodyErr != nil {
				logError(logger, bodyErr, "body read error")
				return
			}
		}

		if resp == nil {
			decoded, decodeErr := decodeBodyOrError(head, body)
			if decodeErr != nil {
				resp = NewResponseBuilder(head.Version).BuildError(decodeErr.Kind.Status(), true)
			} else {
				body = decoded
				resp = dispatch(ctx, head, body, settings, peer, logger)
			}
		}

		resp = negotiateContentType(head, resp)

		firstLine := "-"
		if head != nil {
			firstLine = requestLineOf(head)
		}
		status := resp.Status
		bodyLen := resp.Body.Len()

		writeErr := resp.WriteTo(writer)
		if writeErr == nil {
			writeErr = writer.Flush()
		}
		resp.Body.Close()

		logAccess(logger, peer, firstLine, status, bodyLen)

		if writeErr != nil {
			return
		}
		if readErr != nil {
			return
		}
		if head != nil && requestWantsClose(head) {
			return
		}
	}
}

// readHead feeds line-framed input into p until the head completes or
// a fatal condition is reached.
func readHead(r *bufio.Reader, p *HeadParser) error {
	for {
		line, err := readLineCapped(r, maxLineLength)
		if err != nil {
			return err
		}
		if perr := p.Process(line); perr != nil {
			return perr
		}
		if p.IsComplete() {
			return nil
		}
	}
}

// readLineCapped reads through the next '\n'. A line that grows past
// maxLen bytes before its '\n' fails with ErrKindLineTooLong. A clean EOF before any byte is read reports
// errConnClosed; any other EOF or I/O error is returned as-is.
func readLineCapped(r *bufio.Reader, maxLen int) ([]byte, error) {
	buf := lineBufferPool.Get()
	defer lineBufferPool.Put(buf)

	for {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && len(buf) == 0 {
				return nil, errConnClosed
			}
			return nil, err
		}
		buf = append(buf, b)
		if b == '\n' {
			out := make([]byte, len(buf))
			copy(out, buf)
			return out, nil
		}
		if len(buf) > maxLen {
			return nil, NewError(ErrKindLineTooLong)
		}
	}
}

// readRequestBody reads exactly Content-Length bytes when present and
// positive; a missing or zero Content-Length produces no body.
func readRequestBody(r *bufio.Reader, head *ReqHead) (*RequestBody, error) {
	v, ok := head.Headers[HeaderContentLength]
	if !ok {
		return nil, nil
	}
	n, isNum := v.IsSimpleNumber()
	if !isNum || n == 0 {
		return nil, nil
	}

	raw := make([]byte, n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, err
	}

	contentType := ""
	if ct, ok := head.Headers[HeaderContentType]; ok {
		contentType, _ = ct.IsSimpleString()
	}
	return &RequestBody{Data: raw, ContentType: contentType}, nil
}

// decodeBodyOrError applies spec §4.2's Content-Encoding decode step
// to an already fully-read body. A nil body (no Content-Length) is
// returned unchanged.
func decodeBodyOrError(head *ReqHead, raw *RequestBody) (*RequestBody, *Error) {
	if raw == nil {
		return nil, nil
	}
	decoded, err := DecodeRequestBody(head, raw.Data)
	if err != nil {
		return nil, err.(*Error)
	}
	return decoded, nil
}

// dispatch implements the AUTH GATE and verb dispatch of spec §4.5
// steps 3-4.
func dispatch(ctx context.Context, head *ReqHead, body *RequestBody, settings Settings, peer string, logger log.ILogger) *Response {
	b := NewResponseBuilder(head.Version)

	if len(settings.AuthCreds) > 0 {
		if head.Credentials == nil || !settings.MatchCredential(head.Credentials.Username, head.Credentials.Password) {
			return b.BuildError(StatusUnauthorized, true)
		}
	}

	if head.Verb != VerbGet {
		return b.BuildError(StatusMethodNotAllowed, true)
	}

	return staticResourceFlow(ctx, b, head, body, settings, peer, logger)
}

// staticResourceFlow implements spec §4.5.1.
func staticResourceFlow(ctx context.Context, b *ResponseBuilder, head *ReqHead, body *RequestBody, settings Settings, peer string, logger log.ILogger) *Response {
	if head.Target.Kind == TargetAll {
		return b.BuildError(StatusBadRequest, true)
	}

	full, ok := pathsafe.Resolve(settings.DocRoot, head.Target.Decoded)
	if !ok {
		return b.BuildError(StatusForbidden, true)
	}

	info, err := os.Stat(full)
	if err != nil {
		return b.BuildError(mapFSError(err), true)
	}

	if info.IsDir() {
		if !settings.AllowDirListing {
			return b.BuildError(StatusForbidden, true)
		}
		var built *ResponseBuilder
		if wantsJSONListing(head) {
			built = b.ListDirectoryJSON(full, head.Target.Decoded)
		} else {
			built = b.ListDirectory(full, head.Target.Decoded)
		}
		if built.Err() != nil {
			return NewResponseBuilder(head.Version).BuildError(mapFSError(built.Err()), true)
		}
		return built.DoBuild()
	}

	ext := strings.ToLower(filepath.Ext(full))
	if settings.CGIEnabled() && settings.IsCGIScript(ext) {
		params := buildCGIParams(head, body, full, settings, peer)
		built := b.RunCGI(ctx, params, logger)
		if built.Err() != nil {
			return NewResponseBuilder(head.Version).BuildError(StatusInternalServerError, true)
		}
		return built.DoBuild()
	}

	built := b.SetFileBody(full, head.Encoding)
	if built.Err() != nil {
		return NewResponseBuilder(head.Version).BuildError(mapFSError(built.Err()), true)
	}
	return built.DoBuild()
}

// mapFSError implements spec §4.5.1's filesystem error mapping.
func mapFSError(err error) int {
	switch {
	case os.IsNotExist(err):
		return StatusNotFound
	case os.IsPermission(err):
		return StatusForbidden
	default:
		return StatusInternalServerError
	}
}

// buildCGIParams assembles the environment-table inputs for spec
// §4.6 from the resolved script and request.
func buildCGIParams(head *ReqHead, body *RequestBody, scriptPath string, settings Settings, peer string) cgi.Params {
	serverName, serverPort := splitHostPort(settings.Address)

	contentType := ""
	var bodyBytes []byte
	if body != nil {
		contentType = body.ContentType
		bodyBytes = body.Data
	}

	var contentLength int64
	if v, ok := head.Headers[HeaderContentLength]; ok {
		if n, isNum := v.IsSimpleNumber(); isNum {
			contentLength = int64(n)
		}
	}

	authUser := ""
	hasAuth := head.Credentials != nil
	if hasAuth {
		authUser = head.Credentials.Username
	}

	remoteAddr := peer
	if host, _, err := net.SplitHostPort(peer); err == nil {
		remoteAddr = host
	}

	return cgi.Params{
		Interpreter:    settings.CGIInterpreter,
		Verb:           head.Verb.String(),
		ScriptPath:     scriptPath,
		ScriptName:     filepath.Base(scriptPath),
		PathInfo:       head.Target.Decoded,
		Query:          head.Target.Query,
		ContentLength:  contentLength,
		ContentType:    contentType,
		RemoteAddr:     remoteAddr,
		AuthUser:       authUser,
		HasAuth:        hasAuth,
		ServerName:     serverName,
		ServerPort:     serverPort,
		ServerProtocol: head.Version,
		Body:           bodyBytes,
	}
}

func splitHostPort(addr string) (string, string) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, ""
	}
	return host, port
}

// wantsJSONListing reports whether the request's Accept header rules
// out text/html but still allows application/json, in which case a
// directory listing is rendered as JSON instead of HTML.
func wantsJSONListing(head *ReqHead) bool {
	acceptVal, ok := head.Headers[HeaderAccept]
	if !ok {
		return false
	}
	htmlOK := acceptableAgainst(acceptVal, Mime{Type: "text", Subtype: "html"})
	jsonOK := acceptableAgainst(acceptVal, Mime{Type: "application", Subtype: "json"})
	return !htmlOK && jsonOK
}

// negotiateContentType implements spec §4.5.2.
func negotiateContentType(head *ReqHead, resp *Response) *Response {
	if head == nil || resp == nil {
		return resp
	}
	acceptVal, ok := head.Headers[HeaderAccept]
	if !ok {
		return resp
	}
	contentType, ok := resp.Headers.Get(HeaderContentType)
	if !ok {
		return resp
	}
	produced, err := parseMime(firstMimeToken(contentType))
	if err != nil {
		return resp
	}
	if !acceptableAgainst(acceptVal, produced) {
		old := resp
		replacement := NewResponseBuilder(old.Version).BuildError(StatusUnsupportedMediaType, false)
		old.Body.Close()
		return replacement
	}
	return resp
}

func firstMimeToken(contentType string) string {
	if idx := strings.IndexByte(contentType, ';'); idx >= 0 {
		return strings.TrimSpace(contentType[:idx])
	}
	return contentType
}

// requestLineOf reconstructs the first line for the access log.
func requestLineOf(head *ReqHead) string {
	target := "*"
	if head.Target.Kind == TargetPath {
		target = head.Target.Original
		if head.Target.Query != "" {
			target += "?" + head.Target.Query
		}
	}
	return fmt.Sprintf("%s %s %s", head.Verb, target, head.Version)
}

// requestWantsClose reports whether the request carries
// Connection: close.
func requestWantsClose(head *ReqHead) bool {
	v, ok := head.Headers[HeaderConnection]
	if !ok {
		return false
	}
	s, ok := v.IsSimpleString()
	return ok && strings.EqualFold(strings.TrimSpace(s), "close")
}

func logAccess(logger log.ILogger, peer, firstLine string, status int, bodyLen int64) {
	if logger == nil {
		return
	}
	msg := accesslog.Format(accesslog.DefaultConfig(), accesslog.Entry{
		RemoteAddr:  peer,
		RequestLine: firstLine,
		Status:      status,
		BodyBytes:   bodyLen,
	})

	var event log.IEvent
	switch {
	case status >= 500:
		event = logger.Error()
	case status >= 400:
		event = logger.Warn()
	default:
		event = logger.Info()
	}
	if event != nil {
		event.Msg(msg)
	}
}

// logError emits msg at error level with err attached, tolerating a
// logger whose configured level filters Error out.
func logError(logger log.ILogger, err error, msg string) {
	if logger == nil {
		return
	}
	if event := logger.Error(); event != nil {
		event.Err(err).Msg(msg)
	}
}
