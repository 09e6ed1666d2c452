package fileservd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"

	"github.com/fileservd/fileservd/log"
)

func TestBuilderDoBuildInjectsDateAndServer(t *testing.T) {
	resp := NewResponseBuilder("HTTP/1.1").DoBuild()
	_, ok := resp.Headers.Get(HeaderDate)
	assert.True(t, ok)
	server, ok := resp.Headers.Get(HeaderServer)
	assert.True(t, ok)
	assert.Equal(t, serverIdentity, server)
}

func TestBuilderDoBuildSetsContentLength(t *testing.T) {
	b := NewResponseBuilder("HTTP/1.1")
	b.resp.Body = &Body{Kind: BodyBytes, Bytes: []byte("hello")}
	resp := b.DoBuild()

	cl, ok := resp.Headers.Get(HeaderContentLength)
	assert.True(t, ok)
	assert.Equal(t, "5", cl)
}

func TestBuilderBuildErrorWithBody(t *testing.T) {
	resp := NewResponseBuilder("HTTP/1.1").BuildError(StatusNotFound, true)
	assert.Equal(t, StatusNotFound, resp.Status)
	assert.Contains(t, string(resp.Body.Bytes), "404")
	ct, ok := resp.Headers.Get(HeaderContentType)
	assert.True(t, ok)
	assert.Contains(t, ct, "text/html")
}

func TestBuilderBuildErrorWithoutBody(t *testing.T) {
	resp := NewResponseBuilder("HTTP/1.1").BuildError(StatusUnsupportedMediaType, false)
	assert.Equal(t, StatusUnsupportedMediaType, resp.Status)
	assert.Nil(t, resp.Body)
	cl, ok := resp.Headers.Get(HeaderContentLength)
	assert.True(t, ok)
	assert.Equal(t, "0", cl)
}

func TestBuilderBuildErrorUnauthorizedSetsWWWAuthenticate(t *testing.T) {
	resp := NewResponseBuilder("HTTP/1.1").BuildError(StatusUnauthorized, true)
	v, ok := resp.Headers.Get(HeaderWWWAuthenticate)
	assert.True(t, ok)
	assert.Equal(t, `Basic realm="simple"`, v)
}

func TestBuilderListDirectoryOrdering(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "lipsum.html"), []byte("x"), 0o644))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "fichier a caracteres speciaux francais.txt"), []byte("x"), 0o644))

	resp := NewResponseBuilder("HTTP/1.1").ListDirectory(dir, "/").DoBuild()
	assert.Equal(t, StatusOK, resp.Status)

	body := string(resp.Body.Bytes)
	idxDir := indexOf(body, "subdir/")
	idxFichier := indexOf(body, "fichier a caracteres speciaux francais.txt")
	idxLipsum := indexOf(body, "lipsum.html")

	assert.True(t, idxDir < idxFichier)
	assert.True(t, idxFichier < idxLipsum)
	assert.NotContains(t, body, `href="../"`)
}

func TestBuilderListDirectoryParentLink(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, os.Mkdir(filepath.Join(dir, "child"), 0o755))

	resp := NewResponseBuilder("HTTP/1.1").ListDirectory(filepath.Join(dir, "child"), "/child").DoBuild()
	assert.Contains(t, string(resp.Body.Bytes), `href="../"`)
}

func TestBuilderSetFileBodySmallFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.txt")
	assert.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	b := NewResponseBuilder("HTTP/1.1").SetFileBody(path, EncodingNone)
	assert.NoError(t, b.Err())
	resp := b.DoBuild()

	assert.Equal(t, BodyBytes, resp.Body.Kind)
	assert.Equal(t, "hello world", string(resp.Body.Bytes))
	ct, _ := resp.Headers.Get(HeaderContentType)
	assert.Contains(t, ct, "text/plain")
}

func TestBuilderSetFileBodyCompressesTextual(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	assert.NoError(t, os.WriteFile(path, []byte("<html><body>hi</body></html>"), 0o644))

	b := NewResponseBuilder("HTTP/1.1").SetFileBody(path, EncodingGzip)
	assert.NoError(t, b.Err())
	resp := b.DoBuild()

	enc, ok := resp.Headers.Get(HeaderContentEncoding)
	assert.True(t, ok)
	assert.Equal(t, "gzip", enc)
}

func TestBuilderListDirectoryJSON(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))

	resp := NewResponseBuilder("HTTP/1.1").ListDirectoryJSON(dir, "/").DoBuild()
	assert.Equal(t, StatusOK, resp.Status)
	ct, ok := resp.Headers.Get(HeaderContentType)
	assert.True(t, ok)
	assert.Contains(t, ct, "application/json")

	var rows []map[string]any
	assert.NoError(t, json.Unmarshal(resp.Body.Bytes, &rows))
	assert.Len(t, rows, 2)
	assert.Equal(t, "sub", rows[0]["name"])
	assert.Equal(t, true, rows[0]["dir"])
	assert.Equal(t, "/sub/", rows[0]["href"])
	assert.Equal(t, "a.txt", rows[1]["name"])
	assert.Equal(t, false, rows[1]["dir"])
}

func writeCGIScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.sh")
	assert.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

func TestBuilderRunCGISuccess(t *testing.T) {
	script := writeCGIScript(t, "#!/bin/sh\nprintf 'Content-Type: text/plain\\r\\n\\r\\nok\\n'\n")

	b := NewResponseBuilder("HTTP/1.1").RunCGI(context.Background(), CGIParams{
		Interpreter: "/bin/sh",
		ScriptPath:  script,
	}, nil)
	assert.NoError(t, b.Err())

	resp := b.DoBuild()
	assert.Equal(t, "Content-Type: text/plain\r\n", resp.RawHeaderBlock)
	assert.Equal(t, "ok\n", string(resp.Body.Bytes))
}

func TestBuilderRunCGINonZeroExitLogsStderrAndReturns500(t *testing.T) {
	script := writeCGIScript(t, "#!/bin/sh\nprintf 'boom' 1>&2\nexit 1\n")

	var out bytes.Buffer
	logger := log.New(&out, log.DebugLevel)

	b := NewResponseBuilder("HTTP/1.1").RunCGI(context.Background(), CGIParams{
		Interpreter: "/bin/sh",
		ScriptPath:  script,
	}, logger)

	resp := b.DoBuild()
	assert.Equal(t, StatusInternalServerError, resp.Status)
	assert.Contains(t, out.String(), "boom")
	assert.Contains(t, out.String(), script)
}

func TestBuilderRunCGINonZeroExitToleratesNilLogger(t *testing.T) {
	script := writeCGIScript(t, "#!/bin/sh\nexit 1\n")

	b := NewResponseBuilder("HTTP/1.1").RunCGI(context.Background(), CGIParams{
		Interpreter: "/bin/sh",
		ScriptPath:  script,
	}, nil)

	resp := b.DoBuild()
	assert.Equal(t, StatusInternalServerError, resp.Status)
}

func TestBuilderSetFileBodyNonexistentFails(t *testing.T) {
	b := NewResponseBuilder("HTTP/1.1").SetFileBody("/nonexistent/path", EncodingNone)
	assert.Error(t, b.Err())
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
