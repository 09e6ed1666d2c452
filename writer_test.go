package fileservd

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponseWriteToFormat(t *testing.T) {
	resp := &Response{
		Version: "HTTP/1.1",
		Status:  StatusOK,
		Headers: Header{"Content-Length": "5"},
		Body:    &Body{Kind: BodyBytes, Bytes: []byte("hello")},
	}

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	assert.NoError(t, resp.WriteTo(w))
	assert.NoError(t, w.Flush())

	out := buf.String()
	assert.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello", out)
}

func TestResponseWriteToNoBody(t *testing.T) {
	resp := &Response{Version: "HTTP/1.1", Status: StatusNoContent, Headers: Header{}}

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	assert.NoError(t, resp.WriteTo(w))
	assert.NoError(t, w.Flush())

	assert.Equal(t, "HTTP/1.1 204 No Content\r\n\r\n", buf.String())
}

func TestResponseWriteToRawHeaderBlock(t *testing.T) {
	resp := &Response{
		Version:        "HTTP/1.1",
		Status:         StatusOK,
		Headers:        Header{},
		RawHeaderBlock: "X-Cgi-Header: yes\r\n",
		Body:           &Body{Kind: BodyBytes, Bytes: []byte("body")},
	}

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	assert.NoError(t, resp.WriteTo(w))
	assert.NoError(t, w.Flush())

	assert.Equal(t, "HTTP/1.1 200 OK\r\nX-Cgi-Header: yes\r\n\r\nbody", buf.String())
}
