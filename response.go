package fileservd

import "os"

// BodyKind distinguishes Response.Body's two variants from spec §3.
type BodyKind int

const (
	BodyNone BodyKind = iota
	BodyBytes
	BodyStream
)

// Body is the response body: either an in-memory byte slice (error
// pages, directory listings, CGI output, and files <= 1 MiB) or an
// already-open file handle with a known length (files > 1 MiB). The
// Stream variant owns its handle; Close removes any backing temp file
// created for on-the-fly compression (internal/bodycodec.CompressToTempFile)
// so the file is deleted once the response completes, success or
// failure, matching the RAII discipline spec.md §9 describes.
type Body struct {
	Kind BodyKind

	Bytes []byte

	Stream   *os.File
	Length   int64
	tempPath string // non-empty when Stream backs a compressed temp file
}

// Len reports the body's byte length regardless of variant.
func (b *Body) Len() int64 {
	if b == nil {
		return 0
	}
	switch b.Kind {
	case BodyBytes:
		return int64(len(b.Bytes))
	case BodyStream:
		return b.Length
	default:
		return 0
	}
}

// Close releases the body's file handle, if any, and removes its
// backing temp file when one was created for compression.
func (b *Body) Close() error {
	if b == nil || b.Kind != BodyStream || b.Stream == nil {
		return nil
	}
	err := b.Stream.Close()
	if b.tempPath != "" {
		os.Remove(b.tempPath)
	}
	return err
}

// Response is the fully-built HTTP response: status, headers, body,
// and (for CGI pass-through) a raw, pre-serialized header block that
// is appended verbatim after the builder's own headers.
type Response struct {
	Version string
	Status  int
	Headers Header
	Body    *Body

	// RawHeaderBlock is injected verbatim by the CGI runner when the
	// subprocess supplies its own header lines (spec §4.6).
	RawHeaderBlock string
}
