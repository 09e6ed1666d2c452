// Package bodycodec implements the compression codec collaborator
// spec.md §6 calls out as external to the core pipeline: gzip, deflate,
// zstd, and brotli, used both to decode request bodies (spec §4.2) and
// to compress response bodies before they are written to a temp file
// (spec §4.3's set_file_body).
package bodycodec

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Decode decompresses data per atom ("gzip", "deflate", "zstd", "br").
// An unrecognized atom is the caller's bug (the parser only ever
// selects one of these four); Decode returns an error rather than
// panicking since the failure is still recoverable at connection
// scope.
func Decode(atom string, data []byte) ([]byte, error) {
	switch atom {
	case "gzip":
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case "deflate":
		r := flate.NewReader(bytes.NewReader(data))
		defer r.Close()
		return io.ReadAll(r)
	case "zstd":
		r, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case "br":
		r := brotli.NewReader(bytes.NewReader(data))
		return io.ReadAll(r)
	default:
		return nil, fmt.Errorf("bodycodec: unsupported encoding %q", atom)
	}
}

// CompressToTempFile compresses src's content with atom's codec into a
// newly-created temp file, and returns it
// seeked back to the start so the caller can stat its size and stream
// it. The file is created with os.CreateTemp and removed by the caller
// once the response completes (success or failure) — see
// response.Body's ownership discipline in response.go.
func CompressToTempFile(atom string, src io.Reader) (*os.File, error) {
	f, err := os.CreateTemp("", "fileservd-body-*")
	if err != nil {
		return nil, err
	}

	if err := compressInto(atom, f, src); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, err
	}
	return f, nil
}

func compressInto(atom string, dst io.Writer, src io.Reader) error {
	switch atom {
	case "gzip":
		w := gzip.NewWriter(dst)
		if _, err := io.Copy(w, src); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	case "deflate":
		w, err := flate.NewWriter(dst, flate.DefaultCompression)
		if err != nil {
			return err
		}
		if _, err := io.Copy(w, src); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	case "zstd":
		w, err := zstd.NewWriter(dst)
		if err != nil {
			return err
		}
		if _, err := io.Copy(w, src); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	case "br":
		w := brotli.NewWriter(dst)
		if _, err := io.Copy(w, src); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	default:
		return fmt.Errorf("bodycodec: unsupported encoding %q", atom)
	}
}
