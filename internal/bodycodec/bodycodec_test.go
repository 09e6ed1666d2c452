package bodycodec

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompressToTempFileRoundTripsGzip(t *testing.T) {
	const payload = "the quick brown fox jumps over the lazy dog"
	f, err := CompressToTempFile("gzip", strings.NewReader(payload))
	assert.NoError(t, err)
	defer os.Remove(f.Name())
	defer f.Close()

	compressed, err := io.ReadAll(f)
	assert.NoError(t, err)

	decoded, err := Decode("gzip", compressed)
	assert.NoError(t, err)
	assert.Equal(t, payload, string(decoded))
}

func TestCompressToTempFileRoundTripsDeflate(t *testing.T) {
	const payload = "deflate me please"
	f, err := CompressToTempFile("deflate", strings.NewReader(payload))
	assert.NoError(t, err)
	defer os.Remove(f.Name())
	defer f.Close()

	compressed, err := io.ReadAll(f)
	assert.NoError(t, err)

	decoded, err := Decode("deflate", compressed)
	assert.NoError(t, err)
	assert.Equal(t, payload, string(decoded))
}

func TestCompressToTempFileRoundTripsZstd(t *testing.T) {
	const payload = "zstandard round trip"
	f, err := CompressToTempFile("zstd", strings.NewReader(payload))
	assert.NoError(t, err)
	defer os.Remove(f.Name())
	defer f.Close()

	compressed, err := io.ReadAll(f)
	assert.NoError(t, err)

	decoded, err := Decode("zstd", compressed)
	assert.NoError(t, err)
	assert.Equal(t, payload, string(decoded))
}

func TestCompressToTempFileRoundTripsBrotli(t *testing.T) {
	const payload = "brotli round trip"
	f, err := CompressToTempFile("br", strings.NewReader(payload))
	assert.NoError(t, err)
	defer os.Remove(f.Name())
	defer f.Close()

	compressed, err := io.ReadAll(f)
	assert.NoError(t, err)

	decoded, err := Decode("br", compressed)
	assert.NoError(t, err)
	assert.Equal(t, payload, string(decoded))
}

func TestDecodeUnsupportedAtom(t *testing.T) {
	_, err := Decode("identity", []byte("x"))
	assert.Error(t, err)
}

func TestCompressToTempFileUnsupportedAtom(t *testing.T) {
	_, err := CompressToTempFile("identity", strings.NewReader("x"))
	assert.Error(t, err)
}
