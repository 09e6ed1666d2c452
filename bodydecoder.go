package fileservd

import (
	"strings"

	"github.com/fileservd/fileservd/internal/bodycodec"
)

// DecodeRequestBody implements spec §4.2: consults the request's
// Content-Encoding and decompresses raw accordingly. An absent header
// returns raw unchanged. Only gzip and deflate are accepted for
// request bodies; any other atom fails even though the server can
// produce zstd/br on the response side.
func DecodeRequestBody(head *ReqHead, raw []byte) (*RequestBody, error) {
	contentType := ""
	if v, ok := head.Headers[HeaderContentType]; ok {
		contentType, _ = v.IsSimpleString()
	}

	value, ok := head.Headers[HeaderContentEncoding]
	if !ok {
		return &RequestBody{Data: raw, ContentType: contentType}, nil
	}
	entries, isList := value.IsParsedList()
	if !isList || len(entries) == 0 {
		return &RequestBody{Data: raw, ContentType: contentType}, nil
	}

	atom, _ := entries[0].Atom.AsAtomString()
	atom = strings.ToLower(atom)
	if atom != "gzip" && atom != "deflate" {
		return nil, NewError(ErrKindNoSupportedEncoding)
	}

	decoded, err := bodycodec.Decode(atom, raw)
	if err != nil {
		return nil, NewErrorWithCause(ErrKindBodyDecoding, err)
	}
	return &RequestBody{Data: decoded, ContentType: contentType}, nil
}
