package fileservd

import "fmt"

// ErrorKind enumerates the failure modes named in the error handling
// design: parser failures, unsupported encodings, body decoding, and
// CGI subprocess failures. Filesystem and socket errors are plain Go
// errors (os.PathError etc.) mapped to a status by the connection
// handler, not wrapped here.
type ErrorKind int

const (
	ErrKindAscii ErrorKind = iota
	ErrKindFirstLineEmptyLine
	ErrKindFirstLineInvalidFieldCount
	ErrKindFirstLineInvalidVerb
	ErrKindFirstLineInvalidTargetQuery
	ErrKindFirstLineInvalidTargetEncoding
	ErrKindHeaderNoColon
	ErrKindHeaderSpaceBeforeColon
	ErrKindHeaderNoComponent
	ErrKindHeaderInvalidMime
	ErrKindHeaderInvalidFloat
	ErrKindHeaderInvalidBasicCredentials
	ErrKindHeaderNumberParsing
	ErrKindNoSupportedEncoding
	ErrKindBodyDecoding
	ErrKindCGI
	ErrKindLineTooLong
)

var errKindText = map[ErrorKind]string{
	ErrKindAscii:                          "non-ASCII byte in head",
	ErrKindFirstLineEmptyLine:             "empty request line",
	ErrKindFirstLineInvalidFieldCount:     "request line must have exactly three fields",
	ErrKindFirstLineInvalidVerb:           "unrecognized verb",
	ErrKindFirstLineInvalidTargetQuery:    "malformed request target query",
	ErrKindFirstLineInvalidTargetEncoding: "malformed percent-encoding in request target",
	ErrKindHeaderNoColon:                  "header line has no colon and no preceding header to fold into",
	ErrKindHeaderSpaceBeforeColon:         "space before colon in header name",
	ErrKindHeaderNoComponent:              "header value missing required component",
	ErrKindHeaderInvalidMime:              "malformed MIME type",
	ErrKindHeaderInvalidFloat:             "malformed quality value",
	ErrKindHeaderInvalidBasicCredentials:  "malformed Basic credentials",
	ErrKindHeaderNumberParsing:            "malformed integer header value",
	ErrKindNoSupportedEncoding:            "no supported encoding in value",
	ErrKindBodyDecoding:                   "failed to decode request body",
	ErrKindCGI:                            "CGI subprocess failed",
	ErrKindLineTooLong:                    "head line exceeds maximum length",
}

func (k ErrorKind) String() string {
	if s, ok := errKindText[k]; ok {
		return s
	}
	return "unknown error"
}

// Error is the typed error surfaced by the parser, body decoder, and
// CGI runner. It never carries a client-facing message beyond its Kind
// text; callers that need to report a status to the client use Status
// and the canned StatusText reason, never Error() directly (spec
// policy: never expose internal error strings to clients).
type Error struct {
	Kind ErrorKind
	Err  error // underlying cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an Error with the given kind and no wrapped cause.
func NewError(kind ErrorKind) *Error {
	return &Error{Kind: kind}
}

// NewErrorWithCause builds an Error wrapping a lower-level cause (e.g.
// the codec error from a failed gzip decode).
func NewErrorWithCause(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, Err: cause}
}

// Status maps an ErrorKind to the HTTP status the connection handler
// should respond with. Parser and body-decoding errors are always 400;
// CGI failures are 500. Filesystem and auth failures are decided
// directly by the connection handler (§4.5.1, §4.5), not here.
func (k ErrorKind) Status() int {
	switch k {
	case ErrKindCGI:
		return StatusInternalServerError
	default:
		return StatusBadRequest
	}
}
