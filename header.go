package fileservd

import "strings"

// HeaderCategory is one of the four fixed header groups from RFC 7230,
// plus Other for names the table below doesn't recognize.
type HeaderCategory int

const (
	CategoryGeneral HeaderCategory = iota
	CategoryRequest
	CategoryResponse
	CategoryEntity
	CategoryOther
)

// HeaderName is a case-insensitive header name that renders canonically
// on output. Known names compare by their table entry; Other(name)
// preserves the spelling it was constructed with.
type HeaderName struct {
	Category  HeaderCategory
	Canonical string // wire form to render, e.g. "Cache-Control"
}

// OtherHeaderName builds a HeaderName for a name absent from the
// known-name table, keeping the exact spelling it is given. HeadParser
// passes the lowercased name, so the received capitalization of an
// unknown request header is not kept.
func OtherHeaderName(raw string) HeaderName {
	return HeaderName{Category: CategoryOther, Canonical: raw}
}

// Well-known header names, grouped the way RFC 7230 groups them.
var (
	HeaderCacheControl = HeaderName{CategoryGeneral, "Cache-Control"}
	HeaderConnection   = HeaderName{CategoryGeneral, "Connection"}
	HeaderDate         = HeaderName{CategoryGeneral, "Date"}

	HeaderHost           = HeaderName{CategoryRequest, "Host"}
	HeaderAccept         = HeaderName{CategoryRequest, "Accept"}
	HeaderAcceptCharset  = HeaderName{CategoryRequest, "Accept-Charset"}
	HeaderAcceptEncoding = HeaderName{CategoryRequest, "Accept-Encoding"}
	HeaderAcceptLanguage = HeaderName{CategoryRequest, "Accept-Language"}
	HeaderAuthorization  = HeaderName{CategoryRequest, "Authorization"}

	HeaderServer          = HeaderName{CategoryResponse, "Server"}
	HeaderWWWAuthenticate = HeaderName{CategoryResponse, "WWW-Authenticate"}
	HeaderLocation        = HeaderName{CategoryResponse, "Location"}

	HeaderContentType     = HeaderName{CategoryEntity, "Content-Type"}
	HeaderContentLength   = HeaderName{CategoryEntity, "Content-Length"}
	HeaderContentEncoding = HeaderName{CategoryEntity, "Content-Encoding"}
	HeaderContentLanguage = HeaderName{CategoryEntity, "Content-Language"}
)

// valueKind distinguishes which fields of HeaderValue are populated. Go
// has no tagged union, so HeaderValue is a flat struct with a kind tag,
// the idiom the teacher's codebase uses for its own sum-like types
// (HttpError.Err optional, Body variants).
type valueKind int

const (
	valueSimpleNumber valueKind = iota
	valueSimpleString
	valueSimpleMime
	valueParsedList
	valueCredentials
)

// Mime is a parsed "type/subtype" media range or media type.
type Mime struct {
	Type    string
	Subtype string
}

func (m Mime) String() string {
	return m.Type + "/" + m.Subtype
}

// ParamKey is a parsed-value parameter name: the distinguished Quality
// member or an arbitrary Other name.
type ParamKey struct {
	Quality bool
	Other   string
}

// ParamValue is a parsed-value parameter value: a finite float for
// Quality, or an arbitrary Other string.
type ParamValue struct {
	IsFloat bool
	Float   float32
	Other   string
}

// Param is one `name` or `name=value` member of a structured header
// value's parameter list.
type Param struct {
	Key   ParamKey
	Value ParamValue
}

// ParsedEntry is one comma-separated member of a Parsed header value:
// an atom (a Simple value) plus its ordered, canonically-sorted
// parameters.
type ParsedEntry struct {
	Atom   HeaderValue
	Params []Param
}

// HeaderValue is the typed value of a header, in one of the variants
// from spec §3: a single atomic value, a parsed list of atom+parameter
// entries, or decoded Basic credentials.
type HeaderValue struct {
	kind valueKind

	number uint64
	str    string
	mime   Mime

	parsed []ParsedEntry

	username string
	password string
}

func SimpleNumber(n uint64) HeaderValue { return HeaderValue{kind: valueSimpleNumber, number: n} }
func SimpleString(s string) HeaderValue { return HeaderValue{kind: valueSimpleString, str: s} }
func SimpleMime(m Mime) HeaderValue     { return HeaderValue{kind: valueSimpleMime, mime: m} }
func ParsedList(entries []ParsedEntry) HeaderValue {
	return HeaderValue{kind: valueParsedList, parsed: entries}
}
func Credentials(username, password string) HeaderValue {
	return HeaderValue{kind: valueCredentials, username: username, password: password}
}

func (v HeaderValue) IsSimpleNumber() (uint64, bool) {
	return v.number, v.kind == valueSimpleNumber
}
func (v HeaderValue) IsSimpleString() (string, bool) {
	return v.str, v.kind == valueSimpleString
}
func (v HeaderValue) IsSimpleMime() (Mime, bool) {
	return v.mime, v.kind == valueSimpleMime
}
func (v HeaderValue) IsParsedList() ([]ParsedEntry, bool) {
	return v.parsed, v.kind == valueParsedList
}
func (v HeaderValue) IsCredentials() (string, string, bool) {
	return v.username, v.password, v.kind == valueCredentials
}

// AsAtomString returns the plain string this value's atom represents,
// regardless of whether it was stored as a string or a mime: used by
// encoding-selection logic where any atom is compared against a literal
// ("gzip", "deflate", ...).
func (v HeaderValue) AsAtomString() (string, bool) {
	switch v.kind {
	case valueSimpleString:
		return v.str, true
	case valueSimpleMime:
		return v.mime.String(), true
	default:
		return "", false
	}
}

// sortParams orders a parameter list by key: Quality sorts first (the
// "distinguished value" from spec §3), then Other members sort
// alphabetically by name. This gives two independently-parsed
// occurrences of the same value a canonical, comparable form.
func sortParams(params []Param) {
	less := func(i, j int) bool {
		a, b := params[i].Key, params[j].Key
		if a.Quality != b.Quality {
			return a.Quality // quality < other
		}
		return a.Other < b.Other
	}
	// insertion sort: parameter lists are short (a handful of members)
	for i := 1; i < len(params); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			params[j], params[j-1] = params[j-1], params[j]
		}
	}
}

// canonicalHeaderName looks up the known-name table for a lowercased
// header name and reports whether one exists.
func canonicalHeaderName(lower string) (HeaderName, bool) {
	entry, ok := headerTable[lower]
	if !ok {
		return HeaderName{}, false
	}
	return HeaderName{Category: entry.category, Canonical: entry.canonical}, true
}

// Header is the response header map: canonical name -> rendered wire
// value. Unlike the request's typed Header (built by the parser),
// response headers are already rendered strings by the time the
// builder sets them (spec §4.3's response model has no typed value
// requirement, only the request side does).
type Header map[string]string

// Set stores value under name's canonical form, replacing any existing
// value.
func (h Header) Set(name HeaderName, value string) {
	h[name.Canonical] = value
}

// Get retrieves the value stored for name, case-sensitively on the
// canonical form (Header keys are always canonical once Set).
func (h Header) Get(name HeaderName) (string, bool) {
	v, ok := h[name.Canonical]
	return v, ok
}

// Has reports whether canonical carries an entry, matched
// case-insensitively against stored keys.
func (h Header) Has(canonical string) bool {
	for k := range h {
		if strings.EqualFold(k, canonical) {
			return true
		}
	}
	return false
}
