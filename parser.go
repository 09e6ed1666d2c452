package fileservd

import (
	"encoding/base64"
	"net/url"
	"strconv"
	"strings"
)

func base64Decode(s string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// parserState is the three-state machine from spec §4.1.
type parserState int

const (
	stateRequestLine parserState = iota
	stateHeaders
	stateDone
)

// HeadParser incrementally consumes one already line-framed byte slice
// at a time (the caller owns line framing; see connection.go's
// bufio.Reader loop) and accumulates a raw, folded header map. Once
// complete, DoParse materializes the typed ReqHead.
type HeadParser struct {
	state       parserState
	requestLine string

	order   []string          // lowercased header names, first-seen order
	raw     map[string]*string // lowercased name -> folded value being built
	lastKey string
	hasLast bool
}

// NewHeadParser returns a parser ready to consume a request line.
func NewHeadParser() *HeadParser {
	return &HeadParser{raw: make(map[string]*string, 8)}
}

// Reset returns the parser to its initial state so a connection can
// parse its next request without allocating a new one (spec §4.5 step
// 6: "go to READ_HEAD with a reset parser").
func (p *HeadParser) Reset() {
	p.state = stateRequestLine
	p.requestLine = ""
	p.order = p.order[:0]
	p.raw = make(map[string]*string, 8)
	p.lastKey = ""
	p.hasLast = false
}

// IsComplete reports whether the empty line terminating the head has
// been seen.
func (p *HeadParser) IsComplete() bool {
	return p.state == stateDone
}

// Process feeds one line into the state machine. The caller need not
// strip the line terminator first; Process trims a single trailing
// CRLF or LF itself.
func (p *HeadParser) Process(line []byte) error {
	if p.state == stateDone {
		panic("fileservd: HeadParser.Process called after Done")
	}

	line = stripLineEnding(line)
	if !isASCII(line) {
		return NewError(ErrKindAscii)
	}

	switch p.state {
	case stateRequestLine:
		if len(line) == 0 {
			return NewError(ErrKindFirstLineEmptyLine)
		}
		p.requestLine = string(line)
		p.state = stateHeaders
		return nil

	case stateHeaders:
		if len(line) == 0 {
			p.state = stateDone
			return nil
		}
		if idx := indexByte(line, ':'); idx >= 0 {
			if idx > 0 && line[idx-1] == ' ' {
				return NewError(ErrKindHeaderSpaceBeforeColon)
			}
			name := strings.ToLower(string(line[:idx]))
			value := strings.TrimLeft(string(line[idx+1:]), " \t")
			p.appendValue(name, value)
			p.lastKey = name
			p.hasLast = true
			return nil
		}
		if !p.hasLast {
			return NewError(ErrKindHeaderNoColon)
		}
		p.appendValue(p.lastKey, string(line))
		return nil

	default:
		panic("fileservd: HeadParser in unknown state")
	}
}

func (p *HeadParser) appendValue(lowerName, value string) {
	if existing, ok := p.raw[lowerName]; ok {
		*existing = *existing + value
		return
	}
	v := value
	p.raw[lowerName] = &v
	p.order = append(p.order, lowerName)
}

func stripLineEnding(line []byte) []byte {
	if len(line) > 0 && line[len(line)-1] == '\n' {
		line = line[:len(line)-1]
	}
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return line
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c > 0x7f {
			return false
		}
	}
	return true
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

// headerKind selects which grammar DoParse applies to a header's raw
// string value.
type headerKind int

const (
	kindAtomicString headerKind = iota
	kindAcceptList            // Accept: list of mime atoms + params
	kindParsedStringList      // Accept-Charset/Encoding/Language, Content-Encoding/Language
	kindContentLength
	kindAuthorization
)

type headerTableEntry struct {
	canonical string
	category  HeaderCategory
	kind      headerKind
}

var headerTable = map[string]headerTableEntry{
	"cache-control": {"Cache-Control", CategoryGeneral, kindAtomicString},
	"connection":    {"Connection", CategoryGeneral, kindAtomicString},
	"date":          {"Date", CategoryGeneral, kindAtomicString},

	"host":            {"Host", CategoryRequest, kindAtomicString},
	"accept":          {"Accept", CategoryRequest, kindAcceptList},
	"accept-charset":  {"Accept-Charset", CategoryRequest, kindParsedStringList},
	"accept-encoding": {"Accept-Encoding", CategoryRequest, kindParsedStringList},
	"accept-language": {"Accept-Language", CategoryRequest, kindParsedStringList},
	"authorization":   {"Authorization", CategoryRequest, kindAuthorization},

	"server":           {"Server", CategoryResponse, kindAtomicString},
	"www-authenticate": {"WWW-Authenticate", CategoryResponse, kindAtomicString},
	"location":         {"Location", CategoryResponse, kindAtomicString},

	"content-type":     {"Content-Type", CategoryEntity, kindAtomicString},
	"content-length":   {"Content-Length", CategoryEntity, kindContentLength},
	"content-encoding": {"Content-Encoding", CategoryEntity, kindParsedStringList},
	"content-language": {"Content-Language", CategoryEntity, kindParsedStringList},
}

// supportedEncodingSet maps the Content-Encoding/Accept-Encoding atoms
// this server can act on to their Encoding. The set has no priority of
// its own: the first match in the client's list wins, not the atom with
// the best quality — spec §4.1 step 3 and §4.5.2 both ignore quality.
var supportedEncodingSet = map[string]Encoding{
	"gzip":    EncodingGzip,
	"deflate": EncodingDeflate,
	"zstd":    EncodingZstd,
	"br":      EncodingBr,
}

// DoParse materializes the typed ReqHead from the accumulated raw
// request line and folded header map. Calling this before IsComplete
// is a programmer error, matching the panic-on-misuse contract spec
// §4.8 requires be tested, not recovered from.
func (p *HeadParser) DoParse() (*ReqHead, error) {
	if p.state != stateDone {
		panic("fileservd: HeadParser.DoParse called before head is complete")
	}

	fields := strings.Split(p.requestLine, " ")
	if len(fields) != 3 {
		return nil, NewError(ErrKindFirstLineInvalidFieldCount)
	}
	verbToken, targetToken, version := fields[0], fields[1], fields[2]

	verb, ok := parseVerb(verbToken)
	if !ok {
		return nil, NewError(ErrKindFirstLineInvalidVerb)
	}

	target, err := parseTarget(targetToken)
	if err != nil {
		return nil, err
	}

	head := &ReqHead{
		Verb:    verb,
		Target:  target,
		Version: version,
		Headers: make(map[HeaderName]HeaderValue, len(p.order)),
	}

	for _, lowerName := range p.order {
		raw := *p.raw[lowerName]

		entry, known := headerTable[lowerName]
		name, ok := canonicalHeaderName(lowerName)
		if !ok {
			name = OtherHeaderName(lowerName)
		}
		kind := kindAtomicString
		if known {
			kind = entry.kind
		}

		value, err := parseHeaderValue(kind, raw)
		if err != nil {
			return nil, err
		}
		head.Headers[name] = value

		if kind == kindAuthorization {
			if user, pass, ok := value.IsCredentials(); ok {
				head.Credentials = &ReqCredentials{Username: user, Password: pass}
			}
		}
		if lowerName == "accept-encoding" {
			enc, err := selectEncoding(value)
			if err != nil {
				return nil, err
			}
			head.Encoding = enc
		}
	}

	return head, nil
}

// parseTarget implements spec §4.1 step 1's target grammar.
func parseTarget(token string) (ReqTarget, error) {
	if token == "*" {
		return ReqTarget{Kind: TargetAll}, nil
	}

	var encodedPath, query string
	if idx := strings.IndexByte(token, '?'); idx >= 0 {
		encodedPath = token[:idx]
		rest := token[idx+1:]
		if h := strings.IndexByte(rest, '#'); h >= 0 {
			rest = rest[:h]
		}
		query = rest
		if _, err := url.QueryUnescape(query); err != nil {
			return ReqTarget{}, NewError(ErrKindFirstLineInvalidTargetQuery)
		}
	} else {
		encodedPath = token
	}

	decoded, err := url.PathUnescape(encodedPath)
	if err != nil {
		return ReqTarget{}, NewError(ErrKindFirstLineInvalidTargetEncoding)
	}

	return ReqTarget{
		Kind:     TargetPath,
		Original: encodedPath,
		Decoded:  decoded,
		Query:    query,
	}, nil
}

func parseHeaderValue(kind headerKind, raw string) (HeaderValue, error) {
	switch kind {
	case kindContentLength:
		n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return HeaderValue{}, NewError(ErrKindHeaderNumberParsing)
		}
		return SimpleNumber(n), nil

	case kindAuthorization:
		return parseBasicAuth(raw)

	case kindAcceptList:
		entries, err := parseStructuredList(raw, true)
		if err != nil {
			return HeaderValue{}, err
		}
		return ParsedList(entries), nil

	case kindParsedStringList:
		entries, err := parseStructuredList(raw, false)
		if err != nil {
			return HeaderValue{}, err
		}
		return ParsedList(entries), nil

	default: // kindAtomicString
		return SimpleString(raw), nil
	}
}

// parseBasicAuth implements spec §4.1 step 2's Authorization grammar.
func parseBasicAuth(raw string) (HeaderValue, error) {
	const prefix = "Basic "
	if !strings.HasPrefix(raw, prefix) {
		return HeaderValue{}, NewError(ErrKindHeaderInvalidBasicCredentials)
	}
	decoded, err := base64Decode(raw[len(prefix):])
	if err != nil {
		return HeaderValue{}, NewError(ErrKindHeaderInvalidBasicCredentials)
	}
	sep := strings.IndexByte(decoded, ':')
	if sep < 0 {
		return HeaderValue{}, NewError(ErrKindHeaderInvalidBasicCredentials)
	}
	return Credentials(decoded[:sep], decoded[sep+1:]), nil
}

// parseStructuredList implements the comma/semicolon/parameter grammar
// from spec §4.1 "Structured value grammar". mimeAtom selects whether
// each entry's atom parses as a Mime (Accept) or a plain string atom
// (Accept-Charset/Encoding/Language, Content-Encoding/Language).
func parseStructuredList(raw string, mimeAtom bool) ([]ParsedEntry, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var entries []ParsedEntry
	for _, rawEntry := range strings.Split(raw, ",") {
		rawEntry = strings.TrimSpace(rawEntry)
		if rawEntry == "" {
			continue
		}
		parts := strings.Split(rawEntry, ";")
		atomStr := strings.TrimSpace(parts[0])

		var atom HeaderValue
		if mimeAtom {
			m, err := parseMime(atomStr)
			if err != nil {
				return nil, err
			}
			atom = SimpleMime(m)
		} else {
			if atomStr == "" {
				return nil, NewError(ErrKindHeaderNoComponent)
			}
			atom = SimpleString(atomStr)
		}

		var params []Param
		for _, rawParam := range parts[1:] {
			rawParam = strings.TrimSpace(rawParam)
			if rawParam == "" {
				continue
			}
			param, err := parseParam(rawParam)
			if err != nil {
				return nil, err
			}
			params = append(params, param)
		}
		sortParams(params)

		entries = append(entries, ParsedEntry{Atom: atom, Params: params})
	}

	return entries, nil
}

func parseMime(s string) (Mime, error) {
	idx := strings.IndexByte(s, '/')
	if idx < 0 {
		return Mime{}, NewError(ErrKindHeaderInvalidMime)
	}
	t, sub := s[:idx], s[idx+1:]
	if t == "" || sub == "" {
		return Mime{}, NewError(ErrKindHeaderInvalidMime)
	}
	return Mime{Type: t, Subtype: sub}, nil
}

func parseParam(s string) (Param, error) {
	eqCount := strings.Count(s, "=")
	if eqCount > 1 {
		return Param{}, NewError(ErrKindHeaderInvalidMime)
	}

	idx := strings.IndexByte(s, '=')
	if idx < 0 {
		name := strings.TrimSpace(s)
		return Param{Key: paramKeyFor(name)}, nil
	}

	name := strings.TrimSpace(s[:idx])
	rawValue := s[idx+1:]
	key := paramKeyFor(name)

	if key.Quality {
		f, err := strconv.ParseFloat(rawValue, 32)
		if err != nil {
			return Param{}, NewError(ErrKindHeaderInvalidFloat)
		}
		f32 := float32(f)
		if f32 != f32 { // NaN guard, invariant from spec §3
			return Param{}, NewError(ErrKindHeaderInvalidFloat)
		}
		return Param{Key: key, Value: ParamValue{IsFloat: true, Float: f32}}, nil
	}
	return Param{Key: key, Value: ParamValue{Other: rawValue}}, nil
}

func paramKeyFor(name string) ParamKey {
	if strings.ToLower(name) == "q" {
		return ParamKey{Quality: true}
	}
	return ParamKey{Other: name}
}

// selectEncoding implements spec §4.1 step 3. An absent or empty
// Accept-Encoding list chooses EncodingNone; a non-empty list with no
// supported atom fails with ErrKindNoSupportedEncoding (surfaced as a
// 400), not a 406 or an identity fallback.
func selectEncoding(accept HeaderValue) (Encoding, error) {
	entries, ok := accept.IsParsedList()
	if !ok || len(entries) == 0 {
		return EncodingNone, nil
	}
	for _, entry := range entries {
		atomStr, ok := entry.Atom.AsAtomString()
		if !ok {
			continue
		}
		if enc, ok := supportedEncodingSet[strings.ToLower(atomStr)]; ok {
			return enc, nil
		}
	}
	return EncodingNone, NewError(ErrKindNoSupportedEncoding)
}
