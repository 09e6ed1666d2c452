package fileservd

// areCompatible implements spec §4.4: accepted and actual are
// compatible iff each component of accepted is "*" or equals the
// corresponding component of actual. Reflexive and monotone under
// wildcards by construction (M~M always holds; */* matches anything;
// T/* matches any subtype of T).
func areCompatible(accepted, actual Mime) bool {
	typeOK := accepted.Type == "*" || accepted.Type == actual.Type
	subtypeOK := accepted.Subtype == "*" || accepted.Subtype == actual.Subtype
	return typeOK && subtypeOK
}

// acceptableAgainst applies spec §4.5.2's content negotiation rule for
// a parsed Accept header value against a single produced MIME type.
// Quality parameters are parsed (see header.go/parser.go) but
// intentionally not consulted here: any compatible entry, regardless
// of quality (including q=0), suffices. This is an explicit decision
// on spec §9's open question, recorded in DESIGN.md.
func acceptableAgainst(accept HeaderValue, produced Mime) bool {
	if m, ok := accept.IsSimpleMime(); ok {
		return areCompatible(m, produced)
	}
	if entries, ok := accept.IsParsedList(); ok {
		if len(entries) == 0 {
			return true
		}
		for _, entry := range entries {
			if m, ok := entry.Atom.IsSimpleMime(); ok && areCompatible(m, produced) {
				return true
			}
		}
		return false
	}
	// Accept present but not a recognizable MIME/MIME-list shape: no
	// negotiation constraint to enforce.
	return true
}
