package fileservd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fileservd/fileservd/middleware/basicauth"
)

// Credential is one configured (user, password) pair for HTTP Basic
// authentication.
type Credential = basicauth.Pair

// Settings is the immutable configuration shared by every connection
// task. It is constructed once at startup and copied by value into
// each goroutine (spec §3 "cheap value semantics assumed — no interior
// mutability required", mirroring the teacher's Config/DefaultConfig
// pattern in the now-removed config.go).
type Settings struct {
	Address string

	// DocRoot is the canonicalized absolute document root. Settings is
	// never constructed with a non-canonical root; NewSettings does the
	// canonicalization once at startup (spec §6 "canonicalized at
	// startup; startup fails if not a real directory").
	DocRoot string

	AllowDirListing bool

	TLSCertPath string
	TLSKeyPath  string

	// AuthCreds is nil when no --auth-creds was configured, meaning the
	// AUTH GATE (spec §4.5 step 3) is skipped entirely.
	AuthCreds []Credential

	// CGIInterpreter is the absolute path to the scripting runtime
	// (spec's "--php-binary"). Empty means CGI is disabled.
	CGIInterpreter string

	// CGIExtensions is the configured list of extensions dispatched to
	// the CGI runner when CGIInterpreter is set (spec §9 open question
	// #2's resolved contract; see DESIGN.md).
	CGIExtensions []string
}

// DefaultCGIExtensions is used whenever a CGI interpreter is configured
// without an explicit extension list.
var DefaultCGIExtensions = []string{".php"}

// TLSEnabled reports whether both cert and key were configured.
func (s Settings) TLSEnabled() bool {
	return s.TLSCertPath != "" && s.TLSKeyPath != ""
}

// CGIEnabled reports whether a CGI interpreter was configured.
func (s Settings) CGIEnabled() bool {
	return s.CGIInterpreter != ""
}

// IsCGIScript reports whether ext (including its leading dot) is one of
// the configured CGI extensions.
func (s Settings) IsCGIScript(ext string) bool {
	for _, e := range s.CGIExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// MatchCredential reports whether username/password match one of the
// configured pairs, via basicauth.Match's constant-time comparison.
func (s Settings) MatchCredential(username, password string) bool {
	return basicauth.Match(s.AuthCreds, username, password)
}

// NewSettings canonicalizes docRoot and validates it is a directory,
// returning the immutable Settings value every connection task will
// copy. address and docRoot are required; everything else is optional.
func NewSettings(address, docRoot string, allowDirListing bool) (Settings, error) {
	abs, err := filepath.Abs(docRoot)
	if err != nil {
		return Settings{}, fmt.Errorf("fileservd: resolving doc root: %w", err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return Settings{}, fmt.Errorf("fileservd: canonicalizing doc root: %w", err)
	}
	info, err := os.Stat(real)
	if err != nil {
		return Settings{}, fmt.Errorf("fileservd: doc root: %w", err)
	}
	if !info.IsDir() {
		return Settings{}, fmt.Errorf("fileservd: doc root %q is not a directory", real)
	}

	return Settings{
		Address:         address,
		DocRoot:         real,
		AllowDirListing: allowDirListing,
	}, nil
}
