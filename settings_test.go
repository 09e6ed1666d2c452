package fileservd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSettingsResolvesDocRoot(t *testing.T) {
	dir := t.TempDir()
	settings, err := NewSettings("127.0.0.1:8080", dir, true)
	assert.NoError(t, err)

	real, err := filepath.EvalSymlinks(dir)
	assert.NoError(t, err)
	assert.Equal(t, real, settings.DocRoot)
	assert.True(t, settings.AllowDirListing)
}

func TestNewSettingsRejectsNonDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "not-a-dir")
	assert.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := NewSettings("127.0.0.1:8080", file, false)
	assert.Error(t, err)
}

func TestNewSettingsRejectsMissingPath(t *testing.T) {
	dir := t.TempDir()
	_, err := NewSettings("127.0.0.1:8080", filepath.Join(dir, "missing"), false)
	assert.Error(t, err)
}

func TestSettingsTLSAndCGIEnabled(t *testing.T) {
	s := Settings{}
	assert.False(t, s.TLSEnabled())
	assert.False(t, s.CGIEnabled())

	s.TLSCertPath = "cert.pem"
	s.TLSKeyPath = "key.pem"
	s.CGIInterpreter = "/usr/bin/php-cgi"
	assert.True(t, s.TLSEnabled())
	assert.True(t, s.CGIEnabled())
}

func TestSettingsIsCGIScript(t *testing.T) {
	s := Settings{CGIExtensions: []string{".php", ".cgi"}}
	assert.True(t, s.IsCGIScript(".php"))
	assert.True(t, s.IsCGIScript(".cgi"))
	assert.False(t, s.IsCGIScript(".html"))
}

func TestSettingsMatchCredential(t *testing.T) {
	s := Settings{AuthCreds: []Credential{{Username: "admin", Password: "secret"}}}
	assert.True(t, s.MatchCredential("admin", "secret"))
	assert.False(t, s.MatchCredential("admin", "wrong"))
	assert.False(t, s.MatchCredential("nobody", "secret"))
}
