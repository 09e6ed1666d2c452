package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fileservd/fileservd"
	"github.com/fileservd/fileservd/log"
)

func TestParseAuthCredsEmpty(t *testing.T) {
	creds, err := parseAuthCreds("")
	assert.NoError(t, err)
	assert.Nil(t, creds)
}

func TestParseAuthCredsSingle(t *testing.T) {
	creds, err := parseAuthCreds("admin:secret")
	assert.NoError(t, err)
	assert.Equal(t, []fileservd.Credential{{Username: "admin", Password: "secret"}}, creds)
}

func TestParseAuthCredsMultiple(t *testing.T) {
	creds, err := parseAuthCreds("alice:pw1,bob:pw2")
	assert.NoError(t, err)
	assert.Equal(t, []fileservd.Credential{
		{Username: "alice", Password: "pw1"},
		{Username: "bob", Password: "pw2"},
	}, creds)
}

func TestParseAuthCredsMissingColon(t *testing.T) {
	_, err := parseAuthCreds("adminsecret")
	assert.Error(t, err)
}

func TestParseAuthCredsEmptyUserOrPass(t *testing.T) {
	_, err := parseAuthCreds(":secret")
	assert.Error(t, err)

	_, err = parseAuthCreds("admin:")
	assert.Error(t, err)
}

func TestLogLevelFromEnv(t *testing.T) {
	cases := map[string]log.Level{
		"debug": log.DebugLevel,
		"DEBUG": log.DebugLevel,
		"warn":  log.WarnLevel,
		"error": log.ErrorLevel,
		"":      log.InfoLevel,
		"huh":   log.InfoLevel,
	}
	for env, want := range cases {
		os.Setenv("RUST_LOG", env)
		assert.Equal(t, want, logLevelFromEnv(), "RUST_LOG=%q", env)
	}
	os.Unsetenv("RUST_LOG")
}
