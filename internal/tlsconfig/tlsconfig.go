// Package tlsconfig is the narrow TLS-certificate-loading collaborator
// spec.md §6 lists as "interface only": the core listener depends only
// on Load, never on how certificates reach disk.
package tlsconfig

import "crypto/tls"

// Loader builds a server-side tls.Config from a cert/key pair on disk.
type Loader interface {
	Load(certPath, keyPath string) (*tls.Config, error)
}

// FileLoader is the default Loader, backed by crypto/tls's own PEM
// loading. It is the whole implementation: spec.md explicitly scopes
// certificate provisioning (ACME, rotation, etc.) out of this system.
type FileLoader struct{}

func (FileLoader) Load(certPath, keyPath string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
