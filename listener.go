package fileservd

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"

	"golang.org/x/sync/errgroup"

	"github.com/fileservd/fileservd/internal/tlsconfig"
	"github.com/fileservd/fileservd/log"
)

// Listener binds the configured address and spawns one connection
// task per accepted peer, per spec §4.7.
type Listener struct {
	settings Settings
	logger   log.ILogger
	loader   tlsconfig.Loader

	ln net.Listener
}

// NewListener constructs a Listener. loader is the certificate-loading
// collaborator spec.md §6 scopes out of the core (nil selects
// tlsconfig.FileLoader).
func NewListener(settings Settings, logger log.ILogger, loader tlsconfig.Loader) *Listener {
	if loader == nil {
		loader = tlsconfig.FileLoader{}
	}
	return &Listener{settings: settings, logger: logger, loader: loader}
}

// Listen binds the socket, wrapping it in a TLS listener when
// settings enables TLS.
func (l *Listener) Listen() error {
	raw, err := net.Listen("tcp", l.settings.Address)
	if err != nil {
		return fmt.Errorf("fileservd: bind %s: %w", l.settings.Address, err)
	}

	if l.settings.TLSEnabled() {
		cfg, err := l.loader.Load(l.settings.TLSCertPath, l.settings.TLSKeyPath)
		if err != nil {
			raw.Close()
			return fmt.Errorf("fileservd: load TLS material: %w", err)
		}
		l.ln = tls.NewListener(raw, cfg)
	} else {
		l.ln = raw
	}
	return nil
}

// Addr returns the bound address, valid after a successful Listen.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Serve runs the accept loop until ctx is cancelled or the listener is
// closed. Each accepted connection is handed to ServeConn on its own
// tracked goroutine via group; the accept loop itself never waits on a
// connection task (spec §4.7: "does not await the task") — only Serve's
// return does, so a shutdown caller blocks on the in-flight requests
// draining rather than on the accept loop alone.
func (l *Listener) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		l.ln.Close()
	}()

	group, _ := errgroup.WithContext(ctx)

	var acceptErr error
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
			default:
				acceptErr = err
			}
			break
		}

		if tc, ok := conn.(*tls.Conn); ok {
			if err := tc.HandshakeContext(ctx); err != nil {
				if l.logger != nil {
					if event := l.logger.Error(); event != nil {
						event.Err(err).Msg("TLS handshake failed")
					}
				}
				tc.Close()
				continue
			}
		}

		group.Go(func() error {
			ServeConn(ctx, conn, l.settings, l.logger)
			return nil
		})
	}

	group.Wait()
	return acceptErr
}

// Close stops accepting new connections.
func (l *Listener) Close() error {
	if l.ln == nil {
		return nil
	}
	return l.ln.Close()
}
